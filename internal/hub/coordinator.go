package hub

import (
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"magnetar/internal/logger"
)

// DeviceState is what the hub knows about a player that cannot be queried:
// the last action pressed and when.
type DeviceState struct {
	DeviceID    string    `json:"device_id"`
	LastAction  string    `json:"last_action,omitempty"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
	Presses     int       `json:"presses"`
}

// Coordinator records a refresh each time an action succeeds. Players have
// no status query, so there is no polling loop.
type Coordinator struct {
	states *xsync.MapOf[string, DeviceState]
	now    func() time.Time
	logger zerolog.Logger
}

// NewCoordinator creates an empty coordinator
func NewCoordinator() *Coordinator {
	return &Coordinator{
		states: xsync.NewMapOf[string, DeviceState](),
		now:    time.Now,
		logger: logger.GetLogger("coordinator"),
	}
}

// NotifyRefresh implements device.Refresher
func (c *Coordinator) NotifyRefresh(deviceID, action string) {
	state, _ := c.states.Compute(deviceID, func(old DeviceState, loaded bool) (DeviceState, bool) {
		old.DeviceID = deviceID
		old.LastAction = action
		old.LastRefresh = c.now()
		old.Presses++
		return old, false
	})

	c.logger.Debug().
		Str("device_id", deviceID).
		Str("action", action).
		Int("presses", state.Presses).
		Msg("Device state refreshed")
}

// State returns the recorded state for a device. A device that has never
// been pressed reports a zero state with its ID set.
func (c *Coordinator) State(deviceID string) DeviceState {
	if state, ok := c.states.Load(deviceID); ok {
		return state
	}
	return DeviceState{DeviceID: deviceID}
}

// Forget drops the recorded state for a device
func (c *Coordinator) Forget(deviceID string) {
	c.states.Delete(deviceID)
}
