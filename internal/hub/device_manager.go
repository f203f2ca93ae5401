package hub

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
	"magnetar/internal/device"
	"magnetar/internal/logger"
	"magnetar/internal/magnetar"
)

// DeviceManager manages the lifecycle and access to devices
type DeviceManager struct {
	devices     map[string]device.Device
	config      *Config
	mutex       sync.RWMutex
	locks       *xsync.MapOf[string, *sync.Mutex]
	coordinator *Coordinator
	nonceCache  *NonceCache
	options     []magnetar.Option
	logger      zerolog.Logger
}

// NewDeviceManager creates a new device manager. opts are applied to every
// device it creates.
func NewDeviceManager(config *Config, opts ...magnetar.Option) *DeviceManager {
	return &DeviceManager{
		devices:     make(map[string]device.Device),
		config:      config,
		locks:       xsync.NewMapOf[string, *sync.Mutex](),
		coordinator: NewCoordinator(),
		nonceCache:  NewNonceCache(defaultNonceCacheSize, time.Hour),
		options:     opts,
		logger:      logger.GetLogger("device_manager"),
	}
}

// Initialize creates a remote for every configured device
func (dm *DeviceManager) Initialize() error {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.logger.Info().
		Int("device_count", len(dm.config.Devices)).
		Msg("Initializing devices")

	for _, deviceConfig := range dm.config.Devices {
		if err := deviceConfig.Parameters().Validate(); err != nil {
			return fmt.Errorf("failed to create device %s: %w", deviceConfig.ID, err)
		}

		remote := magnetar.NewMagnetarRemote(deviceConfig.ID, deviceConfig.Parameters(), dm.coordinator, dm.options...)
		dm.devices[deviceConfig.ID] = remote

		dm.logger.Info().
			Str("device_id", deviceConfig.ID).
			Str("device_address", deviceConfig.Parameters().URL()).
			Int("baud_rate", deviceConfig.BaudRate).
			Msg("Device initialized successfully")
	}

	return nil
}

// GetDevice returns a device by ID
func (dm *DeviceManager) GetDevice(id string) (device.Device, error) {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	dev, exists := dm.devices[id]
	if !exists {
		return nil, fmt.Errorf("device not found: %s", id)
	}

	return dev, nil
}

// GetAllDeviceInfo returns information for all devices ordered by ID
func (dm *DeviceManager) GetAllDeviceInfo() []device.DeviceInfo {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	infos := make([]device.DeviceInfo, 0, len(dm.devices))
	for _, dev := range dm.devices {
		infos = append(infos, dev.GetDeviceInfo())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })

	return infos
}

// GetDeviceState returns the refresh record for a device
func (dm *DeviceManager) GetDeviceState(id string) (DeviceState, error) {
	if _, err := dm.GetDevice(id); err != nil {
		return DeviceState{}, err
	}
	return dm.coordinator.State(id), nil
}

// ProcessDeviceAction runs an action on a device. Actions on the same device
// are serialized so two sessions never interleave on one serial line.
func (dm *DeviceManager) ProcessDeviceAction(ctx context.Context, deviceID string, actionJSON []byte) (*device.ActionResponse, error) {
	dev, err := dm.GetDevice(deviceID)
	if err != nil {
		return device.Failure(device.ErrorCodeDeviceNotFound, "Device not found: %s", deviceID), nil
	}

	lock := dm.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	return dm.processLocked(ctx, dev, deviceID, actionJSON), nil
}

// ProcessDeviceActionWithNonce is ProcessDeviceAction with replay protection:
// a repeated nonce returns the cached response without touching the device.
// The nonce is checked and stored under the device lock, so concurrent
// requests sharing a nonce press the button once.
func (dm *DeviceManager) ProcessDeviceActionWithNonce(ctx context.Context, deviceID, nonce string, actionJSON []byte) (*device.ActionResponse, error) {
	if nonce == "" {
		return dm.ProcessDeviceAction(ctx, deviceID, actionJSON)
	}

	if !ValidateNonce(nonce) {
		dm.logger.Warn().
			Str("device_id", deviceID).
			Str("nonce", nonce).
			Msg("Invalid nonce format")
		return device.Failure(device.ErrorCodeInvalidRequest, "Invalid nonce format"), nil
	}

	dev, err := dm.GetDevice(deviceID)
	if err != nil {
		return device.Failure(device.ErrorCodeDeviceNotFound, "Device not found: %s", deviceID), nil
	}

	lock := dm.deviceLock(deviceID)
	lock.Lock()
	defer lock.Unlock()

	if cached, found := dm.nonceCache.CheckNonce(deviceID, nonce); found {
		dm.logger.Info().
			Str("device_id", deviceID).
			Str("nonce", nonce).
			Msg("Returning cached response for duplicate nonce")
		return cached, nil
	}

	response := dm.processLocked(ctx, dev, deviceID, actionJSON)
	dm.nonceCache.StoreResponse(deviceID, nonce, response)
	return response, nil
}

func (dm *DeviceManager) deviceLock(deviceID string) *sync.Mutex {
	lock, _ := dm.locks.LoadOrCompute(deviceID, func() *sync.Mutex { return &sync.Mutex{} })
	return lock
}

// processLocked runs the action; the caller holds the device lock
func (dm *DeviceManager) processLocked(ctx context.Context, dev device.Device, deviceID string, actionJSON []byte) *device.ActionResponse {
	dm.logger.Debug().
		Str("device_id", deviceID).
		RawJSON("action", actionJSON).
		Msg("Processing device action")

	response, err := dev.Process(ctx, actionJSON)
	if err != nil {
		dm.logger.Error().
			Str("device_id", deviceID).
			Err(err).
			Msg("Device action processing failed")
		return device.Failure(device.ErrorCodeTransport, "Action processing failed: %v", err)
	}

	dm.logger.Info().
		Str("device_id", deviceID).
		Bool("success", response.Success).
		Msg("Device action processed")

	return response
}

// GetDeviceCount returns the number of managed devices
func (dm *DeviceManager) GetDeviceCount() int {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()
	return len(dm.devices)
}

// GetNonceStats returns nonce cache statistics
func (dm *DeviceManager) GetNonceStats() map[string]interface{} {
	return dm.nonceCache.GetStats()
}

// Shutdown drops all devices and cached nonces
func (dm *DeviceManager) Shutdown() {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.logger.Info().
		Int("device_count", len(dm.devices)).
		Msg("Shutting down device manager")

	dm.nonceCache.Shutdown()
	for id := range dm.devices {
		dm.coordinator.Forget(id)
	}
	dm.devices = make(map[string]device.Device)
}
