package hub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"magnetar/internal/device"
)

var _ device.Refresher = (*Coordinator)(nil)

func TestCoordinator(t *testing.T) {
	coordinator := NewCoordinator()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)}
	coordinator.now = clock.Now

	assert.Equal(t, DeviceState{DeviceID: "player"}, coordinator.State("player"))

	coordinator.NotifyRefresh("player", "power_on")
	clock.Advance(time.Minute)
	coordinator.NotifyRefresh("player", "subtitles")

	state := coordinator.State("player")
	assert.Equal(t, "subtitles", state.LastAction)
	assert.Equal(t, clock.t, state.LastRefresh)
	assert.Equal(t, 2, state.Presses)

	coordinator.Forget("player")
	assert.Equal(t, 0, coordinator.State("player").Presses)
}

func TestCoordinatorConcurrentRefresh(t *testing.T) {
	coordinator := NewCoordinator()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coordinator.NotifyRefresh("player", "mute")
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, coordinator.State("player").Presses)
}
