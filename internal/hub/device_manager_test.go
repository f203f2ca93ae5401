package hub_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"magnetar/internal/device"
	"magnetar/internal/hub"
	"magnetar/internal/magnetar"
)

func noPause(time.Duration) {}

func testConfig() *hub.Config {
	bedroom := hub.NewDefaultDevice("bedroom")
	bedroom.Host = "192.0.2.20"
	return &hub.Config{
		Hub: hub.HubConfig{ID: "hub-test"},
		Devices: []hub.DeviceConfig{
			hub.NewDefaultDevice("living_room"),
			bedroom,
		},
	}
}

func newTestManager(t *testing.T, dialer magnetar.Dialer) *hub.DeviceManager {
	t.Helper()
	manager := hub.NewDeviceManager(testConfig(),
		magnetar.WithDialer(dialer),
		magnetar.WithSleeper(noPause))
	require.NoError(t, manager.Initialize())
	t.Cleanup(manager.Shutdown)
	return manager
}

func actionJSON(t *testing.T, action string) []byte {
	t.Helper()
	body, err := device.CreateActionJSON(action)
	require.NoError(t, err)
	return body
}

func TestDeviceManagerInitialize(t *testing.T) {
	manager := newTestManager(t, magnetar.NewSimulatedDialer(magnetar.Ack))

	assert.Equal(t, 2, manager.GetDeviceCount())

	infos := manager.GetAllDeviceInfo()
	require.Len(t, infos, 2)
	assert.Equal(t, "bedroom", infos[0].ID)
	assert.Equal(t, "socket://192.0.2.20:8102", infos[0].Address)
	assert.Equal(t, "living_room", infos[1].ID)

	_, err := manager.GetDevice("kitchen")
	assert.ErrorContains(t, err, "device not found")
}

func TestDeviceManagerProcessDeviceAction(t *testing.T) {
	t.Run("presses and records state", func(t *testing.T) {
		dialer := magnetar.NewSimulatedDialer(magnetar.Ack)
		manager := newTestManager(t, dialer)

		response, err := manager.ProcessDeviceAction(context.Background(), "living_room", actionJSON(t, "power_off"))

		require.NoError(t, err)
		assert.True(t, response.Success, response.Error)
		assert.Equal(t, [][]byte{[]byte("#POF\r\n")}, dialer.Frames())

		state, err := manager.GetDeviceState("living_room")
		require.NoError(t, err)
		assert.Equal(t, "power_off", state.LastAction)
		assert.Equal(t, 1, state.Presses)
		assert.False(t, state.LastRefresh.IsZero())

		other, err := manager.GetDeviceState("bedroom")
		require.NoError(t, err)
		assert.Equal(t, 0, other.Presses)
	})

	t.Run("unknown device", func(t *testing.T) {
		manager := newTestManager(t, magnetar.NewSimulatedDialer(magnetar.Ack))

		response, err := manager.ProcessDeviceAction(context.Background(), "kitchen", actionJSON(t, "play"))

		require.NoError(t, err)
		assert.False(t, response.Success)
		assert.Equal(t, device.ErrorCodeDeviceNotFound, response.Code)

		_, err = manager.GetDeviceState("kitchen")
		assert.Error(t, err)
	})

	t.Run("unknown action", func(t *testing.T) {
		manager := newTestManager(t, magnetar.NewSimulatedDialer(magnetar.Ack))

		response, err := manager.ProcessDeviceAction(context.Background(), "living_room", actionJSON(t, "volume_up"))

		require.NoError(t, err)
		assert.Equal(t, device.ErrorCodeUnknownAction, response.Code)
	})
}

func TestDeviceManagerNonce(t *testing.T) {
	t.Run("repeated nonce does not press twice", func(t *testing.T) {
		dialer := magnetar.NewSimulatedDialer(magnetar.Ack)
		manager := newTestManager(t, dialer)
		nonce := hub.GenerateNonce()

		first, err := manager.ProcessDeviceActionWithNonce(context.Background(), "living_room", nonce, actionJSON(t, "mute"))
		require.NoError(t, err)
		second, err := manager.ProcessDeviceActionWithNonce(context.Background(), "living_room", nonce, actionJSON(t, "mute"))
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, 1, dialer.Sessions())
	})

	t.Run("requests without a nonce always press", func(t *testing.T) {
		dialer := magnetar.NewSimulatedDialer(magnetar.Ack)
		manager := newTestManager(t, dialer)

		for i := 0; i < 2; i++ {
			_, err := manager.ProcessDeviceActionWithNonce(context.Background(), "living_room", "", actionJSON(t, "mute"))
			require.NoError(t, err)
		}

		assert.Equal(t, 2, dialer.Sessions())
	})

	t.Run("concurrent requests sharing a nonce press once", func(t *testing.T) {
		dialer := magnetar.NewSimulatedDialer(magnetar.Ack)
		manager := hub.NewDeviceManager(testConfig(),
			magnetar.WithDialer(dialer),
			magnetar.WithSleeper(func(time.Duration) { time.Sleep(20 * time.Millisecond) }))
		require.NoError(t, manager.Initialize())
		t.Cleanup(manager.Shutdown)

		nonce := hub.GenerateNonce()
		body := actionJSON(t, "power_off")
		responses := make([]*device.ActionResponse, 4)

		var wg sync.WaitGroup
		for i := range responses {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				response, err := manager.ProcessDeviceActionWithNonce(context.Background(), "living_room", nonce, body)
				assert.NoError(t, err)
				responses[i] = response
			}(i)
		}
		wg.Wait()

		assert.Equal(t, 1, dialer.Sessions())
		assert.Equal(t, [][]byte{[]byte("#POF\r\n")}, dialer.Frames())
		for _, response := range responses {
			require.NotNil(t, response)
			assert.True(t, response.Success)
			assert.Same(t, responses[0], response)
		}
	})

	t.Run("malformed nonce is rejected", func(t *testing.T) {
		dialer := magnetar.NewSimulatedDialer(magnetar.Ack)
		manager := newTestManager(t, dialer)

		response, err := manager.ProcessDeviceActionWithNonce(context.Background(), "living_room", "not-a-nonce", actionJSON(t, "mute"))

		require.NoError(t, err)
		assert.False(t, response.Success)
		assert.Equal(t, device.ErrorCodeInvalidRequest, response.Code)
		assert.Equal(t, 0, dialer.Sessions())
	})
}

// concurrencyDialer tracks how many sessions are open at once per address
type concurrencyDialer struct {
	inner *magnetar.SimulatedDialer

	mu     sync.Mutex
	open   map[string]int
	peak   map[string]int
	active int32
}

func newConcurrencyDialer() *concurrencyDialer {
	return &concurrencyDialer{
		inner: magnetar.NewSimulatedDialer(magnetar.Ack),
		open:  map[string]int{},
		peak:  map[string]int{},
	}
}

func (d *concurrencyDialer) Dial(ctx context.Context, params magnetar.ConnectionParameters) (magnetar.Port, error) {
	port, err := d.inner.Dial(ctx, params)
	if err != nil {
		return nil, err
	}

	addr := params.Address()
	d.mu.Lock()
	d.open[addr]++
	if d.open[addr] > d.peak[addr] {
		d.peak[addr] = d.open[addr]
	}
	d.mu.Unlock()
	atomic.AddInt32(&d.active, 1)

	return &trackedPort{Port: port, release: func() {
		d.mu.Lock()
		d.open[addr]--
		d.mu.Unlock()
	}}, nil
}

type trackedPort struct {
	magnetar.Port
	release func()
}

func (p *trackedPort) Write(b []byte) (int, error) {
	time.Sleep(time.Millisecond)
	return p.Port.Write(b)
}

func (p *trackedPort) Close() error {
	p.release()
	return p.Port.Close()
}

func TestDeviceManagerSerializesPerDevice(t *testing.T) {
	dialer := newConcurrencyDialer()
	manager := newTestManager(t, dialer)

	body := actionJSON(t, "subtitles")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			response, err := manager.ProcessDeviceAction(context.Background(), "living_room", body)
			assert.NoError(t, err)
			assert.True(t, response.Success)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), atomic.LoadInt32(&dialer.active))
	assert.Equal(t, 1, dialer.peak["192.168.67.123:8102"])

	state, err := manager.GetDeviceState("living_room")
	require.NoError(t, err)
	assert.Equal(t, 8, state.Presses)
}
