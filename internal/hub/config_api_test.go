package hub_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"magnetar/internal/device"
	"magnetar/internal/hub"
	"magnetar/internal/magnetar"
)

type apiFixture struct {
	dialer *magnetar.SimulatedDialer
	api    *hub.ConfigAPIServer
}

func newAPIFixture(t *testing.T, reply string) *apiFixture {
	t.Helper()
	dialer := magnetar.NewSimulatedDialer(reply)
	opts := []magnetar.Option{magnetar.WithDialer(dialer), magnetar.WithSleeper(noPause)}

	config := testConfig()
	manager := hub.NewDeviceManager(config, opts...)
	require.NoError(t, manager.Initialize())
	t.Cleanup(manager.Shutdown)

	return &apiFixture{
		dialer: dialer,
		api:    hub.NewConfigAPIServer(config, manager, opts...),
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body []byte, header http.Header) (*httptest.ResponseRecorder, hub.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for key, values := range header {
		req.Header[key] = values
	}
	rec := httptest.NewRecorder()
	f.api.Handler().ServeHTTP(rec, req)

	var response hub.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response), rec.Body.String())
	return rec, response
}

func TestConfigAPIHealth(t *testing.T) {
	f := newAPIFixture(t, magnetar.Ack)

	rec, response := f.do(t, http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.True(t, response.Success)
	data := response.Data.(map[string]interface{})
	assert.Equal(t, "hub-test", data["hub_id"])
	assert.Equal(t, float64(2), data["device_count"])
}

func TestConfigAPIDevices(t *testing.T) {
	f := newAPIFixture(t, magnetar.Ack)

	t.Run("list", func(t *testing.T) {
		rec, response := f.do(t, http.MethodGet, "/devices", nil, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		data := response.Data.(map[string]interface{})
		assert.Equal(t, float64(2), data["count"])
	})

	t.Run("get", func(t *testing.T) {
		rec, response := f.do(t, http.MethodGet, "/devices/living_room", nil, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		data := response.Data.(map[string]interface{})
		assert.Equal(t, "living_room", data["id"])
		assert.Equal(t, "magnetar", data["type"])
	})

	t.Run("missing device", func(t *testing.T) {
		rec, response := f.do(t, http.MethodGet, "/devices/kitchen", nil, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, device.ErrorCodeDeviceNotFound, response.Code)
	})

	t.Run("actions", func(t *testing.T) {
		rec, response := f.do(t, http.MethodGet, "/devices/living_room/actions", nil, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		actions := response.Data.([]interface{})
		require.Len(t, actions, len(magnetar.Catalog()))
		first := actions[0].(map[string]interface{})
		assert.Equal(t, "subtitles", first["key"])
	})
}

func TestConfigAPIPress(t *testing.T) {
	t.Run("press and read back state", func(t *testing.T) {
		f := newAPIFixture(t, magnetar.Ack)

		rec, response := f.do(t, http.MethodPost, "/devices/living_room/actions/subtitles", nil, nil)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.True(t, response.Success)
		data := response.Data.(map[string]interface{})
		assert.Equal(t, float64(4), data["acks"])
		assert.Len(t, f.dialer.Frames(), 4)

		rec, response = f.do(t, http.MethodGet, "/devices/living_room/state", nil, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		state := response.Data.(map[string]interface{})
		assert.Equal(t, "subtitles", state["last_action"])
		assert.Equal(t, float64(1), state["presses"])
	})

	t.Run("nonce header deduplicates retries", func(t *testing.T) {
		f := newAPIFixture(t, magnetar.Ack)
		header := http.Header{hub.NonceHeader: {hub.GenerateNonce()}}

		for i := 0; i < 3; i++ {
			rec, _ := f.do(t, http.MethodPost, "/devices/living_room/actions/play", nil, header)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		assert.Equal(t, 1, f.dialer.Sessions())
	})

	t.Run("unknown action", func(t *testing.T) {
		f := newAPIFixture(t, magnetar.Ack)

		rec, response := f.do(t, http.MethodPost, "/devices/living_room/actions/volume_up", nil, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, device.ErrorCodeUnknownAction, response.Code)
		assert.Equal(t, 0, f.dialer.Sessions())
	})

	t.Run("unknown device", func(t *testing.T) {
		f := newAPIFixture(t, magnetar.Ack)

		rec, response := f.do(t, http.MethodPost, "/devices/kitchen/actions/play", nil, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, device.ErrorCodeDeviceNotFound, response.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		f := newAPIFixture(t, magnetar.Ack)

		req := httptest.NewRequest(http.MethodGet, "/devices/living_room/actions/play", nil)
		rec := httptest.NewRecorder()
		f.api.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestConfigAPIPair(t *testing.T) {
	pairBody := func(t *testing.T, req hub.PairRequest) []byte {
		body, err := json.Marshal(req)
		require.NoError(t, err)
		return body
	}

	t.Run("acknowledging device pairs", func(t *testing.T) {
		f := newAPIFixture(t, magnetar.Ack)

		rec, response := f.do(t, http.MethodPost, "/pair", pairBody(t, hub.PairRequest{
			Host: "192.0.2.30", Port: 8102, BaudRate: 152000,
		}), nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, response.Success)
		assert.Equal(t, [][]byte{[]byte("#PON\r\n")}, f.dialer.Frames())
	})

	t.Run("silent device cannot connect", func(t *testing.T) {
		f := newAPIFixture(t, "")

		rec, response := f.do(t, http.MethodPost, "/pair", pairBody(t, hub.PairRequest{
			Host: "192.0.2.30", Port: 8102, BaudRate: 152000,
		}), nil)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.False(t, response.Success)
		assert.Equal(t, device.ErrorCodeCannotConnect, response.Code)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		f := newAPIFixture(t, magnetar.Ack)

		rec, response := f.do(t, http.MethodPost, "/pair", pairBody(t, hub.PairRequest{Host: "192.0.2.30"}), nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, device.ErrorCodeInvalidRequest, response.Code)
		assert.Equal(t, 0, f.dialer.Sessions())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		f := newAPIFixture(t, magnetar.Ack)

		rec, _ := f.do(t, http.MethodPost, "/pair", []byte("{"), nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
