// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package magnetar_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"magnetar/internal/device"
	"magnetar/internal/magnetar"
)

type refreshLog struct {
	calls []string
}

func (r *refreshLog) NotifyRefresh(deviceID, action string) {
	r.calls = append(r.calls, deviceID+"/"+action)
}

func newSimulatedRemote(reply string, refresher device.Refresher) (*magnetar.MagnetarRemote, *magnetar.SimulatedDialer) {
	dialer := magnetar.NewSimulatedDialer(reply)
	remote := magnetar.NewMagnetarRemote("living_room", testParams(), refresher,
		magnetar.WithDialer(dialer),
		magnetar.WithSleeper((&sleepRecorder{}).Sleep))
	return remote, dialer
}

func TestNewMagnetarRemote(t *testing.T) {
	remote, _ := newSimulatedRemote(magnetar.Ack, nil)

	info := remote.GetDeviceInfo()
	assert.Equal(t, "living_room", info.ID)
	assert.Equal(t, "magnetar", info.Type)
	assert.Equal(t, "Magnetar", info.Model)
	assert.Equal(t, "socket://192.0.2.10:8102", info.Address)
	assert.Contains(t, info.Capabilities, "remote_control")

	actions := remote.Actions()
	require.Len(t, actions, len(magnetar.Catalog()))
	assert.Equal(t, "subtitles", actions[0].Key)
	assert.Equal(t, []string{"SUB", "NDN", "SEL", "SUB"}, actions[0].Codes)
}

func TestMagnetarRemote_Process(t *testing.T) {
	t.Run("processes power on", func(t *testing.T) {
		refresh := &refreshLog{}
		remote, dialer := newSimulatedRemote(magnetar.Ack, refresh)

		response, err := remote.Process(context.Background(), []byte(`{"action": "power_on"}`))

		require.NoError(t, err)
		require.True(t, response.Success, response.Error)
		result, ok := response.Data.(magnetar.PressResult)
		require.True(t, ok)
		assert.Equal(t, "power_on", result.Action)
		assert.Equal(t, []string{"ack\r\n"}, result.Responses)
		assert.Equal(t, 1, result.Acks)

		assert.Equal(t, [][]byte{[]byte("#PON\r\n")}, dialer.Frames())
		assert.Equal(t, 1, dialer.Sessions())
		assert.Equal(t, []string{"living_room/power_on"}, refresh.calls)
	})

	t.Run("subtitles macro is one session of four commands", func(t *testing.T) {
		remote, dialer := newSimulatedRemote(magnetar.Ack, nil)

		response, err := remote.Process(context.Background(), []byte(`{"action": "subtitles"}`))

		require.NoError(t, err)
		require.True(t, response.Success)
		assert.Equal(t, 1, dialer.Sessions())
		assert.Equal(t, [][]byte{
			[]byte("#SUB\r\n"), []byte("#NDN\r\n"), []byte("#SEL\r\n"), []byte("#SUB\r\n"),
		}, dialer.Frames())
	})

	t.Run("missing acks still succeed", func(t *testing.T) {
		remote, _ := newSimulatedRemote("", nil)

		response, err := remote.Process(context.Background(), []byte(`{"action": "mute"}`))

		require.NoError(t, err)
		require.True(t, response.Success)
		result := response.Data.(magnetar.PressResult)
		assert.Equal(t, []string{""}, result.Responses)
		assert.Equal(t, 0, result.Acks)
	})

	t.Run("unknown action", func(t *testing.T) {
		remote, dialer := newSimulatedRemote(magnetar.Ack, nil)

		response, err := remote.Process(context.Background(), []byte(`{"action": "volume_up"}`))

		require.NoError(t, err)
		assert.False(t, response.Success)
		assert.Equal(t, device.ErrorCodeUnknownAction, response.Code)
		assert.Contains(t, response.Error, "volume_up")
		assert.Equal(t, 0, dialer.Sessions())
	})

	t.Run("invalid JSON", func(t *testing.T) {
		remote, _ := newSimulatedRemote(magnetar.Ack, nil)

		response, err := remote.Process(context.Background(), []byte(`{"action":`))

		require.NoError(t, err)
		assert.False(t, response.Success)
		assert.Equal(t, device.ErrorCodeInvalidRequest, response.Code)
	})

	t.Run("missing action", func(t *testing.T) {
		remote, _ := newSimulatedRemote(magnetar.Ack, nil)

		response, err := remote.Process(context.Background(), []byte(`{}`))

		require.NoError(t, err)
		assert.False(t, response.Success)
		assert.Contains(t, response.Error, "action is required")
	})

	t.Run("connection failure is reported and does not refresh", func(t *testing.T) {
		refresh := &refreshLog{}
		dialer := magnetar.DialerFunc(func(ctx context.Context, params magnetar.ConnectionParameters) (magnetar.Port, error) {
			return nil, errors.New("connection refused")
		})
		remote := magnetar.NewMagnetarRemote("living_room", testParams(), refresh, magnetar.WithDialer(dialer))

		response, err := remote.Process(context.Background(), []byte(`{"action": "play"}`))

		require.NoError(t, err)
		assert.False(t, response.Success)
		assert.Equal(t, device.ErrorCodeCannotConnect, response.Code)
		assert.Contains(t, response.Error, "connection refused")
		assert.Empty(t, refresh.calls)
	})

	t.Run("transport failure is reported", func(t *testing.T) {
		port := newFakePort()
		port.failWrite = 0
		port.writeErr = errors.New("broken pipe")
		remote := magnetar.NewMagnetarRemote("living_room", testParams(), nil,
			magnetar.WithDialer(portDialer(port)),
			magnetar.WithSleeper((&sleepRecorder{}).Sleep))

		response, err := remote.Process(context.Background(), []byte(`{"action": "stop"}`))

		require.NoError(t, err)
		assert.False(t, response.Success)
		assert.Equal(t, device.ErrorCodeTransport, response.Code)
	})
}

func TestMagnetarRemote_Press(t *testing.T) {
	remote, _ := newSimulatedRemote(magnetar.Ack, nil)

	_, err := remote.Press(context.Background(), "eject")
	assert.ErrorIs(t, err, magnetar.ErrUnknownAction)
}
