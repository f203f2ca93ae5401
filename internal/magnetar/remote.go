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

package magnetar

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"magnetar/internal/device"
)

// MagnetarRemote implements the Device interface for the Magnetar player
type MagnetarRemote struct {
	id        string
	client    *MagnetarClient
	info      device.DeviceInfo
	refresher device.Refresher
	logger    zerolog.Logger
}

// PressResult is returned in ActionResponse.Data for a successful press
type PressResult struct {
	Action    string   `json:"action"`
	Codes     []string `json:"codes"`
	Responses []string `json:"responses"`
	Acks      int      `json:"acks"`
}

// NewMagnetarRemote creates a new MagnetarRemote device. refresher may be nil.
func NewMagnetarRemote(id string, params ConnectionParameters, refresher device.Refresher, opts ...Option) *MagnetarRemote {
	client := NewMagnetarClient(params, opts...)

	return &MagnetarRemote{
		id:        id,
		client:    client,
		refresher: refresher,
		logger:    client.logger.With().Str("device_id", id).Logger(),
		info: device.DeviceInfo{
			ID:      id,
			Type:    "magnetar",
			Model:   "Magnetar",
			Address: params.URL(),
			Capabilities: []string{
				"remote_control",
				"playback_control",
				"subtitle_control",
			},
		},
	}
}

// GetDeviceInfo returns information about this device
func (r *MagnetarRemote) GetDeviceInfo() device.DeviceInfo {
	info := r.info
	info.Capabilities = append([]string(nil), r.info.Capabilities...)
	return info
}

// Actions returns the catalog as device actions
func (r *MagnetarRemote) Actions() []device.ActionInfo {
	catalog := Catalog()
	actions := make([]device.ActionInfo, len(catalog))
	for i, action := range catalog {
		actions[i] = device.ActionInfo{
			Key:   action.Key,
			Name:  action.Name,
			Codes: action.Sequence.Strings(),
		}
	}
	return actions
}

// Press executes one catalog action and, on success, notifies the refresher.
// Each press is a real button press on the device; it is never retried here.
func (r *MagnetarRemote) Press(ctx context.Context, key string) ([]string, error) {
	action, ok := Lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, key)
	}

	r.logger.Debug().
		Str("action", action.Key).
		Strs("codes", action.Sequence.Strings()).
		Msg("Pressing button")

	responses, err := r.client.Execute(ctx, action.Sequence)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("action", action.Name).
			Msg("Failed to press button")
		return nil, err
	}

	if r.refresher != nil {
		r.refresher.NotifyRefresh(r.id, action.Key)
	}

	return responses, nil
}

// Process handles JSON action requests and routes them to Press
func (r *MagnetarRemote) Process(ctx context.Context, actionJSON []byte) (*device.ActionResponse, error) {
	request, err := device.ParseActionRequest(actionJSON)
	if err != nil {
		return device.Failure(device.ErrorCodeInvalidRequest, "%v", err), nil
	}

	action, ok := Lookup(request.Action)
	if !ok {
		return device.Failure(device.ErrorCodeUnknownAction, "unsupported action: %s", request.Action), nil
	}

	responses, err := r.Press(ctx, action.Key)
	if err != nil {
		return failureFor(action.Key, err), nil
	}

	return &device.ActionResponse{
		Success: true,
		Data: PressResult{
			Action:    action.Key,
			Codes:     action.Sequence.Strings(),
			Responses: responses,
			Acks:      CountAcks(responses),
		},
	}, nil
}

// failureFor maps the error taxonomy onto response codes
func failureFor(key string, err error) *device.ActionResponse {
	var connErr *ConnectionError
	var transportErr *TransportError

	switch {
	case errors.As(err, &connErr), errors.Is(err, ErrCannotConnect):
		return device.Failure(device.ErrorCodeCannotConnect, "%s: %v", key, err)
	case errors.As(err, &transportErr):
		return device.Failure(device.ErrorCodeTransport, "%s: %v", key, err)
	case errors.Is(err, ErrUnknownAction):
		return device.Failure(device.ErrorCodeUnknownAction, "%v", err)
	default:
		return device.Failure(device.ErrorCodeInvalidRequest, "%s: %v", key, err)
	}
}
