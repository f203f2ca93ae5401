package device

import (
	"context"
	"encoding/json"
	"fmt"
)

// Device represents a generic device that can process commands
type Device interface {
	// Process handles a JSON-encoded action and executes the corresponding operation
	Process(ctx context.Context, actionJSON []byte) (*ActionResponse, error)

	// GetDeviceInfo returns basic information about the device
	GetDeviceInfo() DeviceInfo

	// Actions lists the invokable actions in display order
	Actions() []ActionInfo
}

// Refresher is told when an action changed device state. Devices without
// queryable state use it in place of polling.
type Refresher interface {
	NotifyRefresh(deviceID, action string)
}

// DeviceInfo contains basic information about a device
type DeviceInfo struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"`
	Model        string   `json:"model"`
	Address      string   `json:"address"`
	Capabilities []string `json:"capabilities"`
}

// ActionInfo describes one invokable action
type ActionInfo struct {
	Key   string   `json:"key"`
	Name  string   `json:"name"`
	Codes []string `json:"codes"`
}

// ActionRequest represents a JSON action request
type ActionRequest struct {
	Action string `json:"action"`          // catalog key, e.g. "power_on"
	Nonce  string `json:"nonce,omitempty"` // optional idempotency key
}

// ActionResponse represents the response from processing an action
type ActionResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    ErrorCode   `json:"code,omitempty"`
}

// ErrorCode classifies a failed action for callers
type ErrorCode string

const (
	ErrorCodeCannotConnect  ErrorCode = "cannot_connect"
	ErrorCodeTransport      ErrorCode = "transport_error"
	ErrorCodeUnknownAction  ErrorCode = "unknown_action"
	ErrorCodeInvalidRequest ErrorCode = "invalid_request"
	ErrorCodeDeviceNotFound ErrorCode = "device_not_found"
)

// Failure builds an unsuccessful response
func Failure(code ErrorCode, format string, args ...interface{}) *ActionResponse {
	return &ActionResponse{
		Success: false,
		Error:   fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// ParseActionRequest parses JSON input into ActionRequest
func ParseActionRequest(actionJSON []byte) (*ActionRequest, error) {
	var request ActionRequest
	if err := json.Unmarshal(actionJSON, &request); err != nil {
		return nil, fmt.Errorf("failed to parse action request: %w", err)
	}

	if request.Action == "" {
		return nil, fmt.Errorf("action is required")
	}

	return &request, nil
}

// CreateActionJSON is a helper to build an action request body
func CreateActionJSON(action string) ([]byte, error) {
	return json.Marshal(ActionRequest{Action: action})
}
