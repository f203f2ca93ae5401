package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"magnetar/internal/device"
	"magnetar/internal/logger"
	"magnetar/internal/magnetar"
)

// NonceHeader carries the optional idempotency key of an action request
const NonceHeader = "X-Nonce"

// ConfigAPIServer exposes the hub devices over HTTP
type ConfigAPIServer struct {
	config  *Config
	manager *DeviceManager
	options []magnetar.Option
	router  *mux.Router
	server  *http.Server
	logger  zerolog.Logger
}

// APIResponse is the envelope of every API reply
type APIResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Data    interface{}      `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
	Code    device.ErrorCode `json:"code,omitempty"`
}

// PairRequest holds the connection parameters to check
type PairRequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	BaudRate int    `json:"baud_rate"`
	Device   string `json:"device,omitempty"`
}

// NewConfigAPIServer creates the API server. opts are used for the pairing
// probe so a test-mode hub pairs against the simulated device.
func NewConfigAPIServer(config *Config, manager *DeviceManager, opts ...magnetar.Option) *ConfigAPIServer {
	server := &ConfigAPIServer{
		config:  config,
		manager: manager,
		options: opts,
		logger:  logger.GetLogger("config_api"),
	}

	router := mux.NewRouter()

	router.HandleFunc("/health", server.handleHealth).Methods("GET")

	router.HandleFunc("/devices", server.handleDeviceList).Methods("GET")
	router.HandleFunc("/devices/{id}", server.handleDeviceGet).Methods("GET")
	router.HandleFunc("/devices/{id}/actions", server.handleActionList).Methods("GET")
	router.HandleFunc("/devices/{id}/actions/{action}", server.handleActionPress).Methods("POST")
	router.HandleFunc("/devices/{id}/state", server.handleDeviceState).Methods("GET")

	router.HandleFunc("/pair", server.handlePair).Methods("POST")

	server.router = router
	server.server = &http.Server{
		Addr:    config.ListenAddress(),
		Handler: router,
	}

	return server
}

// Handler returns the routed handler
func (s *ConfigAPIServer) Handler() http.Handler {
	return s.router
}

// Start serves the API in the background
func (s *ConfigAPIServer) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Msg("Starting hub API server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Hub API server error")
		}
	}()

	return nil
}

// Stop shuts the server down, waiting for in-flight presses until ctx ends
func (s *ConfigAPIServer) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping hub API server")
	return s.server.Shutdown(ctx)
}

func (s *ConfigAPIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.sendSuccess(w, "Hub is healthy", map[string]interface{}{
		"status":       "healthy",
		"hub_id":       s.config.Hub.ID,
		"device_count": s.manager.GetDeviceCount(),
		"nonce_cache":  s.manager.GetNonceStats(),
	})
}

func (s *ConfigAPIServer) handleDeviceList(w http.ResponseWriter, r *http.Request) {
	devices := s.manager.GetAllDeviceInfo()
	s.sendSuccess(w, "Device list retrieved successfully", map[string]interface{}{
		"devices": devices,
		"count":   len(devices),
	})
}

func (s *ConfigAPIServer) handleDeviceGet(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	s.sendSuccess(w, "", dev.GetDeviceInfo())
}

func (s *ConfigAPIServer) handleActionList(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	s.sendSuccess(w, "", dev.Actions())
}

func (s *ConfigAPIServer) handleDeviceState(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	state, err := s.manager.GetDeviceState(id)
	if err != nil {
		s.sendError(w, http.StatusNotFound, device.ErrorCodeDeviceNotFound, "Device not found", err)
		return
	}
	s.sendSuccess(w, "", state)
}

func (s *ConfigAPIServer) handleActionPress(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	deviceID := vars["id"]

	body, err := device.CreateActionJSON(vars["action"])
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, device.ErrorCodeInvalidRequest, "Failed to encode action", err)
		return
	}

	nonce := r.Header.Get(NonceHeader)
	response, err := s.manager.ProcessDeviceActionWithNonce(r.Context(), deviceID, nonce, body)
	if err != nil {
		s.sendError(w, http.StatusInternalServerError, device.ErrorCodeTransport, "Action failed", err)
		return
	}

	s.writeJSON(w, statusFor(response), APIResponse{
		Success: response.Success,
		Data:    response.Data,
		Error:   response.Error,
		Code:    response.Code,
	})
}

func (s *ConfigAPIServer) handlePair(w http.ResponseWriter, r *http.Request) {
	var req PairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, http.StatusBadRequest, device.ErrorCodeInvalidRequest, "Invalid JSON format", err)
		return
	}

	params := magnetar.ConnectionParameters{
		Host:     req.Host,
		Port:     req.Port,
		BaudRate: req.BaudRate,
		Device:   req.Device,
	}
	if err := params.Validate(); err != nil {
		s.sendError(w, http.StatusBadRequest, device.ErrorCodeInvalidRequest, "Invalid connection parameters", err)
		return
	}

	client := magnetar.NewMagnetarClient(params, s.options...)
	if err := magnetar.Pair(r.Context(), client); err != nil {
		code := device.ErrorCodeTransport
		var connErr *magnetar.ConnectionError
		if errors.Is(err, magnetar.ErrCannotConnect) || errors.As(err, &connErr) {
			code = device.ErrorCodeCannotConnect
		}
		s.sendError(w, http.StatusBadGateway, code, "Cannot connect", err)
		return
	}

	s.sendSuccess(w, "Device paired", params)
}

func (s *ConfigAPIServer) lookupDevice(w http.ResponseWriter, r *http.Request) (device.Device, bool) {
	dev, err := s.manager.GetDevice(mux.Vars(r)["id"])
	if err != nil {
		s.sendError(w, http.StatusNotFound, device.ErrorCodeDeviceNotFound, "Device not found", err)
		return nil, false
	}
	return dev, true
}

// statusFor maps an action outcome onto an HTTP status
func statusFor(response *device.ActionResponse) int {
	if response.Success {
		return http.StatusOK
	}
	switch response.Code {
	case device.ErrorCodeDeviceNotFound, device.ErrorCodeUnknownAction:
		return http.StatusNotFound
	case device.ErrorCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func (s *ConfigAPIServer) sendSuccess(w http.ResponseWriter, message string, data interface{}) {
	s.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func (s *ConfigAPIServer) sendError(w http.ResponseWriter, statusCode int, code device.ErrorCode, message string, err error) {
	response := APIResponse{
		Success: false,
		Message: message,
		Code:    code,
	}

	if err != nil {
		response.Error = err.Error()
		s.logger.Error().Err(err).Str("message", message).Msg("API error")
	} else {
		s.logger.Warn().Str("message", message).Msg("API client error")
	}

	s.writeJSON(w, statusCode, response)
}

func (s *ConfigAPIServer) writeJSON(w http.ResponseWriter, statusCode int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
