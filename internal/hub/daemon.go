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

package hub

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"magnetar/internal/device"
	"magnetar/internal/logger"
	"magnetar/internal/magnetar"
)

const shutdownTimeout = 5 * time.Second

// Daemon represents the hub daemon
type Daemon struct {
	config        *Config
	configPath    string
	deviceManager *DeviceManager
	configAPI     *ConfigAPIServer
	logger        zerolog.Logger
	running       bool
	mutex         sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	debug         bool
	testMode      bool
}

// NewDaemon loads configPath and wires the device manager and API
func NewDaemon(configPath string, debug, testMode bool) (*Daemon, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	opts := []magnetar.Option{
		magnetar.WithDebug(debug),
		magnetar.WithTestMode(testMode),
	}

	daemon := &Daemon{
		config:     config,
		configPath: configPath,
		logger:     logger.GetLogger("hub"),
		ctx:        ctx,
		cancel:     cancel,
		debug:      debug,
		testMode:   testMode,
	}

	daemon.deviceManager = NewDeviceManager(config, opts...)
	daemon.configAPI = NewConfigAPIServer(config, daemon.deviceManager, opts...)

	return daemon, nil
}

// Start initializes devices, serves the API and blocks until a signal
// arrives or Stop is called
func (d *Daemon) Start() error {
	d.mutex.Lock()
	if d.running {
		d.mutex.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.mutex.Unlock()

	d.logger.Info().
		Bool("debug", d.debug).
		Bool("test_mode", d.testMode).
		Str("config_path", d.configPath).
		Msg("Starting Magnetar hub daemon")

	if err := d.deviceManager.Initialize(); err != nil {
		d.markStopped()
		return fmt.Errorf("failed to initialize devices: %w", err)
	}

	if err := d.configAPI.Start(); err != nil {
		d.markStopped()
		return fmt.Errorf("failed to start hub API: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	d.logger.Info().
		Int("device_count", d.deviceManager.GetDeviceCount()).
		Str("listen", d.config.ListenAddress()).
		Msg("Hub daemon started successfully")

	select {
	case sig := <-sigChan:
		d.logger.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
	case <-d.ctx.Done():
		d.logger.Info().Msg("Context cancelled")
	}

	return d.shutdown()
}

// Stop asks a running daemon to shut down
func (d *Daemon) Stop() {
	d.cancel()
}

func (d *Daemon) shutdown() error {
	d.logger.Info().Msg("Stopping hub daemon")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := d.configAPI.Stop(ctx); err != nil {
		d.logger.Error().Err(err).Msg("Error stopping hub API")
	}

	d.deviceManager.Shutdown()
	d.markStopped()

	d.logger.Info().Msg("Hub daemon stopped")
	return nil
}

func (d *Daemon) markStopped() {
	d.mutex.Lock()
	d.running = false
	d.mutex.Unlock()
}

// IsRunning returns whether the daemon is currently running
func (d *Daemon) IsRunning() bool {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return d.running
}

// GetStatus returns the current status of the daemon
func (d *Daemon) GetStatus() map[string]interface{} {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return map[string]interface{}{
		"running":      d.running,
		"debug":        d.debug,
		"test_mode":    d.testMode,
		"device_count": d.deviceManager.GetDeviceCount(),
		"devices":      d.deviceManager.GetAllDeviceInfo(),
		"nonce_cache":  d.deviceManager.GetNonceStats(),
	}
}

// ProcessDeviceAction provides external access to device action processing
func (d *Daemon) ProcessDeviceAction(ctx context.Context, deviceID string, actionJSON []byte) (*device.ActionResponse, error) {
	return d.deviceManager.ProcessDeviceAction(ctx, deviceID, actionJSON)
}
