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

package cli

import (
	"errors"
	"fmt"
	"os"

	"magnetar/internal/hub"
)

// ConfigManager handles hub configuration file operations
type ConfigManager struct {
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(configPath string) *ConfigManager {
	return &ConfigManager{
		configPath: configPath,
	}
}

// LoadConfig loads the hub configuration, writing a default one first if the
// file does not exist yet
func (cm *ConfigManager) LoadConfig() (*hub.Config, error) {
	if _, err := os.Stat(cm.configPath); errors.Is(err, os.ErrNotExist) {
		defaultConfig := hub.NewDefaultConfig()
		if err := cm.SaveConfig(defaultConfig); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return defaultConfig, nil
	}

	config, err := hub.LoadConfig(cm.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return config, nil
}

// SaveConfig saves the hub configuration
func (cm *ConfigManager) SaveConfig(config *hub.Config) error {
	if err := hub.SaveConfig(config, cm.configPath); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// AddDevice adds a new device to the configuration
func (cm *ConfigManager) AddDevice(device hub.DeviceConfig) error {
	config, err := cm.LoadConfig()
	if err != nil {
		return err
	}

	for _, existingDevice := range config.Devices {
		if existingDevice.ID == device.ID {
			return fmt.Errorf("device with ID '%s' already exists", device.ID)
		}
	}

	config.Devices = append(config.Devices, device)
	if err := config.Validate(); err != nil {
		return err
	}

	return cm.SaveConfig(config)
}

// UpdateDevice replaces an existing device, keeping its ID
func (cm *ConfigManager) UpdateDevice(deviceID string, updatedDevice hub.DeviceConfig) error {
	config, err := cm.LoadConfig()
	if err != nil {
		return err
	}

	for i, device := range config.Devices {
		if device.ID == deviceID {
			updatedDevice.ID = deviceID
			config.Devices[i] = updatedDevice
			if err := config.Validate(); err != nil {
				return err
			}
			return cm.SaveConfig(config)
		}
	}

	return fmt.Errorf("device with ID '%s' not found", deviceID)
}

// SavePairedDevice stores the parameters confirmed by pairing and returns the
// ID they were saved under. A missing config file is created holding only
// this device. A player already configured at the same address keeps its
// entry and ID, so one player never appears twice.
func (cm *ConfigManager) SavePairedDevice(device hub.DeviceConfig) (string, error) {
	if _, err := os.Stat(cm.configPath); errors.Is(err, os.ErrNotExist) {
		config := hub.NewDefaultConfig()
		config.Devices = []hub.DeviceConfig{device}
		if err := config.Validate(); err != nil {
			return "", err
		}
		return device.ID, cm.SaveConfig(config)
	}

	existing, err := cm.FindDeviceByAddress(device.Parameters().Address())
	if err != nil {
		return "", err
	}
	if existing != nil {
		if device.Name == "" {
			device.Name = existing.Name
		}
		return existing.ID, cm.UpdateDevice(existing.ID, device)
	}

	if cm.DeviceExists(device.ID) {
		return device.ID, cm.UpdateDevice(device.ID, device)
	}
	return device.ID, cm.AddDevice(device)
}

// FindDeviceByAddress returns the device configured at address, or nil
func (cm *ConfigManager) FindDeviceByAddress(address string) (*hub.DeviceConfig, error) {
	devices, err := cm.ListDevices()
	if err != nil {
		return nil, err
	}

	for _, device := range devices {
		if device.Parameters().Address() == address {
			return &device, nil
		}
	}
	return nil, nil
}

// RemoveDevice removes a device from the configuration. The last device
// cannot be removed since a hub needs at least one.
func (cm *ConfigManager) RemoveDevice(deviceID string) error {
	config, err := cm.LoadConfig()
	if err != nil {
		return err
	}

	for i, device := range config.Devices {
		if device.ID == deviceID {
			config.Devices = append(config.Devices[:i], config.Devices[i+1:]...)
			if err := config.Validate(); err != nil {
				return fmt.Errorf("cannot remove device '%s': %w", deviceID, err)
			}
			return cm.SaveConfig(config)
		}
	}

	return fmt.Errorf("device with ID '%s' not found", deviceID)
}

// GetDevice gets a specific device from the configuration
func (cm *ConfigManager) GetDevice(deviceID string) (*hub.DeviceConfig, error) {
	config, err := cm.LoadConfig()
	if err != nil {
		return nil, err
	}

	device, err := config.GetDevice(deviceID)
	if err != nil {
		return nil, fmt.Errorf("device with ID '%s' not found", deviceID)
	}
	return device, nil
}

// ListDevices returns all devices from the configuration
func (cm *ConfigManager) ListDevices() ([]hub.DeviceConfig, error) {
	config, err := cm.LoadConfig()
	if err != nil {
		return nil, err
	}

	return config.Devices, nil
}

// DeviceExists checks if a device with the given ID exists
func (cm *ConfigManager) DeviceExists(deviceID string) bool {
	_, err := cm.GetDevice(deviceID)
	return err == nil
}

// GetConfigPath returns the configuration file path
func (cm *ConfigManager) GetConfigPath() string {
	return cm.configPath
}

// BackupConfig writes the current configuration next to the original
func (cm *ConfigManager) BackupConfig() error {
	config, err := cm.LoadConfig()
	if err != nil {
		return err
	}

	return hub.SaveConfig(config, cm.configPath+".backup")
}

// RestoreFromBackup restores configuration from backup
func (cm *ConfigManager) RestoreFromBackup() error {
	backupPath := cm.configPath + ".backup"

	if _, err := os.Stat(backupPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("backup file does not exist: %s", backupPath)
	}

	config, err := hub.LoadConfig(backupPath)
	if err != nil {
		return fmt.Errorf("failed to load backup: %w", err)
	}

	return cm.SaveConfig(config)
}
