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
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"magnetar/internal/magnetar"
)

// DefaultListenAddress is where the hub action API listens unless configured
const DefaultListenAddress = ":8081"

// Config represents the hub configuration structure
type Config struct {
	Hub     HubConfig      `yaml:"hub"`
	Devices []DeviceConfig `yaml:"devices"`
}

// HubConfig contains hub identity and API settings
type HubConfig struct {
	ID     string `yaml:"id"`
	Listen string `yaml:"listen"`
}

// DeviceConfig represents a single Magnetar player. Host/port/baud are the
// values confirmed by pairing and are never changed while the hub runs.
type DeviceConfig struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name,omitempty" json:"name,omitempty"`
	Host     string `yaml:"host,omitempty" json:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" json:"port,omitempty"`
	BaudRate int    `yaml:"baud_rate" json:"baud_rate"`
	Device   string `yaml:"device,omitempty" json:"device,omitempty"`
}

// Parameters returns the connection parameters for this device
func (d DeviceConfig) Parameters() magnetar.ConnectionParameters {
	return magnetar.ConnectionParameters{
		Host:     d.Host,
		Port:     d.Port,
		BaudRate: d.BaudRate,
		Device:   d.Device,
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Hub.ID == "" {
		return fmt.Errorf("hub.id is required")
	}

	if len(c.Devices) == 0 {
		return fmt.Errorf("at least one device must be configured")
	}

	deviceIDs := make(map[string]bool)
	for i, device := range c.Devices {
		if device.ID == "" {
			return fmt.Errorf("device[%d].id is required", i)
		}
		if deviceIDs[device.ID] {
			return fmt.Errorf("duplicate device ID: %s", device.ID)
		}
		deviceIDs[device.ID] = true

		if device.Host != "" && device.Device != "" {
			return fmt.Errorf("device[%d]: host and device are mutually exclusive", i)
		}
		if err := device.Parameters().Validate(); err != nil {
			return fmt.Errorf("device[%d]: %w", i, err)
		}
	}

	return nil
}

// ListenAddress returns the configured API address or the default
func (c *Config) ListenAddress() string {
	if c.Hub.Listen != "" {
		return c.Hub.Listen
	}
	return DefaultListenAddress
}

// GetDevice returns a device configuration by ID
func (c *Config) GetDevice(id string) (*DeviceConfig, error) {
	for _, device := range c.Devices {
		if device.ID == id {
			return &device, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", id)
}

// Save saves the configuration to a YAML file
func (c *Config) Save(filepath string) error {
	return SaveConfig(c, filepath)
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filepath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// NewDefaultDevice returns a device entry pre-filled with the pairing defaults
func NewDefaultDevice(id string) DeviceConfig {
	return DeviceConfig{
		ID:       id,
		Name:     "Magnetar",
		Host:     magnetar.DefaultHost,
		Port:     magnetar.DefaultPort,
		BaudRate: magnetar.DefaultBaudRate,
	}
}

// NewDefaultConfig creates a default configuration template
func NewDefaultConfig() *Config {
	return &Config{
		Hub: HubConfig{
			ID:     uuid.New().String(),
			Listen: DefaultListenAddress,
		},
		Devices: []DeviceConfig{
			NewDefaultDevice("living_room_player"),
		},
	}
}
