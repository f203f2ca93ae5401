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
	"fmt"
	"net"
	"strconv"
)

// CommandCode is a 3-letter ASCII token identifying one device action
type CommandCode string

// Sequence is an ordered list of command codes executed as one batch
type Sequence []CommandCode

// Clone returns a copy of the sequence that shares no storage with s
func (s Sequence) Clone() Sequence {
	if s == nil {
		return nil
	}
	out := make(Sequence, len(s))
	copy(out, s)
	return out
}

// Validate checks that the sequence is non-empty and holds only catalog codes
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return ErrEmptySequence
	}
	for i, code := range s {
		if !code.Valid() {
			return &InvalidCodeError{Index: i, Code: string(code)}
		}
	}
	return nil
}

// Strings returns the codes as plain strings
func (s Sequence) Strings() []string {
	out := make([]string, len(s))
	for i, code := range s {
		out[i] = string(code)
	}
	return out
}

// ConnectionParameters describe how to reach the device. They are set once at
// configuration time and shared read-only by every command batch.
type ConnectionParameters struct {
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	BaudRate int    `json:"baud_rate" yaml:"baud_rate"`
	// Device is a local serial port path. When set, Host and Port are ignored.
	Device string `json:"device,omitempty" yaml:"device,omitempty"`
}

// Address returns host:port for socket transports or the device path
func (p ConnectionParameters) Address() string {
	if p.Device != "" {
		return p.Device
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// URL returns the serial URL form of the parameters
func (p ConnectionParameters) URL() string {
	if p.Device != "" {
		return "serial://" + p.Device
	}
	return "socket://" + p.Address()
}

// Validate checks the parameters are usable for opening a session
func (p ConnectionParameters) Validate() error {
	if p.BaudRate <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", p.BaudRate)
	}
	if p.Device != "" {
		return nil
	}
	if p.Host == "" {
		return fmt.Errorf("host is required")
	}
	if p.Port < 1 || p.Port > 65535 {
		return fmt.Errorf("port must be in range [1, 65535], got %d", p.Port)
	}
	return nil
}

// Action is one entry of the catalog: a stable key, a label and its codes
type Action struct {
	Key      string   `json:"key"`
	Name     string   `json:"name"`
	Sequence Sequence `json:"sequence"`
}
