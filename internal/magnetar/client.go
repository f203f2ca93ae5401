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
	"fmt"

	"github.com/rs/zerolog"
)

// MagnetarClient sends command batches to one Magnetar player. It holds only
// the connection parameters; every Execute opens and closes its own session,
// so a client may be shared, but callers must serialize batches that target
// the same device.
type MagnetarClient struct {
	params  ConnectionParameters
	options *Options
	logger  zerolog.Logger
}

// NewMagnetarClient creates a new client instance
func NewMagnetarClient(params ConnectionParameters, opts ...Option) *MagnetarClient {
	options := NewOptions(opts...)

	return &MagnetarClient{
		params:  params,
		options: options,
		logger:  *options.Logger,
	}
}

// Parameters returns the connection parameters the client was created with
func (c *MagnetarClient) Parameters() ConnectionParameters {
	return c.params
}

// Execute runs one batch: open a session, send each code with pacing, close.
// The result has exactly len(seq) entries, index-aligned with seq.
func (c *MagnetarClient) Execute(ctx context.Context, seq Sequence) ([]string, error) {
	seq = seq.Clone()
	if err := seq.Validate(); err != nil {
		return nil, err
	}

	session, err := OpenSession(ctx, c.params, c.options)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("address", c.params.URL()).
			Msg("Failed to open session")
		return nil, err
	}
	defer session.Close()

	if c.options.Debug {
		c.logger.Debug().
			Str("address", c.params.URL()).
			Strs("codes", seq.Strings()).
			Msg("Sending command batch")
	}

	responses, err := session.Run(seq)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("address", c.params.URL()).
			Msg("Command batch failed")
		return nil, err
	}

	if len(responses) != len(seq) {
		return nil, fmt.Errorf("expected %d responses, got %d", len(seq), len(responses))
	}

	c.logger.Debug().
		Int("commands", len(seq)).
		Int("acks", CountAcks(responses)).
		Msg("Command batch completed")

	return responses, nil
}

// Pair performs the setup-time connectivity check: a single power-on command
// whose response must be exactly the acknowledgement literal.
func Pair(ctx context.Context, client *MagnetarClient) error {
	responses, err := client.Execute(ctx, Sequence{PowerOn})
	if err != nil {
		return fmt.Errorf("pairing probe failed: %w", err)
	}

	if !IsAck(responses[0]) {
		client.logger.Warn().
			Str("address", client.params.URL()).
			Str("response", describeLine(responses[0])).
			Msg("Device did not acknowledge pairing probe")
		return &AckMismatchError{Response: responses[0]}
	}

	client.logger.Info().
		Str("address", client.params.URL()).
		Msg("Device paired")
	return nil
}
