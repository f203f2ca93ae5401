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
	"time"

	"github.com/rs/zerolog"
)

// maxLineLength caps how much of one response line is kept
const maxLineLength = 256

// Session owns one open port for the duration of a single command batch.
// It is not safe for concurrent use and must not be reused after Close.
type Session struct {
	port   Port
	params ConnectionParameters
	sleep  func(time.Duration)
	logger zerolog.Logger
}

// OpenSession dials the device and applies the fixed read timeout
func OpenSession(ctx context.Context, params ConnectionParameters, opts *Options) (*Session, error) {
	if opts == nil {
		opts = NewOptions()
	}

	port, err := opts.Dialer.Dial(ctx, params)
	if err != nil {
		return nil, &ConnectionError{Address: params.URL(), Cause: err}
	}

	if err := port.SetReadTimeout(ReadTimeout); err != nil {
		port.Close()
		return nil, &ConnectionError{Address: params.URL(), Cause: err}
	}

	return &Session{
		port:   port,
		params: params,
		sleep:  opts.Sleep,
		logger: opts.Logger.With().Str("address", params.URL()).Logger(),
	}, nil
}

// Run sends every code in order and collects one response line per code.
// A read that times out yields an empty line; any other I/O error aborts the
// batch with a TransportError.
func (s *Session) Run(seq Sequence) ([]string, error) {
	responses := make([]string, 0, len(seq))

	for i, code := range seq {
		if _, err := s.port.Write(Encode(code)); err != nil {
			return nil, &TransportError{Op: "write", Index: i, Code: code, Cause: err}
		}

		line, err := s.readLine()
		if err != nil {
			return nil, &TransportError{Op: "read", Index: i, Code: code, Cause: err}
		}
		responses = append(responses, line)

		s.logger.Debug().
			Int("index", i).
			Str("code", string(code)).
			Str("response", describeLine(line)).
			Msg("Command sent")

		s.sleep(CommandPacing)
	}

	return responses, nil
}

// readLine reads up to and including '\n'. A read timeout ends the line with
// whatever arrived so far. Bytes past maxLineLength are read and dropped so
// the rest of an overlong line never lands in the next command's response.
func (s *Session) readLine() (string, error) {
	var line []byte
	buf := make([]byte, 1)

	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			if len(line) < maxLineLength {
				line = append(line, buf[0])
			}
			if buf[0] == '\n' {
				break
			}
		}
		if err != nil {
			return "", err
		}
		if n == 0 {
			break
		}
	}

	return string(line), nil
}

// Close releases the port
func (s *Session) Close() error {
	return s.port.Close()
}
