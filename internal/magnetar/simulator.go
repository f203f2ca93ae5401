package magnetar

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"
)

var errPortClosed = errors.New("port closed")

// SimulatedDialer hands out in-memory ports that answer every complete frame
// with Reply. An empty Reply simulates a device that never acknowledges.
type SimulatedDialer struct {
	Reply string

	mu      sync.Mutex
	written [][]byte
	opened  int
}

// NewSimulatedDialer returns a dialer for test mode
func NewSimulatedDialer(reply string) *SimulatedDialer {
	return &SimulatedDialer{Reply: reply}
}

// Dial implements Dialer
func (d *SimulatedDialer) Dial(ctx context.Context, params ConnectionParameters) (Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.opened++
	d.mu.Unlock()
	return &simulatedPort{dialer: d}, nil
}

// Frames returns every frame written through this dialer, in order
func (d *SimulatedDialer) Frames() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.written))
	copy(out, d.written)
	return out
}

// Sessions returns how many ports have been opened
func (d *SimulatedDialer) Sessions() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

func (d *SimulatedDialer) record(frame []byte) {
	d.mu.Lock()
	d.written = append(d.written, append([]byte(nil), frame...))
	d.mu.Unlock()
}

type simulatedPort struct {
	dialer  *SimulatedDialer
	pending bytes.Buffer
	partial []byte
	closed  bool
}

func (p *simulatedPort) SetReadTimeout(time.Duration) error {
	return nil
}

func (p *simulatedPort) Write(b []byte) (int, error) {
	if p.closed {
		return 0, errPortClosed
	}

	p.partial = append(p.partial, b...)
	for {
		i := bytes.Index(p.partial, []byte(FrameTerminator))
		if i < 0 {
			break
		}
		frame := p.partial[:i+len(FrameTerminator)]
		p.dialer.record(frame)
		p.pending.WriteString(p.dialer.Reply)
		p.partial = p.partial[i+len(FrameTerminator):]
	}
	return len(b), nil
}

// Read never blocks: an empty buffer behaves like an elapsed read timeout
func (p *simulatedPort) Read(b []byte) (int, error) {
	if p.closed {
		return 0, errPortClosed
	}
	if p.pending.Len() == 0 {
		return 0, nil
	}
	return p.pending.Read(b)
}

func (p *simulatedPort) Close() error {
	p.closed = true
	return nil
}
