package magnetar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"go.bug.st/serial"
)

// Port is a serial line: the RS-232 bridge reached over TCP or a local tty.
// Read returns (0, nil) once the read timeout elapses without data.
type Port interface {
	io.ReadWriteCloser

	// SetReadTimeout bounds every subsequent Read call
	SetReadTimeout(t time.Duration) error
}

// Dialer opens a Port for a set of connection parameters
type Dialer interface {
	Dial(ctx context.Context, params ConnectionParameters) (Port, error)
}

// DialerFunc adapts a function to the Dialer interface
type DialerFunc func(ctx context.Context, params ConnectionParameters) (Port, error)

// Dial calls f(ctx, params)
func (f DialerFunc) Dial(ctx context.Context, params ConnectionParameters) (Port, error) {
	return f(ctx, params)
}

// DefaultDialer picks the serial dialer when a device path is configured and
// the socket dialer otherwise
type DefaultDialer struct {
	Socket SocketDialer
	Serial SerialDialer
}

// Dial implements Dialer
func (d DefaultDialer) Dial(ctx context.Context, params ConnectionParameters) (Port, error) {
	if params.Device != "" {
		return d.Serial.Dial(ctx, params)
	}
	return d.Socket.Dial(ctx, params)
}

// SocketDialer reaches the device through a serial-over-TCP bridge. The bridge
// owns the line settings, so baud rate and framing are not negotiated here.
type SocketDialer struct {
	Timeout      time.Duration
	WriteTimeout time.Duration
}

// Dial implements Dialer
func (d SocketDialer) Dial(ctx context.Context, params ConnectionParameters) (Port, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = ConnectTimeout
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", params.Address())
	if err != nil {
		return nil, err
	}

	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = ConnectTimeout
	}

	return &socketPort{conn: conn, writeTimeout: writeTimeout}, nil
}

// socketPort gives a TCP connection the read-timeout semantics of a serial port
type socketPort struct {
	conn         net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (p *socketPort) SetReadTimeout(t time.Duration) error {
	p.readTimeout = t
	return nil
}

func (p *socketPort) Read(b []byte) (int, error) {
	if p.readTimeout > 0 {
		if err := p.conn.SetReadDeadline(time.Now().Add(p.readTimeout)); err != nil {
			return 0, err
		}
	}

	n, err := p.conn.Read(b)
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return n, nil
	}
	return n, err
}

func (p *socketPort) Write(b []byte) (int, error) {
	if p.writeTimeout > 0 {
		if err := p.conn.SetWriteDeadline(time.Now().Add(p.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return p.conn.Write(b)
}

func (p *socketPort) Close() error {
	return p.conn.Close()
}

// SerialDialer opens a locally attached serial port with 8N1 framing
type SerialDialer struct{}

// Dial implements Dialer. The context is only checked before opening since
// opening a tty does not block on the network.
func (SerialDialer) Dial(ctx context.Context, params ConnectionParameters) (Port, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: params.BaudRate,
		DataBits: DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(params.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}
