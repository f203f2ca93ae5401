package magnetar_test

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"magnetar/internal/magnetar"
)

// fakePort answers the i-th write with replies[i]; a missing or empty reply
// behaves like a read timeout.
type fakePort struct {
	mu        sync.Mutex
	replies   []string
	writes    [][]byte
	pending   bytes.Buffer
	writeErr  error
	failWrite int // index of the write that fails, -1 for none
	readErr   error
	closed    bool
	timeout   time.Duration
}

func newFakePort(replies ...string) *fakePort {
	return &fakePort{replies: replies, failWrite: -1}
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.timeout = t
	return nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, errors.New("write on closed port")
	}
	if p.failWrite == len(p.writes) {
		return 0, p.writeErr
	}

	i := len(p.writes)
	p.writes = append(p.writes, append([]byte(nil), b...))
	if i < len(p.replies) {
		p.pending.WriteString(p.replies[i])
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.readErr != nil {
		return 0, p.readErr
	}
	if p.pending.Len() == 0 {
		return 0, nil
	}
	return p.pending.Read(b)
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) Writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.writes))
	for i, w := range p.writes {
		out[i] = string(w)
	}
	return out
}

func (p *fakePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// portDialer always returns the same port
func portDialer(port magnetar.Port) magnetar.Dialer {
	return magnetar.DialerFunc(func(ctx context.Context, params magnetar.ConnectionParameters) (magnetar.Port, error) {
		return port, nil
	})
}

// sleepRecorder collects requested pauses without sleeping
type sleepRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *sleepRecorder) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses = append(s.pauses, d)
}

func (s *sleepRecorder) Pauses() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.pauses...)
}

func testParams() magnetar.ConnectionParameters {
	return magnetar.ConnectionParameters{Host: "192.0.2.10", Port: 8102, BaudRate: 9600}
}

// fakeDevice is a TCP server speaking the line protocol. reply maps a
// received frame to the line sent back; an empty string sends nothing.
type fakeDevice struct {
	listener net.Listener
	reply    func(frame string) string

	mu     sync.Mutex
	frames []string
	wg     sync.WaitGroup
}

func startFakeDevice(t *testing.T, reply func(frame string) string) *fakeDevice {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d := &fakeDevice{listener: listener, reply: reply}
	d.wg.Add(1)
	go d.serve()

	t.Cleanup(func() {
		listener.Close()
		d.wg.Wait()
	})
	return d
}

func (d *fakeDevice) serve() {
	defer d.wg.Done()
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}
		d.wg.Add(1)
		go d.handle(conn)
	}
}

func (d *fakeDevice) handle(conn net.Conn) {
	defer d.wg.Done()
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		frame, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		d.mu.Lock()
		d.frames = append(d.frames, frame)
		d.mu.Unlock()

		if line := d.reply(frame); line != "" {
			if _, err := conn.Write([]byte(line)); err != nil {
				return
			}
		}
	}
}

func (d *fakeDevice) Frames() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.frames...)
}

func (d *fakeDevice) Params() magnetar.ConnectionParameters {
	addr := d.listener.Addr().(*net.TCPAddr)
	return magnetar.ConnectionParameters{Host: "127.0.0.1", Port: addr.Port, BaudRate: magnetar.DefaultBaudRate}
}

func alwaysAck(string) string { return magnetar.Ack }
