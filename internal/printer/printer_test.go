package printer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xvzc/printbridge/internal/printjob"
)

// startFakePrinter accepts connections on loopback and sends everything
// each connection delivered on the returned channel.
func startFakePrinter(t *testing.T) (int, <-chan []byte) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan []byte, 8)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}

			go func(c net.Conn) {
				defer func() { _ = c.Close() }()
				b, _ := io.ReadAll(c)
				received <- b
			}(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, received
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	return port
}

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

func (f dialFunc) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return f(ctx, network, address)
}

type trackedConn struct {
	net.Conn
	closed *atomic.Int32
}

func (c trackedConn) Close() error {
	c.closed.Add(1)
	return c.Conn.Close()
}

func TestForwarder_Forward_Delivers(t *testing.T) {
	port, received := startFakePrinter(t)
	f := NewForwarder(zerolog.Nop(), nil)

	err := f.Forward(context.Background(), &printjob.Request{
		Host:    "127.0.0.1",
		Port:    port,
		Payload: []byte("hello"),
		Timeout: time.Second,
	})
	require.NoError(t, err)

	select {
	case b := <-received:
		assert.Equal(t, []byte("hello"), b)
	case <-time.After(2 * time.Second):
		t.Fatal("printer did not receive the payload")
	}
}

func TestForwarder_Forward_Failures(t *testing.T) {
	tcs := []struct {
		name     string
		dialer   func(t *testing.T) Dialer
		port     func(t *testing.T) int
		timeout  time.Duration
		wantKind printjob.Kind
		assert   func(t *testing.T, err error, took time.Duration)
	}{
		{
			name:     "connection refused",
			dialer:   func(t *testing.T) Dialer { return nil },
			port:     freePort,
			timeout:  time.Second,
			wantKind: printjob.KindConnection,
			assert: func(t *testing.T, err error, took time.Duration) {
				assert.Contains(t, err.Error(), "refused")
			},
		},
		{
			name: "connect exceeds timeout",
			dialer: func(t *testing.T) Dialer {
				return dialFunc(func(ctx context.Context, _, _ string) (net.Conn, error) {
					<-ctx.Done()
					return nil, ctx.Err()
				})
			},
			port:     func(t *testing.T) int { return 9100 },
			timeout:  150 * time.Millisecond,
			wantKind: printjob.KindTimeout,
			assert: func(t *testing.T, err error, took time.Duration) {
				assert.Contains(t, err.Error(), "within 150ms")
				assert.Less(t, took, time.Second)
			},
		},
		{
			name: "timeout is floored",
			dialer: func(t *testing.T) Dialer {
				return dialFunc(func(ctx context.Context, _, _ string) (net.Conn, error) {
					<-ctx.Done()
					return nil, ctx.Err()
				})
			},
			port:     func(t *testing.T) int { return 9100 },
			timeout:  time.Millisecond,
			wantKind: printjob.KindTimeout,
			assert: func(t *testing.T, err error, took time.Duration) {
				assert.GreaterOrEqual(t, took, 90*time.Millisecond)
			},
		},
		{
			name: "write exceeds timeout",
			dialer: func(t *testing.T) Dialer {
				return dialFunc(func(ctx context.Context, _, _ string) (net.Conn, error) {
					client, server := net.Pipe()
					t.Cleanup(func() { _ = server.Close() })
					return client, nil
				})
			},
			port:     func(t *testing.T) int { return 9100 },
			timeout:  150 * time.Millisecond,
			wantKind: printjob.KindTimeout,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			f := NewForwarder(zerolog.Nop(), tc.dialer(t))

			begin := time.Now()
			err := f.Forward(context.Background(), &printjob.Request{
				Host:    "127.0.0.1",
				Port:    tc.port(t),
				Payload: []byte("hello"),
				Timeout: tc.timeout,
			})
			took := time.Since(begin)

			require.Error(t, err)
			assert.Equal(t, tc.wantKind, printjob.KindOf(err))
			if tc.assert != nil {
				tc.assert(t, err, took)
			}
		})
	}
}

func TestForwarder_Forward_LogsRefusedReason(t *testing.T) {
	var buf bytes.Buffer
	f := NewForwarder(zerolog.New(&buf).Level(zerolog.DebugLevel), nil)

	err := f.Forward(context.Background(), &printjob.Request{
		Host:    "127.0.0.1",
		Port:    freePort(t),
		Payload: []byte("hello"),
		Timeout: time.Second,
	})
	require.Error(t, err)
	assert.Equal(t, printjob.KindConnection, printjob.KindOf(err))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "dial failed", line["message"])
	assert.Equal(t, "refused", line["reason"])
}

func TestReason(t *testing.T) {
	opErr := func(op string, errno syscall.Errno) error {
		return &net.OpError{
			Op:  op,
			Net: "tcp",
			Err: os.NewSyscallError(op, errno),
		}
	}

	tcs := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "refused",
			err:  opErr("dial", syscall.ECONNREFUSED),
			want: "refused",
		},
		{
			name: "reset",
			err:  opErr("write", syscall.ECONNRESET),
			want: "reset",
		},
		{
			name: "host unreachable",
			err:  opErr("dial", syscall.EHOSTUNREACH),
			want: "unreachable",
		},
		{
			name: "network unreachable",
			err:  opErr("dial", syscall.ENETUNREACH),
			want: "unreachable",
		},
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: "timeout",
		},
		{
			name: "unrecognized",
			err:  errors.New("broken pipe"),
			want: "",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, reason(tc.err))
		})
	}
}

func TestForwarder_Forward_OneConnectionPerJobAlwaysClosed(t *testing.T) {
	var dials, closes atomic.Int32

	f := NewForwarder(zerolog.Nop(), dialFunc(
		func(ctx context.Context, _, address string) (net.Conn, error) {
			dials.Add(1)
			assert.Equal(t, "10.0.0.5:"+strconv.Itoa(9100), address)

			client, server := net.Pipe()
			go func() {
				_, _ = io.Copy(io.Discard, server)
				_ = server.Close()
			}()

			return trackedConn{Conn: client, closed: &closes}, nil
		},
	))

	req := &printjob.Request{
		Host:    "10.0.0.5",
		Port:    9100,
		Payload: []byte{0x1B, 0x40},
		Timeout: time.Second,
	}

	require.NoError(t, f.Forward(context.Background(), req))
	require.NoError(t, f.Forward(context.Background(), req))

	assert.Equal(t, int32(2), dials.Load())
	assert.Equal(t, int32(2), closes.Load())
}
