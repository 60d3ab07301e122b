package netutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeCounter struct{ n int }

func (c *closeCounter) Close() error {
	c.n++
	return errors.New("ignored")
}

func TestCloseConns(t *testing.T) {
	a, b := &closeCounter{}, &closeCounter{}

	assert.NotPanics(t, func() { CloseConns(a, nil, b) })
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}

// chunkWriter accepts at most size bytes per call.
type chunkWriter struct {
	buf  bytes.Buffer
	size int
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	if len(p) > w.size {
		p = p[:w.size]
	}
	return w.buf.Write(p)
}

type stuckWriter struct{}

func (stuckWriter) Write(p []byte) (int, error) { return 0, nil }

func TestWriteFull(t *testing.T) {
	tcs := []struct {
		name    string
		w       io.Writer
		input   []byte
		wantN   int
		wantErr error
	}{
		{
			name:  "short writes are resumed",
			w:     &chunkWriter{size: 3},
			input: []byte("hello world"),
			wantN: 11,
		},
		{
			name:    "writer making no progress",
			w:       stuckWriter{},
			input:   []byte("x"),
			wantN:   0,
			wantErr: io.ErrShortWrite,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			n, err := WriteFull(tc.w, tc.input)
			assert.Equal(t, tc.wantN, n)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	cw := &chunkWriter{size: 4}
	_, err := WriteFull(cw, []byte("abcdefghij"))
	require.NoError(t, err)
	assert.Equal(t, "abcdefghij", cw.buf.String())
}

func TestErrorClassification(t *testing.T) {
	opErr := func(errno syscall.Errno) error {
		return &net.OpError{
			Op:  "dial",
			Net: "tcp",
			Err: &os.SyscallError{Syscall: "connect", Err: errno},
		}
	}

	tcs := []struct {
		name        string
		err         error
		timeout     bool
		refused     bool
		reset       bool
		unreachable bool
	}{
		{name: "nil", err: nil},
		{name: "context deadline", err: context.DeadlineExceeded, timeout: true},
		{
			name:    "wrapped socket deadline",
			err:     fmt.Errorf("write: %w", os.ErrDeadlineExceeded),
			timeout: true,
		},
		{name: "refused", err: opErr(syscall.ECONNREFUSED), refused: true},
		{name: "reset", err: opErr(syscall.ECONNRESET), reset: true},
		{name: "host unreachable", err: opErr(syscall.EHOSTUNREACH), unreachable: true},
		{name: "plain", err: errors.New("plain")},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.timeout, IsTimeout(tc.err))
			assert.Equal(t, tc.refused, IsConnectionRefused(tc.err))
			assert.Equal(t, tc.reset, IsConnectionResetByPeer(tc.err))
			assert.Equal(t, tc.unreachable, IsUnreachable(tc.err))
		})
	}
}

func TestIsWildcardHost(t *testing.T) {
	assert.True(t, IsWildcardHost(""))
	assert.True(t, IsWildcardHost("0.0.0.0"))
	assert.True(t, IsWildcardHost("::"))
	assert.False(t, IsWildcardHost("127.0.0.1"))
	assert.False(t, IsWildcardHost("printer.local"))
}

func TestOutboundIP(t *testing.T) {
	lan := net.ParseIP("192.168.1.20")
	routed := net.ParseIP("10.0.0.7")
	errNoGateway := errors.New("no gateway")

	tcs := []struct {
		name      string
		discover  func() (net.IP, error)
		probe     func(string) (net.IP, error)
		want      net.IP
		wantErrIs error
	}{
		{
			name:     "gateway interface wins",
			discover: func() (net.IP, error) { return lan, nil },
			probe:    func(string) (net.IP, error) { return routed, nil },
			want:     lan,
		},
		{
			name:     "falls back to route probe",
			discover: func() (net.IP, error) { return nil, errNoGateway },
			probe:    func(string) (net.IP, error) { return routed, nil },
			want:     routed,
		},
		{
			name:     "loopback gateway address is skipped",
			discover: func() (net.IP, error) { return net.ParseIP("127.0.0.1"), nil },
			probe:    func(string) (net.IP, error) { return routed, nil },
			want:     routed,
		},
		{
			name:     "every strategy fails",
			discover: func() (net.IP, error) { return nil, errNoGateway },
			probe: func(target string) (net.IP, error) {
				return nil, fmt.Errorf("dial %s: network is unreachable", target)
			},
			wantErrIs: errNoGateway,
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			origDiscover, origProbe := discoverInterface, probeRoute
			t.Cleanup(func() { discoverInterface, probeRoute = origDiscover, origProbe })
			discoverInterface, probeRoute = tc.discover, tc.probe

			ip, err := OutboundIP()
			if tc.wantErrIs != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.wantErrIs)
				assert.Nil(t, ip)
				return
			}

			require.NoError(t, err)
			assert.True(t, tc.want.Equal(ip))
		})
	}
}
