// Package printer delivers raw job bytes to a network printer over TCP.
package printer

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	"github.com/xvzc/printbridge/internal/logging"
	"github.com/xvzc/printbridge/internal/netutil"
	"github.com/xvzc/printbridge/internal/printjob"
	"github.com/xvzc/printbridge/internal/session"
)

// Dialer opens the outbound connection. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

type Forwarder struct {
	logger zerolog.Logger
	dialer Dialer
}

func NewForwarder(logger zerolog.Logger, dialer Dialer) *Forwarder {
	if dialer == nil {
		dialer = &net.Dialer{}
	}

	return &Forwarder{
		logger: logger,
		dialer: dialer,
	}
}

// Forward opens one new connection to req's printer, writes the whole
// payload and closes it. The job timeout (floored at printjob.MinTimeout)
// is a single deadline covering both connect and write. Failures are
// *printjob.Error values of KindTimeout or KindConnection; nothing is
// retried.
func (f *Forwarder) Forward(ctx context.Context, req *printjob.Request) error {
	addr := req.Addr()
	ctx = session.WithPrinter(ctx, addr)
	logger := logging.WithLocalScope(ctx, f.logger, "forward")

	timeout := max(req.Timeout, printjob.MinTimeout)
	deadline := time.Now().Add(timeout)

	dialCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	begin := time.Now()
	conn, err := f.dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		logger.Debug().Err(err).Str("reason", reason(err)).Msg("dial failed")
		return classify(err, addr, timeout)
	}
	defer netutil.CloseConns(conn)

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return classify(err, addr, timeout)
	}

	n, err := netutil.WriteFull(conn, req.Payload)
	if err != nil {
		logger.Debug().
			Err(err).
			Str("reason", reason(err)).
			Int("written", n).
			Msg("write failed")
		return classify(err, addr, timeout)
	}

	logger.Debug().
		Int("len", n).
		Str("took", fmt.Sprintf("%dms", time.Since(begin).Milliseconds())).
		Msg("payload delivered")

	return nil
}

func classify(err error, addr string, timeout time.Duration) error {
	if netutil.IsTimeout(err) {
		return &printjob.Error{
			Kind: printjob.KindTimeout,
			Detail: fmt.Sprintf(
				"Timeout: %s did not accept the job within %dms",
				addr,
				timeout.Milliseconds(),
			),
			Err: err,
		}
	}

	return &printjob.Error{
		Kind:   printjob.KindConnection,
		Detail: err.Error(),
		Err:    err,
	}
}

// reason names the socket failure for logs; empty when unrecognized.
func reason(err error) string {
	switch {
	case netutil.IsTimeout(err):
		return "timeout"
	case netutil.IsConnectionRefused(err):
		return "refused"
	case netutil.IsConnectionResetByPeer(err):
		return "reset"
	case netutil.IsUnreachable(err):
		return "unreachable"
	default:
		return ""
	}
}
