// Package server owns the bridge's listening socket and its lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/xvzc/printbridge/internal/bridge"
	"github.com/xvzc/printbridge/internal/netutil"
)

var (
	ErrAlreadyRunning = errors.New("listener already running")
	ErrBind           = errors.New("failed to bind")
)

type ListenerOptions struct {
	// Host to bind; empty or unspecified binds every interface.
	Host string

	// ReadTimeout bounds reading an inbound request. Zero means none.
	ReadTimeout time.Duration

	// OutboundIP discovers the LAN address used in ShareableURL.
	// Defaults to netutil.OutboundIP.
	OutboundIP func() (net.IP, error)
}

type Listener struct {
	logger     zerolog.Logger
	dispatcher Dispatcher
	opts       ListenerOptions

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex

	mu    sync.RWMutex
	state State
	srv   *http.Server
	done  chan struct{}
}

func NewListener(
	logger zerolog.Logger,
	dispatcher Dispatcher,
	opts ListenerOptions,
) *Listener {
	if opts.OutboundIP == nil {
		opts.OutboundIP = netutil.OutboundIP
	}

	return &Listener{
		logger:     logger,
		dispatcher: dispatcher,
		opts:       opts,
	}
}

// Start binds the configured host on port (0 picks a free one) and serves
// each connection on its own goroutine. Bind failures wrap ErrBind and
// leave the Listener stopped.
func (l *Listener) Start(port int) (State, error) {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	if l.State().Running {
		return l.State(), ErrAlreadyRunning
	}

	l.setPhase(PhaseStarting)

	addr := net.JoinHostPort(l.opts.Host, strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		l.setState(State{Phase: PhaseStopped}, nil, nil)
		return State{}, fmt.Errorf("%w on port %d: %w", ErrBind, port, err)
	}

	srv := &http.Server{
		Handler:     newEngine(l.logger, l.dispatcher),
		ReadTimeout: l.opts.ReadTimeout,
		ErrorLog:    log.New(l.logger, "", 0),

		// "OPTIONS *" must reach the router for its CORS preflight reply.
		DisableGeneralOptionsHandler: true,
	}

	state := State{
		Addr:    ln.Addr().String(),
		Port:    ln.Addr().(*net.TCPAddr).Port,
		Running: true,
		Phase:   PhaseRunning,
	}

	done := make(chan struct{})
	l.setState(state, srv, done)

	go l.serve(srv, ln, done)

	l.logger.Info().Msgf("listening on %s", state.Addr)

	return state, nil
}

func (l *Listener) serve(srv *http.Server, ln net.Listener, done chan struct{}) {
	defer close(done)

	err := srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return
	}

	l.logger.Error().Err(err).Msg("serve loop exited unexpectedly")

	l.mu.Lock()
	if l.srv == srv {
		l.state = State{Phase: PhaseStopped}
	}
	l.mu.Unlock()
}

// Stop stops accepting connections and waits for in-flight requests until
// ctx expires, after which remaining connections are closed. Stopping a
// stopped Listener is a no-op.
func (l *Listener) Stop(ctx context.Context) error {
	l.lifecycle.Lock()
	defer l.lifecycle.Unlock()

	l.mu.Lock()
	srv, done := l.srv, l.done
	if srv == nil {
		l.mu.Unlock()
		return nil
	}
	l.state.Running = false
	l.state.Phase = PhaseStopping
	l.mu.Unlock()

	err := srv.Shutdown(ctx)
	if err != nil {
		err = errors.Join(err, srv.Close())
	}

	<-done

	l.setState(State{Phase: PhaseStopped}, nil, nil)
	l.logger.Info().Msg("stopped")

	return err
}

func (l *Listener) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.state
}

// ShareableURL is the address other LAN hosts should POST jobs to. When
// the bound host is a wildcard the outbound address is discovered, falling
// back to "localhost". ok is false while the Listener is not running.
func (l *Listener) ShareableURL() (string, bool) {
	state := l.State()
	if !state.Running {
		return "", false
	}

	host := l.opts.Host
	if netutil.IsWildcardHost(host) {
		host = "localhost"

		ip, err := l.opts.OutboundIP()
		if err != nil {
			l.logger.Debug().Err(err).Msg("outbound address unknown; using localhost")
		} else {
			host = ip.String()
		}
	}

	return fmt.Sprintf(
		"http://%s%s",
		net.JoinHostPort(host, strconv.Itoa(state.Port)),
		bridge.PathPrint,
	), true
}

func (l *Listener) setPhase(p Phase) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.Phase = p
}

func (l *Listener) setState(s State, srv *http.Server, done chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.state = s
	l.srv = srv
	l.done = done
}
