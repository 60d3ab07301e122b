package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/xvzc/printbridge/internal/bridge"
	"github.com/xvzc/printbridge/internal/config"
	"github.com/xvzc/printbridge/internal/console"
	"github.com/xvzc/printbridge/internal/discovery"
	"github.com/xvzc/printbridge/internal/events"
	"github.com/xvzc/printbridge/internal/logging"
	"github.com/xvzc/printbridge/internal/printer"
	"github.com/xvzc/printbridge/internal/ptr"
	"github.com/xvzc/printbridge/internal/server"
	"github.com/xvzc/printbridge/internal/service"
	"golang.org/x/sync/errgroup"
)

// Version information set by linker flags during build.
var (
	version = "dev"
	commit  = "unknown"
	build   = "unknown"
)

func main() {
	cmd := config.CreateCommand(runApp, runService, version, commit, build)
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func runApp(ctx context.Context, configPath string, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(
		ctx,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGHUP,
	)
	defer stop()

	logger := createLogger(cfg)
	logging.WithScope(logger, "MAIN").Info().Msgf("starting printbridge %s", version)
	if configPath != "" {
		logging.WithScope(logger, "CONFIG").Info().Msgf("loaded %s", configPath)
	}

	a := createApp(logger, cfg)
	if _, err := a.start(); err != nil {
		return err
	}

	return a.run(ctx, os.Stdout)
}

func runService(
	_ context.Context,
	action string,
	args []string,
	run func(ctx context.Context) error,
) error {
	logger := logging.WithScope(
		logging.NewLogger(os.Stderr, zerolog.InfoLevel, false),
		"SERVICE",
	)

	s, err := service.New(logger, run, args)
	if err != nil {
		return err
	}

	msg, err := service.Control(s, action)
	if err != nil {
		return err
	}

	if msg != "" {
		pterm.Info.Println(msg)
	}

	return nil
}

func createLogger(cfg *config.Config) zerolog.Logger {
	return logging.NewLogger(
		os.Stderr,
		ptr.ValueOr(cfg.General.LogLevel, zerolog.InfoLevel),
		cfg.LogFormat() == config.LogFormatJSON,
	)
}

func createHub(logger zerolog.Logger, cfg *config.Config) *events.Hub {
	return events.NewHub(
		logging.WithScope(logger, "EVENTS"),
		ptr.ValueOr(cfg.Events.History, events.DefaultHistory),
	)
}

func createListener(
	logger zerolog.Logger,
	cfg *config.Config,
	notifier bridge.Notifier,
) *server.Listener {
	forwarder := printer.NewForwarder(logging.WithScope(logger, "PRINTER"), nil)

	router := bridge.NewRouter(
		logging.WithScope(logger, "BRIDGE"),
		forwarder,
		notifier,
		cfg.JobDefaults(),
	)

	host, _ := cfg.ListenHostPort()

	return server.NewListener(
		logging.WithScope(logger, "SERVER"),
		router,
		server.ListenerOptions{
			Host:        host,
			ReadTimeout: ptr.ValueOr(cfg.Server.ReadTimeout, 0),
		},
	)
}

func createAdvertiser(logger zerolog.Logger, cfg *config.Config) *discovery.Advertiser {
	if !ptr.ValueOr(cfg.Discovery.MDNS, false) {
		return nil
	}

	return discovery.NewAdvertiser(
		logging.WithScope(logger, "MDNS"),
		ptr.ValueOr(cfg.Discovery.Instance, config.DefaultMDNSInstance),
	)
}

// app ties the listener to its observers for a single run.
type app struct {
	base       zerolog.Logger
	logger     zerolog.Logger
	cfg        *config.Config
	hub        *events.Hub
	listener   *server.Listener
	advertiser *discovery.Advertiser
}

func createApp(logger zerolog.Logger, cfg *config.Config) *app {
	hub := createHub(logger, cfg)

	return &app{
		base:       logger,
		logger:     logging.WithScope(logger, "MAIN"),
		cfg:        cfg,
		hub:        hub,
		listener:   createListener(logger, cfg, hub),
		advertiser: createAdvertiser(logger, cfg),
	}
}

func (a *app) start() (server.State, error) {
	_, port := a.cfg.ListenHostPort()

	state, err := a.listener.Start(port)
	if err != nil {
		return state, err
	}

	a.hub.Notice(fmt.Sprintf("Server started on port %d", state.Port))

	if a.advertiser != nil {
		if err := a.advertiser.Announce(state.Port, version); err != nil {
			a.logger.Warn().Err(err).Msg("mdns announcement failed; continuing without it")
			a.advertiser = nil
		}
	}

	return state, nil
}

// run blocks until ctx is done or a background component fails, then
// shuts everything down.
func (a *app) run(ctx context.Context, out io.Writer) error {
	eg, ctx := errgroup.WithContext(ctx)

	if !ptr.ValueOr(a.cfg.General.Silent, false) {
		if err := console.PrintBanner(out, a.info()); err != nil {
			a.logger.Debug().Err(err).Msg("failed to render banner")
		}

		history, ch, cancel := a.hub.Subscribe(16)
		for _, e := range history {
			console.Print(out, e)
		}

		eg.Go(func() error {
			defer cancel()
			console.Run(ctx, out, ch)
			return nil
		})
	}

	if a.cfg.Events.Enabled() {
		srv := events.NewServer(
			logging.WithScope(a.base, "WS"),
			a.hub,
			ptr.ValueOr(a.cfg.Events.ListenAddr, ""),
		)
		eg.Go(func() error {
			return srv.ListenAndServe(ctx)
		})
	}

	eg.Go(func() error {
		<-ctx.Done()
		return nil
	})

	runErr := eg.Wait()

	return errors.Join(runErr, a.shutdown())
}

func (a *app) shutdown() error {
	timeout := ptr.ValueOr(a.cfg.Server.ShutdownTimeout, config.DefaultShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if a.advertiser != nil {
		a.advertiser.Withdraw()
	}

	err := a.listener.Stop(ctx)
	a.hub.Close()

	if err != nil {
		logging.ErrorUnwrapped(&a.logger, "shutdown", err)
		return fmt.Errorf("shutdown: %w", err)
	}

	a.logger.Info().Msg("bye")

	return nil
}

func (a *app) info() console.Info {
	state := a.listener.State()
	url, _ := a.listener.ShareableURL()

	info := console.Info{
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Addr:    state.Addr,
		URL:     url,
	}

	if a.cfg.Events.Enabled() {
		info.EventsAddr = ptr.ValueOr(a.cfg.Events.ListenAddr, "")
	}

	if a.advertiser != nil {
		info.MDNS = a.advertiser.Describe()
	}

	return info
}
