// Package service runs the bridge as an operating system service.
package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"time"

	"github.com/kardianos/service"
	"github.com/rs/zerolog"
)

const (
	Name        = "printbridge"
	DisplayName = "Print Bridge"
	Description = "Relays browser print jobs to raw TCP network printers."

	defaultStopTimeout = 30 * time.Second
)

// Actions lists the subcommands understood by Control.
var Actions = []string{"install", "uninstall", "start", "stop", "restart", "status", "run"}

// RunFunc runs the bridge until ctx is canceled.
type RunFunc func(ctx context.Context) error

// program implements service.Interface.
type program struct {
	logger      zerolog.Logger
	run         RunFunc
	stopTimeout time.Duration

	svcLogger service.Logger
	cancel    context.CancelFunc
	done      chan struct{}
	err       error
}

func (p *program) Start(s service.Service) error {
	if s != nil {
		p.svcLogger, _ = s.Logger(nil)
	}
	p.info("service starting")

	var ctx context.Context
	ctx, p.cancel = context.WithCancel(context.Background())
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		if err := p.run(ctx); err != nil {
			p.err = err
			p.logger.Error().Err(err).Msg("service run failed")
			if p.svcLogger != nil {
				_ = p.svcLogger.Error(err)
			}
		}
	}()

	return nil
}

func (p *program) Stop(s service.Service) error {
	p.info("service stop requested")

	if p.cancel == nil {
		return nil
	}
	p.cancel()

	select {
	case <-p.done:
		p.info("service stopped")
		return p.err
	case <-time.After(p.stopTimeout):
		p.logger.Warn().Msg("service stop timed out")
		if p.svcLogger != nil {
			_ = p.svcLogger.Warning("service stop timed out")
		}
		return fmt.Errorf("service did not stop within %s", p.stopTimeout)
	}
}

func (p *program) info(msg string) {
	p.logger.Info().Msg(msg)
	if p.svcLogger != nil {
		_ = p.svcLogger.Info(msg)
	}
}

// Config describes the installed service. args are the flags passed to
// "printbridge service ... run" when the service manager launches it.
func Config(args []string) *service.Config {
	var workingDir string
	switch runtime.GOOS {
	case "windows":
		workingDir = filepath.Join(os.Getenv("ProgramData"), "PrintBridge")
	case "darwin":
		workingDir = "/Library/Application Support/PrintBridge"
	default:
		workingDir = "/var/lib/printbridge"
	}

	return &service.Config{
		Name:             Name,
		DisplayName:      DisplayName,
		Description:      Description,
		WorkingDirectory: workingDir,
		Arguments:        slices.Concat([]string{"service"}, args, []string{"run"}),
		Option: service.KeyValue{
			// Windows
			"StartType":              "automatic",
			"OnFailure":              "restart",
			"OnFailureDelayDuration": "5s",

			// systemd
			"Restart":           "on-failure",
			"RestartSec":        5,
			"SuccessExitStatus": "0 SIGTERM",
			"KillSignal":        "SIGTERM",

			// launchd
			"RunAtLoad": true,
			"KeepAlive": true,
		},
	}
}

func New(logger zerolog.Logger, run RunFunc, args []string) (service.Service, error) {
	prg := &program{
		logger:      logger,
		run:         run,
		stopTimeout: defaultStopTimeout,
	}

	return service.New(prg, Config(args))
}

// Control performs action on s and returns a short human-readable result.
func Control(s service.Service, action string) (string, error) {
	if !slices.Contains(Actions, action) {
		return "", fmt.Errorf("unknown service action %q (valid: %v)", action, Actions)
	}

	switch action {
	case "run":
		return "", s.Run()
	case "status":
		st, err := s.Status()
		if err != nil {
			return "", err
		}
		return statusText(st), nil
	default:
		if err := service.Control(s, action); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s: %s done", Name, action), nil
	}
}

func statusText(st service.Status) string {
	switch st {
	case service.StatusRunning:
		return Name + " is running"
	case service.StatusStopped:
		return Name + " is stopped"
	default:
		return Name + " status is unknown"
	}
}
