package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xvzc/printbridge/internal/printjob"
	"github.com/xvzc/printbridge/internal/ptr"
)

const (
	DefaultListenAddr      = "0.0.0.0:5179"
	DefaultShutdownTimeout = 5 * time.Second
	DefaultMDNSInstance    = "printbridge"
	DefaultEventsHistory   = 80
)

type merger[T any] interface {
	Clone() T
	Merge(overrides T) T
}

var _ merger[*Config] = (*Config)(nil)

type Config struct {
	General   *GeneralOptions   `toml:"general"`
	Server    *ServerOptions    `toml:"server"`
	Printer   *PrinterOptions   `toml:"printer"`
	Events    *EventsOptions    `toml:"events"`
	Discovery *DiscoveryOptions `toml:"discovery"`
}

// NewConfig returns a Config with every option set to its default.
func NewConfig() *Config {
	return &Config{
		General: &GeneralOptions{
			LogLevel:  ptr.FromValue(zerolog.InfoLevel),
			LogFormat: ptr.FromValue(LogFormatConsole),
			Silent:    ptr.FromValue(false),
		},
		Server: &ServerOptions{
			ListenAddr:      MustParseTCPAddr(DefaultListenAddr),
			ReadTimeout:     ptr.FromValue(time.Duration(0)),
			ShutdownTimeout: ptr.FromValue(DefaultShutdownTimeout),
		},
		Printer: &PrinterOptions{
			DefaultPort:    ptr.FromValue(uint16(printjob.DefaultPort)),
			DefaultTimeout: ptr.FromValue(printjob.DefaultTimeout),
		},
		Events: &EventsOptions{
			ListenAddr: ptr.FromValue(""),
			History:    ptr.FromValue(DefaultEventsHistory),
		},
		Discovery: &DiscoveryOptions{
			MDNS:     ptr.FromValue(false),
			Instance: ptr.FromValue(DefaultMDNSInstance),
		},
	}
}

func (c *Config) UnmarshalTOML(data any) (err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("non-table type config")
	}

	c.General = findStructFrom[GeneralOptions](m, "general", &err)
	c.Server = findStructFrom[ServerOptions](m, "server", &err)
	c.Printer = findStructFrom[PrinterOptions](m, "printer", &err)
	c.Events = findStructFrom[EventsOptions](m, "events", &err)
	c.Discovery = findStructFrom[DiscoveryOptions](m, "discovery", &err)

	return err
}

func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}

	return &Config{
		General:   c.General.Clone(),
		Server:    c.Server.Clone(),
		Printer:   c.Printer.Clone(),
		Events:    c.Events.Clone(),
		Discovery: c.Discovery.Clone(),
	}
}

func (origin *Config) Merge(overrides *Config) *Config {
	if overrides == nil {
		return origin.Clone()
	}

	if origin == nil {
		return overrides.Clone()
	}

	return &Config{
		General:   origin.General.Merge(overrides.General),
		Server:    origin.Server.Merge(overrides.Server),
		Printer:   origin.Printer.Merge(overrides.Printer),
		Events:    origin.Events.Merge(overrides.Events),
		Discovery: origin.Discovery.Merge(overrides.Discovery),
	}
}

// ListenHostPort splits the server listen address for the Listener.
// Callers must pass a Config produced by NewConfig().Merge(...).
func (c *Config) ListenHostPort() (string, int) {
	addr := c.Server.ListenAddr
	return addr.IP.String(), addr.Port
}

// JobDefaults are applied to jobs that leave port or timeout out.
func (c *Config) JobDefaults() printjob.Defaults {
	return printjob.Defaults{
		Port:    int(ptr.ValueOr(c.Printer.DefaultPort, printjob.DefaultPort)),
		Timeout: ptr.ValueOr(c.Printer.DefaultTimeout, printjob.DefaultTimeout),
	}
}

func (c *Config) LogFormat() LogFormatType {
	return ptr.ValueOr(c.General.LogFormat, LogFormatConsole)
}

