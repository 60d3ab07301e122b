package config

import (
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xvzc/printbridge/internal/ptr"
)

// ┌─────────────────┐
// │ GENERAL OPTIONS │
// └─────────────────┘
var _ merger[*GeneralOptions] = (*GeneralOptions)(nil)

type LogFormatType int

const (
	LogFormatConsole LogFormatType = iota
	LogFormatJSON
)

var (
	availableLogLevels  = []string{"trace", "debug", "info", "warn", "error"}
	availableLogFormats = []string{"console", "json"}
)

func (t LogFormatType) String() string {
	return availableLogFormats[t]
}

type GeneralOptions struct {
	LogLevel  *zerolog.Level `toml:"log-level"`
	LogFormat *LogFormatType `toml:"log-format"`
	Silent    *bool          `toml:"silent"`
}

func (o *GeneralOptions) UnmarshalTOML(data any) (err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("'general' must be table type")
	}

	o.Silent = findFrom(m, "silent", parseBoolFn(), &err)

	if p := findFrom(m, "log-level", parseStringFn(checkLogLevel), &err); isOk(p, err) {
		o.LogLevel = ptr.FromValue(MustParseLogLevel(*p))
	}

	if p := findFrom(m, "log-format", parseStringFn(checkLogFormat), &err); isOk(p, err) {
		o.LogFormat = ptr.FromValue(MustParseLogFormat(*p))
	}

	return err
}

func (o *GeneralOptions) Clone() *GeneralOptions {
	if o == nil {
		return nil
	}

	return &GeneralOptions{
		LogLevel:  ptr.Clone(o.LogLevel),
		LogFormat: ptr.Clone(o.LogFormat),
		Silent:    ptr.Clone(o.Silent),
	}
}

func (origin *GeneralOptions) Merge(overrides *GeneralOptions) *GeneralOptions {
	if overrides == nil {
		return origin.Clone()
	}

	if origin == nil {
		return overrides.Clone()
	}

	return &GeneralOptions{
		LogLevel:  ptr.CloneOr(overrides.LogLevel, origin.LogLevel),
		LogFormat: ptr.CloneOr(overrides.LogFormat, origin.LogFormat),
		Silent:    ptr.CloneOr(overrides.Silent, origin.Silent),
	}
}

// ┌────────────────┐
// │ SERVER OPTIONS │
// └────────────────┘
var _ merger[*ServerOptions] = (*ServerOptions)(nil)

type ServerOptions struct {
	ListenAddr      *net.TCPAddr   `toml:"listen-addr"`
	ReadTimeout     *time.Duration `toml:"read-timeout"`
	ShutdownTimeout *time.Duration `toml:"shutdown-timeout"`
}

func (o *ServerOptions) UnmarshalTOML(data any) (err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("'server' must be table type")
	}

	if p := findFrom(m, "listen-addr", parseStringFn(checkHostPort), &err); isOk(p, err) {
		o.ListenAddr = ptr.FromValue(MustParseTCPAddr(*p))
	}

	o.ReadTimeout = findFrom(m, "read-timeout", parseMillisFn(checkNonNegative), &err)
	o.ShutdownTimeout = findFrom(m, "shutdown-timeout", parseMillisFn(checkPositive), &err)

	return err
}

func (o *ServerOptions) Clone() *ServerOptions {
	if o == nil {
		return nil
	}

	return &ServerOptions{
		ListenAddr:      cloneTCPAddr(o.ListenAddr),
		ReadTimeout:     ptr.Clone(o.ReadTimeout),
		ShutdownTimeout: ptr.Clone(o.ShutdownTimeout),
	}
}

func (origin *ServerOptions) Merge(overrides *ServerOptions) *ServerOptions {
	if overrides == nil {
		return origin.Clone()
	}

	if origin == nil {
		return overrides.Clone()
	}

	listenAddr := cloneTCPAddr(origin.ListenAddr)
	if overrides.ListenAddr != nil {
		listenAddr = cloneTCPAddr(overrides.ListenAddr)
	}

	return &ServerOptions{
		ListenAddr:      listenAddr,
		ReadTimeout:     ptr.CloneOr(overrides.ReadTimeout, origin.ReadTimeout),
		ShutdownTimeout: ptr.CloneOr(overrides.ShutdownTimeout, origin.ShutdownTimeout),
	}
}

func cloneTCPAddr(a *net.TCPAddr) *net.TCPAddr {
	if a == nil {
		return nil
	}

	return &net.TCPAddr{
		IP:   append(net.IP(nil), a.IP...),
		Port: a.Port,
		Zone: a.Zone,
	}
}

// ┌─────────────────┐
// │ PRINTER OPTIONS │
// └─────────────────┘
var _ merger[*PrinterOptions] = (*PrinterOptions)(nil)

// PrinterOptions apply to jobs that leave the corresponding field out.
type PrinterOptions struct {
	DefaultPort    *uint16        `toml:"default-port"`
	DefaultTimeout *time.Duration `toml:"default-timeout"`
}

func (o *PrinterOptions) UnmarshalTOML(data any) (err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("'printer' must be table type")
	}

	o.DefaultPort = findFrom(m, "default-port", parseIntFn[uint16](checkPort), &err)
	o.DefaultTimeout = findFrom(m, "default-timeout", parseMillisFn(checkPositive), &err)

	return err
}

func (o *PrinterOptions) Clone() *PrinterOptions {
	if o == nil {
		return nil
	}

	return &PrinterOptions{
		DefaultPort:    ptr.Clone(o.DefaultPort),
		DefaultTimeout: ptr.Clone(o.DefaultTimeout),
	}
}

func (origin *PrinterOptions) Merge(overrides *PrinterOptions) *PrinterOptions {
	if overrides == nil {
		return origin.Clone()
	}

	if origin == nil {
		return overrides.Clone()
	}

	return &PrinterOptions{
		DefaultPort:    ptr.CloneOr(overrides.DefaultPort, origin.DefaultPort),
		DefaultTimeout: ptr.CloneOr(overrides.DefaultTimeout, origin.DefaultTimeout),
	}
}

// ┌────────────────┐
// │ EVENTS OPTIONS │
// └────────────────┘
var _ merger[*EventsOptions] = (*EventsOptions)(nil)

// EventsOptions configure the websocket event stream. An empty ListenAddr
// disables it; History also bounds the console log view.
type EventsOptions struct {
	ListenAddr *string `toml:"listen-addr"`
	History    *int    `toml:"history"`
}

func (o *EventsOptions) UnmarshalTOML(data any) (err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("'events' must be table type")
	}

	o.ListenAddr = findFrom(m, "listen-addr", parseStringFn(checkOptionalHostPort), &err)
	o.History = findFrom(m, "history", parseIntFn[int](checkHistory), &err)

	return err
}

func (o *EventsOptions) Clone() *EventsOptions {
	if o == nil {
		return nil
	}

	return &EventsOptions{
		ListenAddr: ptr.Clone(o.ListenAddr),
		History:    ptr.Clone(o.History),
	}
}

func (origin *EventsOptions) Merge(overrides *EventsOptions) *EventsOptions {
	if overrides == nil {
		return origin.Clone()
	}

	if origin == nil {
		return overrides.Clone()
	}

	return &EventsOptions{
		ListenAddr: ptr.CloneOr(overrides.ListenAddr, origin.ListenAddr),
		History:    ptr.CloneOr(overrides.History, origin.History),
	}
}

// Enabled reports whether the event stream should be served.
func (o *EventsOptions) Enabled() bool {
	return o != nil && ptr.ValueOr(o.ListenAddr, "") != ""
}

// ┌───────────────────┐
// │ DISCOVERY OPTIONS │
// └───────────────────┘
var _ merger[*DiscoveryOptions] = (*DiscoveryOptions)(nil)

type DiscoveryOptions struct {
	MDNS     *bool   `toml:"mdns"`
	Instance *string `toml:"instance"`
}

func (o *DiscoveryOptions) UnmarshalTOML(data any) (err error) {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("'discovery' must be table type")
	}

	o.MDNS = findFrom(m, "mdns", parseBoolFn(), &err)
	o.Instance = findFrom(m, "instance", parseStringFn(checkInstance), &err)

	return err
}

func (o *DiscoveryOptions) Clone() *DiscoveryOptions {
	if o == nil {
		return nil
	}

	return &DiscoveryOptions{
		MDNS:     ptr.Clone(o.MDNS),
		Instance: ptr.Clone(o.Instance),
	}
}

func (origin *DiscoveryOptions) Merge(overrides *DiscoveryOptions) *DiscoveryOptions {
	if overrides == nil {
		return origin.Clone()
	}

	if origin == nil {
		return overrides.Clone()
	}

	return &DiscoveryOptions{
		MDNS:     ptr.CloneOr(overrides.MDNS, origin.MDNS),
		Instance: ptr.CloneOr(overrides.Instance, origin.Instance),
	}
}

// ┌─────────┐
// │ PARSERS │
// └─────────┘
func MustParseLogLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		panic(fmt.Sprintf("invalid log level %q", s))
	}

	return level
}

func MustParseLogFormat(s string) LogFormatType {
	i := slices.Index(availableLogFormats, strings.ToLower(s))
	if i < 0 {
		panic(fmt.Sprintf("invalid log format %q", s))
	}

	return LogFormatType(i)
}

func MustParseTCPAddr(s string) *net.TCPAddr {
	addr, err := net.ResolveTCPAddr("tcp", s)
	if err != nil {
		panic(fmt.Sprintf("invalid listen address %q: %v", s, err))
	}

	if addr.IP == nil {
		addr.IP = net.IPv4(0, 0, 0, 0)
	}

	return addr
}
