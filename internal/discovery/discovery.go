// Package discovery advertises the running bridge on the LAN over mDNS so
// clients can find it without typing an address.
package discovery

import (
	"errors"
	"fmt"
	"sync"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog"
	"github.com/xvzc/printbridge/internal/bridge"
)

const (
	ServiceType = "_printbridge._tcp"
	Domain      = "local."
)

var ErrAlreadyAnnounced = errors.New("already announced")

type shutdowner interface {
	Shutdown()
}

type registerFunc func(
	instance, service, domain string,
	port int,
	txt []string,
) (shutdowner, error)

func zeroconfRegister(
	instance, service, domain string,
	port int,
	txt []string,
) (shutdowner, error) {
	srv, err := zeroconf.Register(instance, service, domain, port, txt, nil)
	if err != nil {
		return nil, err
	}

	return srv, nil
}

type Advertiser struct {
	logger   zerolog.Logger
	instance string
	register registerFunc

	mu  sync.Mutex
	srv shutdowner
}

func NewAdvertiser(logger zerolog.Logger, instance string) *Advertiser {
	return &Advertiser{
		logger:   logger,
		instance: instance,
		register: zeroconfRegister,
	}
}

// TXTRecords describes how to reach the bridge once resolved.
func TXTRecords(version string) []string {
	txt := []string{"path=" + bridge.PathPrint}
	if version != "" {
		txt = append(txt, "version="+version)
	}

	return txt
}

// Announce starts answering mDNS queries for the bridge on port.
func (a *Advertiser) Announce(port int, version string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.srv != nil {
		return ErrAlreadyAnnounced
	}

	srv, err := a.register(a.instance, ServiceType, Domain, port, TXTRecords(version))
	if err != nil {
		return fmt.Errorf("mdns register %s.%s: %w", a.instance, ServiceType, err)
	}

	a.srv = srv
	a.logger.Info().
		Str("instance", a.instance).
		Int("port", port).
		Msgf("announced %s", a.Describe())

	return nil
}

// Withdraw stops the advertisement. It is a no-op when nothing is
// announced.
func (a *Advertiser) Withdraw() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.srv == nil {
		return
	}

	a.srv.Shutdown()
	a.srv = nil
	a.logger.Debug().Msg("advertisement withdrawn")
}

// Describe is the human-readable form shown in the banner.
func (a *Advertiser) Describe() string {
	return fmt.Sprintf("%s.%s.%s", a.instance, ServiceType, Domain)
}
