// Package printjob holds the print job model and the pure checks every job
// passes before it may be forwarded to a printer.
package printjob

import (
	"net"
	"strconv"
	"time"
)

const (
	DefaultPort    = 9100
	DefaultTimeout = 2000 * time.Millisecond
	MinTimeout     = 100 * time.Millisecond

	// MaxBodySize caps the HTTP body carrying a job (2 MiB).
	MaxBodySize = 2 << 20
)

// Request is a validated job. It is built once from the decoded body and
// discarded after a single forwarding attempt.
type Request struct {
	Host    string
	Port    int
	Payload []byte
	Timeout time.Duration
}

// Addr returns the dialable "host:port" form of the destination.
func (r *Request) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// Defaults are applied to fields the client left out (or sent as zero).
type Defaults struct {
	Port    int
	Timeout time.Duration
}

func (d Defaults) port() int {
	if d.Port == 0 {
		return DefaultPort
	}

	return d.Port
}

func (d Defaults) timeout() time.Duration {
	if d.Timeout <= 0 {
		return DefaultTimeout
	}

	return d.Timeout
}

// NewRequest validates the raw job fields in the order address, port,
// payload and returns the first failure as a KindValidation *Error.
// A zero port or timeout means "use the default".
func NewRequest(
	host string,
	port int,
	encoded string,
	timeout time.Duration,
	d Defaults,
) (*Request, error) {
	canonical, ok := NormalizeAddress(host)
	if !ok {
		return nil, &Error{Kind: KindValidation, Detail: "Invalid ip", Err: ErrInvalidAddress}
	}

	if port == 0 {
		port = d.port()
	}

	if !ValidatePort(port) {
		return nil, &Error{Kind: KindValidation, Detail: "Invalid port", Err: ErrInvalidPort}
	}

	payload, err := DecodePayload(encoded)
	if err != nil {
		return nil, err
	}

	if timeout == 0 {
		timeout = d.timeout()
	}

	return &Request{
		Host:    canonical,
		Port:    port,
		Payload: payload,
		Timeout: timeout,
	}, nil
}
