// Package bridge turns HTTP print requests into forwarded print jobs. It
// is transport independent: Router.Dispatch works on plain values so the
// whole request lifecycle can be exercised without a listener.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/xvzc/printbridge/internal/logging"
	"github.com/xvzc/printbridge/internal/printjob"
	"github.com/xvzc/printbridge/internal/session"
)

const (
	PathPrint  = "/print"
	PathHealth = "/health"

	anyPath = "*"

	contentTypeJSON = "application/json; charset=utf-8"
)

// Forwarder delivers a validated job. *printer.Forwarder satisfies it.
type Forwarder interface {
	Forward(ctx context.Context, req *printjob.Request) error
}

// Request is the transport-neutral view of an inbound HTTP request.
// ContentLength is -1 when unknown.
type Request struct {
	Method        string
	Path          string
	Origin        string
	ContentLength int64
	Body          io.Reader
}

// Reply is the JSON body of every non-empty response.
type Reply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Response is what the transport must write back. Reply is nil for
// bodiless responses (204).
type Response struct {
	Status int
	Header http.Header
	Reply  *Reply
}

type handleFunc func(ctx context.Context, req *Request) *Response

type route struct {
	method string
	path   string
}

type Router struct {
	logger    zerolog.Logger
	forwarder Forwarder
	notifier  Notifier
	defaults  printjob.Defaults
	routes    map[route]handleFunc
}

func NewRouter(
	logger zerolog.Logger,
	forwarder Forwarder,
	notifier Notifier,
	defaults printjob.Defaults,
) *Router {
	if notifier == nil {
		notifier = Notifiers()
	}

	r := &Router{
		logger:    logger,
		forwarder: forwarder,
		notifier:  notifier,
		defaults:  defaults,
	}

	r.routes = map[route]handleFunc{
		{http.MethodPost, PathPrint}:  r.handlePrint,
		{http.MethodGet, PathHealth}:  r.handleHealth,
		{http.MethodOptions, anyPath}: r.handlePreflight,
	}

	return r
}

// Dispatch routes req through the table and decorates the result with the
// CORS headers every response carries.
func (r *Router) Dispatch(ctx context.Context, req *Request) *Response {
	h, ok := r.routes[route{req.Method, req.Path}]
	if !ok {
		h, ok = r.routes[route{req.Method, anyPath}]
	}

	var resp *Response
	if ok {
		resp = h(ctx, req)
	} else {
		resp = reply(http.StatusNotFound, "Not found")
	}

	return withCORS(resp, req.Origin)
}

// Recovered builds the response for a request whose handler panicked and
// reports the failure like any other failed job.
func (r *Router) Recovered(ctx context.Context, origin string, v any) *Response {
	logger := logging.WithLocalScope(ctx, r.logger, "recover")
	logger.Error().Str("panic", fmt.Sprint(v)).Msg("handler panicked")

	r.notifyFailed("Internal error")

	return withCORS(reply(http.StatusInternalServerError, "Internal error"), origin)
}

func (r *Router) handleHealth(context.Context, *Request) *Response {
	return reply(http.StatusOK, "")
}

func (r *Router) handlePreflight(context.Context, *Request) *Response {
	return &Response{Status: http.StatusNoContent, Header: http.Header{}}
}

func (r *Router) handlePrint(ctx context.Context, req *Request) *Response {
	ctx = session.WithNewJobID(ctx)
	logger := logging.WithLocalScope(ctx, r.logger, "print")
	begin := time.Now()

	logger.Trace().
		Stringer("stage", StageReceived).
		Int64("content_length", req.ContentLength).
		Msg("")

	var job *printjob.Request
	stage := StageParsed
	body, err := parseBody(req)
	if err == nil {
		logger.Trace().Stringer("stage", stage).Msg("")

		stage = StageValidated
		job, err = r.validate(body)
	}

	if err == nil {
		logger.Trace().Stringer("stage", stage).Str("printer", job.Addr()).Msg("")

		stage = StageForwarded
		err = r.forward(ctx, job)
	}

	var resp *Response
	if err != nil {
		detail := printjob.Detail(err)
		logger.Warn().
			Stringer("kind", printjob.KindOf(err)).
			Stringer("stage", stage).
			Msgf("job failed; %s", detail)

		r.notifyFailed(detail)
		resp = reply(http.StatusBadRequest, detail)
	} else {
		logger.Info().
			Str("printer", job.Addr()).
			Int("len", len(job.Payload)).
			Str("took", fmt.Sprintf("%dms", time.Since(begin).Milliseconds())).
			Msg("job forwarded")

		r.notifySucceeded(job.Host, job.Port)
		resp = reply(http.StatusOK, "")
	}

	logger.Trace().Stringer("stage", StageResponded).Int("status", resp.Status).Msg("")
	return resp
}

// parseBody reads the capped body. Oversized and malformed bodies are
// KindParse; an empty body parses as {}.
func parseBody(req *Request) (*printBody, error) {
	tooLarge := &printjob.Error{
		Kind:   printjob.KindParse,
		Detail: "Body too large",
		Err:    printjob.ErrBodyTooLarge,
	}

	if req.ContentLength > printjob.MaxBodySize {
		return nil, tooLarge
	}

	var raw []byte
	if req.Body != nil {
		var err error
		raw, err = io.ReadAll(io.LimitReader(req.Body, printjob.MaxBodySize+1))
		if err != nil {
			return nil, &printjob.Error{Kind: printjob.KindParse, Detail: err.Error(), Err: err}
		}
	}

	if len(raw) > printjob.MaxBodySize {
		return nil, tooLarge
	}

	body := &printBody{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, body); err != nil {
			return nil, &printjob.Error{Kind: printjob.KindParse, Detail: err.Error(), Err: err}
		}
	}

	return body, nil
}

func (r *Router) validate(body *printBody) (*printjob.Request, error) {
	return printjob.NewRequest(
		body.IP,
		body.Port.port(),
		body.Data,
		time.Duration(body.TimeoutMs.timeoutMs())*time.Millisecond,
		r.defaults,
	)
}

// forward runs the job on a context detached from the caller's
// cancellation: once a job is forwarded it finishes or times out.
func (r *Router) forward(ctx context.Context, job *printjob.Request) error {
	ctx = session.WithPrinter(context.WithoutCancel(ctx), job.Addr())

	err := r.forwarder.Forward(ctx, job)
	if err != nil && printjob.KindOf(err) == 0 {
		err = &printjob.Error{Kind: printjob.KindConnection, Detail: err.Error(), Err: err}
	}

	return err
}

func (r *Router) notifySucceeded(host string, port int) {
	r.notify(func(n Notifier) { n.JobSucceeded(host, port) })
}

func (r *Router) notifyFailed(detail string) {
	r.notify(func(n Notifier) { n.JobFailed(detail) })
}

// notify never blocks the response and never lets a subscriber panic
// escape.
func (r *Router) notify(fn func(Notifier)) {
	go func() {
		defer func() {
			if v := recover(); v != nil {
				r.logger.Error().Str("panic", fmt.Sprint(v)).Msg("notifier panicked")
			}
		}()

		fn(r.notifier)
	}()
}

func reply(status int, errText string) *Response {
	return &Response{
		Status: status,
		Header: http.Header{"Content-Type": []string{contentTypeJSON}},
		Reply:  &Reply{OK: errText == "" && status < http.StatusBadRequest, Error: errText},
	}
}

func withCORS(resp *Response, origin string) *Response {
	if origin == "" {
		origin = "*"
	}

	if resp.Header == nil {
		resp.Header = http.Header{}
	}

	resp.Header.Set("Access-Control-Allow-Origin", origin)
	resp.Header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	resp.Header.Set("Access-Control-Allow-Headers", "Content-Type")
	resp.Header.Set("Access-Control-Max-Age", "86400")

	return resp
}
