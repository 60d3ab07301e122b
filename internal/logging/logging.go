package logging

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/xvzc/printbridge/internal/session"
)

const (
	scopeFieldName      = "scope"
	localScopeFieldName = "local_scope"
	jobIDFieldName      = "job_id"
	printerFieldName    = "printer"
	peerFieldName       = "peer"
)

// NewLogger builds the root logger every component derives its scoped
// logger from. When asJSON is false a human-readable console writer is used.
func NewLogger(out io.Writer, level zerolog.Level, asJSON bool) zerolog.Logger {
	var w io.Writer = out
	if !asJSON {
		w = newConsoleWriter(out)
	}

	return zerolog.New(w).
		Level(level).
		Hook(ctxHook{}).
		With().
		Timestamp().
		Logger()
}

// column renders one console part; empty is shown when the field is unset.
type column struct {
	field  string
	render func(string) string
	empty  string
}

func suffixed(v string) string { return v + ";" }

var columns = []column{
	{field: jobIDFieldName, render: shortID},
	{field: scopeFieldName, render: func(v string) string { return "[" + v + "]" }, empty: "[app]"},
	{field: localScopeFieldName, render: suffixed},
	{field: printerFieldName, render: suffixed},
	{field: zerolog.MessageFieldName, render: suffixed},
}

func newConsoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		FormatPrepare: func(m map[string]any) error {
			for _, c := range columns {
				if v, ok := m[c.field].(string); ok && v != "" {
					m[c.field] = c.render(v)
					continue
				}

				m[c.field] = c.empty
			}

			return nil
		},
		// Exclude the raw field names since they are rendered as parts above.
		FieldsExclude: []string{
			jobIDFieldName,
			scopeFieldName,
			printerFieldName,
			localScopeFieldName,
		},
		PartsOrder: []string{
			zerolog.LevelFieldName,
			zerolog.TimestampFieldName,
			jobIDFieldName,
			scopeFieldName,
			printerFieldName,
			localScopeFieldName,
			zerolog.MessageFieldName,
		},
	}
}

// shortID keeps console lines narrow; JSON output carries the full uuid.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

// WithScope is a helper for components (like the Forwarder or the Listener)
// to create a sub-logger with their component name.
func WithScope(logger zerolog.Logger, scope string) zerolog.Logger {
	return logger.With().Str(scopeFieldName, scope).Logger()
}

// WithLocalScope narrows a component logger to one operation and binds ctx,
// so request-scoped values are attached by the hook.
func WithLocalScope(
	ctx context.Context,
	logger zerolog.Logger,
	localScope string,
) zerolog.Logger {
	return logger.With().Ctx(ctx).Str(localScopeFieldName, localScope).Logger()
}

// ctxHook copies request-scoped values from the event's context.
// It only runs for loggers or events carrying a context via .Ctx(ctx).
type ctxHook struct{}

func (h ctxHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	if id, ok := session.JobIDFrom(ctx); ok {
		e.Str(jobIDFieldName, id)
	}

	if addr, ok := session.PrinterFrom(ctx); ok {
		e.Str(printerFieldName, addr)
	}

	if addr, ok := session.PeerFrom(ctx); ok {
		e.Str(peerFieldName, addr)
	}
}

type joinableError interface {
	Unwrap() []error
}

// ErrorUnwrapped logs each error of a joined error on its own line.
// If the error is not joined, it logs the single error normally.
func ErrorUnwrapped(logger *zerolog.Logger, msg string, err error) {
	logUnwrapped(logger, zerolog.ErrorLevel, msg, err)
}

func WarnUnwrapped(logger *zerolog.Logger, msg string, err error) {
	logUnwrapped(logger, zerolog.WarnLevel, msg, err)
}

func logUnwrapped(logger *zerolog.Logger, level zerolog.Level, msg string, err error) {
	var joinedErrs joinableError

	if errors.As(err, &joinedErrs) {
		for _, e := range joinedErrs.Unwrap() {
			logger.WithLevel(level).Err(e).Msg(msg)
		}

		return
	}

	logger.WithLevel(level).Err(err).Msg(msg)
}
