package session

import (
	"context"

	"github.com/google/uuid"
)

// We define unexported key types to prevent key collisions with other packages.
type (
	jobIDCtxKey   struct{}
	printerCtxKey struct{}
	peerCtxKey    struct{}
)

// WithNewJobID ensures a job ID is present in the context.
// If one already exists, it returns the original context unmodified.
func WithNewJobID(ctx context.Context) context.Context {
	if _, ok := JobIDFrom(ctx); ok {
		return ctx
	}

	return context.WithValue(ctx, jobIDCtxKey{}, uuid.NewString())
}

// JobIDFrom extracts the job ID from the context, if one exists.
func JobIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(jobIDCtxKey{}).(string)
	return id, ok && id != ""
}

// WithPrinter returns a new context carrying the destination printer
// in host:port form.
func WithPrinter(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, printerCtxKey{}, addr)
}

// PrinterFrom extracts the destination printer address from the context.
func PrinterFrom(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(printerCtxKey{}).(string)
	return addr, ok
}

// WithPeer returns a new context carrying the remote address of the HTTP
// client that submitted the job.
func WithPeer(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, peerCtxKey{}, addr)
}

// PeerFrom extracts the HTTP client's remote address from the context.
func PeerFrom(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(peerCtxKey{}).(string)
	return addr, ok
}
