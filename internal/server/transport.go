package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/xvzc/printbridge/internal/bridge"
	"github.com/xvzc/printbridge/internal/logging"
	"github.com/xvzc/printbridge/internal/session"
)

// Dispatcher is the transport-neutral request handler. *bridge.Router
// satisfies it.
type Dispatcher interface {
	Dispatch(ctx context.Context, req *bridge.Request) *bridge.Response
	Recovered(ctx context.Context, origin string, v any) *bridge.Response
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// newEngine adapts gin to the dispatcher. Every method and path reaches
// the dispatcher, which owns routing.
func newEngine(logger zerolog.Logger, d Dispatcher) *gin.Engine {
	engine := gin.New()
	engine.Use(
		accessLog(logger),
		recovery(logger, d),
	)

	h := func(c *gin.Context) {
		ctx := session.WithPeer(c.Request.Context(), c.Request.RemoteAddr)

		resp := d.Dispatch(ctx, &bridge.Request{
			Method:        c.Request.Method,
			Path:          c.Request.URL.Path,
			Origin:        c.GetHeader("Origin"),
			ContentLength: c.Request.ContentLength,
			Body:          c.Request.Body,
		})

		writeResponse(c, resp)
	}

	engine.Any("/*path", h)
	engine.NoRoute(h)

	return engine
}

func recovery(logger zerolog.Logger, d Dispatcher) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(
		logger,
		func(c *gin.Context, v any) {
			ctx := session.WithPeer(c.Request.Context(), c.Request.RemoteAddr)
			writeResponse(c, d.Recovered(ctx, c.GetHeader("Origin"), v))
			c.Abort()
		},
	)
}

func accessLog(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		begin := time.Now()

		c.Next()

		logger := logging.WithLocalScope(c.Request.Context(), logger, "access")
		logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("peer", c.Request.RemoteAddr).
			Str("took", fmt.Sprintf("%dms", time.Since(begin).Milliseconds())).
			Msg("served")
	}
}

func writeResponse(c *gin.Context, resp *bridge.Response) {
	header := c.Writer.Header()
	for k, vs := range resp.Header {
		header[k] = append([]string(nil), vs...)
	}

	if resp.Reply == nil {
		c.Status(resp.Status)
		c.Writer.WriteHeaderNow()
		return
	}

	c.JSON(resp.Status, resp.Reply)
}
