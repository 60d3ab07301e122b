package events

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	subscriberBuffer = 32
)

// Server exposes the hub over HTTP: GET /events streams events over a
// websocket (history first), GET /events/history returns the history.
type Server struct {
	logger   zerolog.Logger
	hub      *Hub
	addr     string
	upgrader websocket.Upgrader
}

func NewServer(logger zerolog.Logger, hub *Hub, addr string) *Server {
	return &Server{
		logger: logger,
		hub:    hub,
		addr:   addr,
		upgrader: websocket.Upgrader{
			// Dashboards on any LAN origin may watch the bridge.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/events", s.serveWS)
	engine.GET("/events/history", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.hub.History())
	})

	return engine
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	srv := &http.Server{Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	s.logger.Info().Msgf("event stream on ws://%s/events", ln.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeWait)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown; the hub
	// closing their channels ends them.
	err = srv.Shutdown(shutdownCtx)
	<-errCh

	return err
}

func (s *Server) serveWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer func() { _ = conn.Close() }()

	history, ch, cancel := s.hub.Subscribe(subscriberBuffer)
	defer cancel()

	peer := conn.RemoteAddr().String()
	s.logger.Debug().Str("peer", peer).Msg("event subscriber connected")
	defer s.logger.Debug().Str("peer", peer).Msg("event subscriber gone")

	gone := make(chan struct{})
	go readUntilClosed(conn, gone)

	for _, e := range history {
		if err := writeEvent(conn, e); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(writeWait),
				)
				return
			}

			if err := writeEvent(conn, e); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, e Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(e)
}

// readUntilClosed drains client frames so pongs and close frames are
// processed, and closes gone when the client disconnects.
func readUntilClosed(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
