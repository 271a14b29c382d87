package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"portfolio-tracker/internal/models"
	"portfolio-tracker/internal/stream"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is open cross-origin; so is the stream.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsMessage is the envelope for both directions of the stream
// protocol. Clients send {type:"subscribe", symbols:[...]}; the server
// answers with {type:"data"} snapshots and pushes {type:"update"}
// batches from the refresh job.
type wsMessage struct {
	Type    string                   `json:"type"`
	Symbols []string                 `json:"symbols,omitempty"`
	Data    map[string]*models.Quote `json:"data,omitempty"`
}

// wsConn serializes writes; the snapshot reply and the update push run
// on different goroutines and gorilla allows one writer at a time.
type wsConn struct {
	*websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) writeMessage(msg wsMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.WriteJSON(msg)
}

func (c *wsConn) writePing() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.WriteMessage(websocket.PingMessage, nil)
}

func (s *Server) wsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := &wsConn{Conn: raw}

	sub := s.hub.Subscribe(nil)
	logger := s.logger.With().Str("subscriber", sub.ID).Logger()
	logger.Info().Msg("WebSocket client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer func() {
		cancel()
		s.hub.Unsubscribe(sub)
		conn.Close()
		logger.Info().Msg("WebSocket client disconnected")
	}()

	go s.wsWriteLoop(ctx, conn, sub, logger)
	s.wsReadLoop(ctx, conn, sub, logger)
}

// wsReadLoop consumes client messages until the connection drops. A
// subscribe message replaces the subscriber's symbol set and is
// answered with a snapshot of current quotes.
func (s *Server) wsReadLoop(ctx context.Context, conn *wsConn, sub *stream.Subscriber, logger zerolog.Logger) {
	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	})

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("WebSocket read failed")
			}
			return
		}

		if msg.Type != "subscribe" {
			logger.Debug().Str("type", msg.Type).Msg("Ignoring unknown message type")
			continue
		}

		sub.SetSymbols(msg.Symbols)
		logger.Info().Strs("symbols", msg.Symbols).Msg("Subscription updated")

		quotes := s.gateway.BatchQuotes(ctx, msg.Symbols)
		if err := conn.writeMessage(wsMessage{Type: "data", Data: quotes}); err != nil {
			logger.Warn().Err(err).Msg("Snapshot write failed")
			return
		}
	}
}

// wsWriteLoop forwards hub updates and keeps the connection alive with
// pings. Write failures end the loop; the read loop notices the closed
// connection and tears down.
func (s *Server) wsWriteLoop(ctx context.Context, conn *wsConn, sub *stream.Subscriber, logger zerolog.Logger) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-sub.Channel:
			if !ok {
				return
			}
			if err := conn.writeMessage(wsMessage{Type: "update", Data: update.Quotes}); err != nil {
				logger.Debug().Err(err).Msg("Update write failed, dropping client")
				conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.writePing(); err != nil {
				conn.Close()
				return
			}
		}
	}
}
