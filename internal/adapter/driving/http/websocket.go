package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/quietbit/parley/internal/core/domain"
)

// Time allowed for a single write to the peer before it counts as
// unresponsive.
const writeWait = 10 * time.Second

var (
	errQueueFull  = errors.New("outbound queue full")
	errConnClosed = errors.New("connection closed")
)

// wsClient adapts one websocket connection to port.Client. All writes
// go through the send queue and a single writer goroutine; the reader
// lives in ServeWS.
type wsClient struct {
	conn         *websocket.Conn
	send         chan domain.Envelope
	pingInterval time.Duration
	log          zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// Send enqueues without blocking. A consumer that has fallen a full
// queue behind loses the envelope rather than stalling its senders.
func (c *wsClient) Send(env domain.Envelope) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- env:
		return nil
	default:
		return errQueueFull
	}
}

func (c *wsClient) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

// writePump owns all writes to the connection: queued envelopes, pings,
// and the final close frame.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				c.log.Debug().Err(err).Msg("Write failed, closing")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// ServeWS upgrades the request and runs the connection until the peer
// goes away: register, send the hello frame, then dispatch inbound
// envelopes one at a time.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Error while upgrading ws")
		return
	}

	client := &wsClient{
		conn:         conn,
		send:         make(chan domain.Envelope, h.cfg.SendQueueSize),
		pingInterval: h.cfg.PingInterval,
		done:         make(chan struct{}),
	}

	id, err := h.supervisor.Connected(client)
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	l := log.With().Str("client_id", id.String()).Logger()
	client.log = l
	l.Info().Msg("New client connected")

	go client.writePump()

	// First frame tells the browser its own relay address.
	client.Send(domain.NewHello(id))

	defer func() {
		l.Info().Msg("Client disconnected")
		h.supervisor.Disconnected(id)
		client.Close()
	}()

	conn.SetReadLimit(h.cfg.MaxMessageBytes)
	conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				l.Error().Err(err).Msg("Unexpected close error")
			}
			break
		}

		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			l.Debug().Err(err).Msg("Malformed frame discarded")
			client.Send(domain.NewConnectionError("malformed_message", "invalid JSON"))
			continue
		}

		if err := h.supervisor.Handle(id, env); err != nil {
			l.Debug().Err(err).Str("type", string(env.Kind)).Msg("Message discarded")
			client.Send(domain.NewConnectionError("malformed_message", err.Error()))
		}
	}
}
