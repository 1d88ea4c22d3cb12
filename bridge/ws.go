package bridge

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 64
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writePump()
	return c
}

// writePump owns every write to the connection. It closes the connection
// when send is closed or a write fails.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		close(c.done)
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWS serves one page connection. Requests on a connection are handled
// in order and each gets exactly one response frame.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	log := requestLogger(r)
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	wsConnections.Inc()
	defer wsConnections.Dec()
	log.Info().Str("remote", r.RemoteAddr).Msg("ws client connected")

	c := newWSClient(conn)
	defer func() {
		close(c.send)
		<-c.done
		log.Info().Str("remote", r.RemoteAddr).Msg("ws client disconnected")
	}()

	conn.SetReadLimit(s.maxBodyBytes)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("ws read failed")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		var resp Response
		req, err := decodeRequest(data)
		if err != nil {
			resp = Response{CallbackID: req.CallbackID, Status: StatusError, Message: "invalid request: " + err.Error()}
		} else {
			resp = s.execute(ctx, req)
		}

		out, err := json.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Msg("failed to encode response")
			continue
		}
		select {
		case c.send <- out:
		case <-c.done:
			return
		}
	}
}
