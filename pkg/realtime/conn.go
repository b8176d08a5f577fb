package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/berryevents69/Berry-Events-sub000/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// Upgrader is shared by websocket handlers. Origin checks are left to the CORS
// layer in front of the API.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Client is a websocket subscriber bound to one topic.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *Client) Deliver(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.once.Do(func() { close(c.send) })
}

// Serve upgrades the request and streams topic events until the peer leaves or
// ctx is cancelled. Inbound frames are ignored apart from control messages.
func Serve(ctx context.Context, b Broadcaster, logg *logger.Logger, w http.ResponseWriter, r *http.Request, topic string) error {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &Client{conn: conn, send: make(chan []byte, sendBuffer)}
	b.Register(topic, client)

	go client.writePump(ctx)
	client.readPump()

	b.Unregister(topic, client)
	client.Close()
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", topic), "realtime subscriber disconnected")
	}
	return nil
}

func (c *Client) readPump() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
