package signaling

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer. Large enough for an inline
	// chat attachment encoded as a data URL.
	maxMessageSize = 8 << 20

	// Outbound frames buffered per connection before new ones are dropped.
	sendBuffer = 256
)

// Client is a wrapper for a single websocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	logger *slog.Logger

	id string

	// send is a buffered channel for all outbound frames. It is never
	// closed; WritePump exits when done is closed.
	send chan []byte
	ping chan struct{}

	closeOnce  sync.Once
	closeFrame []byte
	done       chan struct{}
}

var _ Conn = (*Client)(nil)

func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		logger: logger,
		send:   make(chan []byte, sendBuffer),
		ping:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the read and write pumps for the registered id.
func (c *Client) Start(id string) {
	c.id = id
	c.logger = c.logger.With("client", id)
	go c.WritePump()
	go c.ReadPump()
}

func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) Ping() bool {
	select {
	case c.ping <- struct{}{}:
		return true
	default:
		return false
	}
}

func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeFrame = websocket.FormatCloseMessage(code, reason)
		close(c.done)
	})
}

// ReadPump pumps messages from the websocket connection to the hub.
//
// The application runs ReadPump in a per-connection goroutine. The application
// ensures that there is at most one reader on a connection by executing all
// reads from this goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c.id)
		c.Close(websocket.CloseNormalClosure, "")
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.hub.Pong(c.id)
		return nil
	})

	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure, CloseDuplicateDevice) {
				c.logger.Debug("Read failed", "error", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		if !c.hub.Deliver(c.id, data) {
			return
		}
	}
}

// WritePump pumps frames from the hub to the websocket connection.
//
// A goroutine running WritePump is started for each connection. The
// application ensures that there is at most one writer to a connection by
// executing all writes from this goroutine.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.logger.Debug("Write failed", "error", err)
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}

		case <-c.ping:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}

		case <-c.done:
			c.flush()
			c.write(websocket.CloseMessage, c.closeFrame)
			return
		}
	}
}

// flush writes frames queued before Close so an error reply precedes the close frame.
func (c *Client) flush() {
	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(kind int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, data)
}
