package peer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kenobeee/mettta-space/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 8 << 20
	outgoingBuffer = 64
)

// Client manages the websocket connection to the coordinator.
type Client struct {
	conn      *websocket.Conn
	serverURL string
	logger    *slog.Logger

	incoming chan protocol.ServerMessage
	outgoing chan []byte
	done     chan struct{}
	once     sync.Once
}

func NewClient(serverURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		serverURL: serverURL,
		logger:    logger,
		incoming:  make(chan protocol.ServerMessage, 32),
		outgoing:  make(chan []byte, outgoingBuffer),
		done:      make(chan struct{}),
	}
}

// Connect dials the server and starts the pumps.
func (c *Client) Connect(ctx context.Context) error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	dialer := *websocket.DefaultDialer
	dialer.NetDialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		ip, err := resolveHost(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("dns lookup failed: %w", err)
		}
		var d net.Dialer
		return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
	}

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return NewError("connect to server", err)
	}
	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)

	// the server pings; answering refreshes our own read deadline too
	c.conn.SetPingHandler(func(data string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		err := c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if err != nil && !isClosedError(err) {
			return err
		}
		return nil
	})

	go c.readPump()
	go c.writePump()
	return nil
}

func isClosedError(err error) bool {
	return err == websocket.ErrCloseSent || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}

func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ce, ok := err.(*websocket.CloseError); ok {
				c.logger.Info("Server closed connection", "code", ce.Code, "reason", ce.Text)
			}
			return
		}

		msg, err := protocol.DecodeServer(data)
		if err != nil {
			c.logger.Warn("Ignoring server frame", "error", err)
			continue
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		select {
		case data := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("Write failed", "error", err)
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Send encodes and queues msg. It never blocks.
func (c *Client) Send(msg protocol.ClientMessage) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		return NewError("encode "+msg.Kind(), err)
	}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.outgoing <- data:
		return nil
	default:
		return WrapError("send "+msg.Kind(), ErrClosed, "outgoing buffer full")
	}
}

// Incoming yields decoded server messages and is closed when the connection ends.
func (c *Client) Incoming() <-chan protocol.ServerMessage {
	return c.incoming
}

// Close sends a close frame and shuts the connection down.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}
