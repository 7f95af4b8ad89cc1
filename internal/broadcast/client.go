package broadcast

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hafbjorn109/wiperino/internal/adapter/metrics"
	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline     = 5 * time.Second
	pingInterval      = 30 * time.Second
	pongDeadline      = 60 * time.Second
	messageBufferSize = 256
	// sendWait bounds how long a full buffer may hold up fan-out before
	// the client is treated as slow.
	sendWait = 250 * time.Millisecond
)

// Client is the write side of one WebSocket connection. All writes go
// through its goroutine so gorilla's single-writer rule holds.
type Client struct {
	connection *websocket.Conn
	role       domain.Role
	clock      clockwork.Clock
	metrics    *metrics.GatewayMetrics

	sendChannel chan []byte
	quitChannel chan struct{}
	doneChannel chan struct{}
	quitOnce    sync.Once
}

// NewClient starts the writer goroutine for connection. The read deadline
// is armed here and extended by every pong.
func NewClient(connection *websocket.Conn, role domain.Role, clock clockwork.Clock, m *metrics.GatewayMetrics) *Client {
	c := &Client{
		connection:  connection,
		role:        role,
		clock:       clock,
		metrics:     m,
		sendChannel: make(chan []byte, messageBufferSize),
		quitChannel: make(chan struct{}),
		doneChannel: make(chan struct{}),
	}
	c.configurePongHandler()
	go c.run()
	return c
}

func (c *Client) Role() domain.Role {
	return c.role
}

// Send queues data. When the buffer is full it waits up to sendWait for
// the writer to drain it, and returns false if that fails or the client
// is shutting down.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.quitChannel:
		return false
	case <-c.doneChannel:
		return false
	default:
	}

	select {
	case c.sendChannel <- data:
		return true
	default:
	}

	timer := c.clock.NewTimer(sendWait)
	defer timer.Stop()

	select {
	case c.sendChannel <- data:
		return true
	case <-timer.Chan():
		return false
	case <-c.quitChannel:
		return false
	case <-c.doneChannel:
		return false
	}
}

// Done is closed once the writer goroutine has exited.
func (c *Client) Done() <-chan struct{} {
	return c.doneChannel
}

// Close stops the writer and closes the connection without waiting.
func (c *Client) Close() {
	c.quitOnce.Do(func() { close(c.quitChannel) })
	_ = c.connection.Close()
}

// CloseGraceful stops the writer, then sends a close frame with reason.
func (c *Client) CloseGraceful(reason string) {
	c.quitOnce.Do(func() { close(c.quitChannel) })
	<-c.doneChannel

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	c.updateWriteDeadline()
	_ = c.connection.WriteMessage(websocket.CloseMessage, closeMsg)
	_ = c.connection.Close()
}

// Touch extends the read deadline after inbound traffic.
func (c *Client) Touch() {
	c.updateReadDeadline()
}

func (c *Client) run() {
	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer close(c.doneChannel)

	for {
		select {
		case msg := <-c.sendChannel:
			start := c.clock.Now()
			c.updateWriteDeadline()
			if err := c.connection.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = c.connection.Close()
				return
			}
			c.metrics.MessageSendSeconds.Observe(c.clock.Since(start).Seconds())
		case <-ticker.Chan():
			c.updateWriteDeadline()
			if err := c.connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.metrics.PingFailures.Inc()
				_ = c.connection.Close()
				return
			}
		case <-c.quitChannel:
			return
		}
	}
}

func (c *Client) configurePongHandler() {
	c.updateReadDeadline()
	c.connection.SetPongHandler(func(string) error {
		c.updateReadDeadline()
		return nil
	})
}

func (c *Client) updateWriteDeadline() {
	_ = c.connection.SetWriteDeadline(c.clock.Now().Add(writeDeadline))
}

func (c *Client) updateReadDeadline() {
	_ = c.connection.SetReadDeadline(c.clock.Now().Add(pongDeadline))
}
