package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hafbjorn109/wiperino/internal/adapter/metrics"
	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
	cmdBufferSize  = 256
)

var (
	ErrRoomFull = errors.New("room is full")
	ErrStopped  = errors.New("broadcaster stopped")
)

type roomClients map[*Client]struct{}

// broadcasterCmd is the command interface for the Broadcaster actor.
type broadcasterCmd interface{ isBroadcasterCmd() }

type baseBroadcasterCmd struct{}

func (baseBroadcasterCmd) isBroadcasterCmd() {}

type registerCmd struct {
	baseBroadcasterCmd
	room         string
	client       *Client
	errorChannel chan error
}

type unregisterCmd struct {
	baseBroadcasterCmd
	room   string
	client *Client
}

type deliverCmd struct {
	baseBroadcasterCmd
	message Message
}

type getClientCountCmd struct {
	baseBroadcasterCmd
	room         string
	replyChannel chan int
}

type stopCmd struct {
	baseBroadcasterCmd
}

// Broadcaster is the room registry. Membership lives in a single actor
// goroutine; Publish hands messages to the Transport, and Listen feeds the
// Transport's subscription back into the actor for local fan-out.
type Broadcaster struct {
	cmdCh             chan broadcasterCmd
	clock             clockwork.Clock
	transport         Transport
	metrics           *metrics.GatewayMetrics
	rooms             map[string]roomClients
	done              chan struct{}
	stopTimeout       time.Duration
	maxClientsPerRoom int
}

func NewBroadcaster(transport Transport, m *metrics.GatewayMetrics, clock clockwork.Clock, maxClientsPerRoom int) *Broadcaster {
	b := &Broadcaster{
		cmdCh:             make(chan broadcasterCmd, cmdBufferSize),
		clock:             clock,
		transport:         transport,
		metrics:           m,
		rooms:             make(map[string]roomClients),
		done:              make(chan struct{}),
		stopTimeout:       stopTimeout,
		maxClientsPerRoom: maxClientsPerRoom,
	}
	go b.run()
	return b
}

// Listen subscribes to the transport and starts relaying every received
// message to local members. It returns once the subscription is confirmed;
// relaying stops when ctx is done.
func (b *Broadcaster) Listen(ctx context.Context) error {
	messages, err := b.transport.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to broadcast transport: %w", err)
	}

	go func() {
		for msg := range messages {
			if !b.send(deliverCmd{message: msg}) {
				return
			}
		}
	}()
	return nil
}

// Publish sends msg to every member of room across all processes,
// including the publisher's own connection.
func (b *Broadcaster) Publish(ctx context.Context, room domain.Room, data, overlay []byte) error {
	msg := Message{Room: room.Key(), Data: data, OverlayData: overlay}
	if err := b.transport.Publish(ctx, msg); err != nil {
		b.metrics.PublishesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to publish to room %s: %w", room, err)
	}
	b.metrics.PublishesTotal.WithLabelValues("ok").Inc()
	return nil
}

// Register adds client to room. It fails when the room is at capacity.
func (b *Broadcaster) Register(room domain.Room, client *Client) error {
	errCh := make(chan error, 1)
	if !b.send(registerCmd{room: room.Key(), client: client, errorChannel: errCh}) {
		return ErrStopped
	}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		// The queued register still runs; retract it so the room does not
		// keep a client the caller is about to close.
		b.send(unregisterCmd{room: room.Key(), client: client})
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes client from room. Unknown clients are ignored.
func (b *Broadcaster) Unregister(room domain.Room, client *Client) {
	b.send(unregisterCmd{room: room.Key(), client: client})
}

// ClientCount returns the number of local members of room, or -1 if the
// actor does not answer in time.
func (b *Broadcaster) ClientCount(room domain.Room) int {
	replyCh := make(chan int, 1)
	if !b.send(getClientCountCmd{room: room.Key(), replyChannel: replyCh}) {
		return -1
	}

	timer := b.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop closes every local client and shuts the actor down.
func (b *Broadcaster) Stop() {
	if !b.send(stopCmd{}) {
		return
	}

	timeout := b.clock.NewTimer(b.stopTimeout)
	defer timeout.Stop()

	select {
	case <-b.done:
		slog.Info("Broadcaster stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Broadcaster stop timeout exceeded", "timeout", b.stopTimeout)
	}
}

// send enqueues cmd unless the actor has exited.
func (b *Broadcaster) send(cmd broadcasterCmd) bool {
	select {
	case <-b.done:
		return false
	default:
	}

	select {
	case b.cmdCh <- cmd:
		return true
	case <-b.done:
		return false
	}
}

func (b *Broadcaster) run() {
	defer close(b.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Broadcaster panic recovered", "panic", r)
			b.closeAllClients("broadcaster panic")
		}
	}()

	for cmd := range b.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			b.handleRegister(c)
		case unregisterCmd:
			b.handleUnregister(c.room, c.client)
		case deliverCmd:
			b.handleDeliver(c.message)
		case getClientCountCmd:
			c.replyChannel <- len(b.rooms[c.room])
		case stopCmd:
			b.handleStop()
			return
		default:
			slog.Warn("Broadcaster received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (b *Broadcaster) handleRegister(c registerCmd) {
	clients, exists := b.rooms[c.room]
	if !exists {
		clients = make(roomClients)
		b.rooms[c.room] = clients
	}

	if len(clients) >= b.maxClientsPerRoom {
		if !exists {
			delete(b.rooms, c.room)
		}
		slog.Warn("Rejecting client: max clients reached", "room", c.room, "max_clients", b.maxClientsPerRoom)
		c.errorChannel <- fmt.Errorf("%w: max clients per room (%d) reached", ErrRoomFull, b.maxClientsPerRoom)
		return
	}

	clients[c.client] = struct{}{}
	b.metrics.ActiveRooms.Set(float64(len(b.rooms)))

	slog.Debug("Client registered", "room", c.room, "total_clients", len(clients))
	c.errorChannel <- nil
}

func (b *Broadcaster) handleUnregister(room string, client *Client) {
	clients, exists := b.rooms[room]
	if !exists {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}

	delete(clients, client)

	if len(clients) == 0 {
		delete(b.rooms, room)
		b.metrics.ActiveRooms.Set(float64(len(b.rooms)))
		slog.Debug("Last client left room", "room", room)
	} else {
		slog.Debug("Client unregistered", "room", room, "remaining_clients", len(clients))
	}
}

func (b *Broadcaster) handleDeliver(msg Message) {
	clients := b.rooms[msg.Room]
	if len(clients) == 0 {
		return
	}

	var slow []*Client
	for client := range clients {
		if !client.Send(msg.payloadFor(client.Role())) {
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		slog.Warn("Disconnecting slow client", "room", msg.Room)
		b.metrics.SlowClientsEvicted.Inc()
		b.handleUnregister(msg.Room, client)
		client.Close()
	}
}

func (b *Broadcaster) handleStop() {
	totalClients := 0
	for _, clients := range b.rooms {
		totalClients += len(clients)
	}

	slog.Info("Broadcaster shutting down", "rooms", len(b.rooms), "total_clients", totalClients)
	b.closeAllClients("Server shutting down")
}

// closeAllClients disconnects every local member. Used during panic
// recovery and graceful shutdown.
func (b *Broadcaster) closeAllClients(reason string) {
	for room, clients := range b.rooms {
		for client := range clients {
			client.CloseGraceful(reason)
		}
		delete(b.rooms, room)
	}
	b.metrics.ActiveRooms.Set(0)
}
