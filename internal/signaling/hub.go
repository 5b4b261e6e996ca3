package signaling

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kenobeee/mettta-space/internal/account"
	"github.com/kenobeee/mettta-space/internal/chat"
	"github.com/kenobeee/mettta-space/internal/config"
	"github.com/kenobeee/mettta-space/internal/meeting"
	"github.com/kenobeee/mettta-space/internal/protocol"
)

const (
	defaultHeartbeat = 15 * time.Second
	storeTimeout     = 5 * time.Second
)

// Options configures a Hub. Zero values fall back to sensible defaults.
type Options struct {
	Lobbies   []config.Lobby
	Channels  []config.Channel
	Schedule  *meeting.Schedule
	Accounts  *account.Directory
	Heartbeat time.Duration
	Location  *time.Location
	Now       func() time.Time

	Logger       *slog.Logger
	ClientLogger *slog.Logger
}

type connectRequest struct {
	conn  Conn
	reply chan string
}

type inboundFrame struct {
	id   string
	data []byte
}

// Hub is the central coordinator. A single goroutine (Run) owns every
// participant, room, channel and meeting record; the exported methods only
// post work to it.
type Hub struct {
	logger       *slog.Logger
	clientLogger *slog.Logger

	registry     *Registry
	participants map[string]*participant
	devices      map[string]string // device id -> participant id

	rooms      map[string]*room
	adhocOrder []string

	chatRooms     map[string]*chatRoom
	chatRoomOrder []string

	schedule *meeting.Schedule
	accounts *account.Directory

	now       func() time.Time
	loc       *time.Location
	heartbeat time.Duration

	connects    chan connectRequest
	disconnects chan string
	inbound     chan inboundFrame
	pongs       chan string
	queries     chan func()
	done        chan struct{}
}

func NewHub(opts Options) *Hub {
	h := &Hub{
		logger:       opts.Logger,
		clientLogger: opts.ClientLogger,
		participants: make(map[string]*participant),
		devices:      make(map[string]string),
		rooms:        make(map[string]*room),
		chatRooms:    make(map[string]*chatRoom),
		schedule:     opts.Schedule,
		accounts:     opts.Accounts,
		now:          opts.Now,
		loc:          opts.Location,
		heartbeat:    opts.Heartbeat,
		connects:     make(chan connectRequest),
		disconnects:  make(chan string, 64),
		inbound:      make(chan inboundFrame, 256),
		pongs:        make(chan string, 64),
		queries:      make(chan func()),
		done:         make(chan struct{}),
	}

	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.clientLogger == nil {
		h.clientLogger = h.logger.WithGroup("clientLog")
	}
	if h.schedule == nil {
		h.schedule = meeting.NewSchedule(nil, nil)
	}
	if h.accounts == nil {
		h.accounts = account.NewDirectory(nil, nil)
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.heartbeat <= 0 {
		h.heartbeat = defaultHeartbeat
	}
	h.registry = NewRegistry(h.logger)

	for _, l := range opts.Lobbies {
		if _, exists := h.rooms[l.ID]; exists {
			continue
		}
		h.rooms[l.ID] = newRoom(l.ID, l.DisplayName, protocol.LobbyAdHoc)
		h.adhocOrder = append(h.adhocOrder, l.ID)
	}
	for _, c := range opts.Channels {
		if _, exists := h.chatRooms[c.ID]; exists {
			continue
		}
		h.chatRooms[c.ID] = &chatRoom{
			id:          c.ID,
			name:        c.Name,
			subscribers: make(map[string]bool),
			history:     chat.NewRing[protocol.ChatMessage](chat.ChannelCapacity),
		}
		h.chatRoomOrder = append(h.chatRoomOrder, c.ID)
	}
	return h
}

// Run starts the hub's main processing loop.
// This is the single goroutine that safely manages all state.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeat)
	defer func() {
		ticker.Stop()
		h.shutdown()
		close(h.done)
	}()

	h.logger.Info("Hub started", "heartbeat", h.heartbeat, "lobbies", len(h.adhocOrder), "chatRooms", len(h.chatRoomOrder))

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-h.connects:
			req.reply <- h.connect(req.conn)

		case id := <-h.disconnects:
			h.disconnect(id)

		case frame := <-h.inbound:
			h.handle(frame.id, frame.data)

		case id := <-h.pongs:
			h.registry.MarkAlive(id)

		case <-ticker.C:
			h.sweep()

		case q := <-h.queries:
			q()
		}
	}
}

// Connect registers conn and returns its id. The welcome frame is queued
// on conn before Connect returns.
func (h *Hub) Connect(ctx context.Context, conn Conn) (string, error) {
	req := connectRequest{conn: conn, reply: make(chan string, 1)}
	select {
	case h.connects <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	case <-h.done:
		return "", ErrStopped
	}
	return <-req.reply, nil
}

// Deliver hands one inbound frame to the loop. It reports false once the hub stopped.
func (h *Hub) Deliver(id string, data []byte) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.inbound <- inboundFrame{id: id, data: data}:
		return true
	case <-h.done:
		return false
	}
}

// Pong records a heartbeat answer from id.
func (h *Hub) Pong(id string) {
	select {
	case h.pongs <- id:
	case <-h.done:
	}
}

// Disconnect removes id and everything it holds.
func (h *Hub) Disconnect(id string) {
	select {
	case h.disconnects <- id:
	case <-h.done:
	}
}

// Lobbies returns the joinable lobby list as seen by the loop.
func (h *Hub) Lobbies(ctx context.Context) ([]protocol.LobbySummary, error) {
	var out []protocol.LobbySummary
	err := h.query(ctx, func() { out = h.lobbySummaries(h.now()) })
	return out, err
}

// Meetings returns the full schedule as seen by the loop.
func (h *Hub) Meetings(ctx context.Context) ([]protocol.Meeting, error) {
	var out []protocol.Meeting
	err := h.query(ctx, func() { out = h.meetingList() })
	return out, err
}

// Stats reports connection and room occupancy counts.
func (h *Hub) Stats(ctx context.Context) (connections, inRooms int, err error) {
	err = h.query(ctx, func() {
		connections = h.registry.Len()
		for _, p := range h.participants {
			if p.roomID != "" {
				inRooms++
			}
		}
	})
	return connections, inRooms, err
}

func (h *Hub) query(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case h.queries <- func() { fn(); close(finished) }:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- loop side ---

func (h *Hub) connect(conn Conn) string {
	id := h.registry.Register(conn)
	p := &participant{
		id:          id,
		displayName: randomName(),
		chatRooms:   make(map[string]bool),
	}
	h.participants[id] = p

	h.logger.Info("Client registered", "client", id, "name", p.displayName)

	h.send(id, protocol.Welcome{ClientID: id})
	h.send(id, protocol.Lobbies{Lobbies: h.lobbySummaries(h.now())})
	return id
}

func (h *Hub) disconnect(id string) {
	p, ok := h.participants[id]
	if !ok {
		return
	}

	h.leave(p)
	for roomID := range p.chatRooms {
		if cr, ok := h.chatRooms[roomID]; ok {
			delete(cr.subscribers, id)
		}
	}
	if p.deviceID != "" && h.devices[p.deviceID] == id {
		delete(h.devices, p.deviceID)
	}
	delete(h.participants, id)
	h.registry.Unregister(id)

	h.logger.Info("Client unregistered", "client", id)
}

// sweep terminates connections that missed the previous ping and pings the rest.
func (h *Hub) sweep() {
	for _, id := range h.registry.Sweep() {
		h.logger.Info("Heartbeat timeout", "client", id)
		if conn, ok := h.registry.Conn(id); ok {
			conn.Close(websocket.CloseGoingAway, "heartbeat timeout")
		}
		h.disconnect(id)
	}
}

func (h *Hub) shutdown() {
	for _, id := range h.registry.IDs() {
		if conn, ok := h.registry.Conn(id); ok {
			conn.Close(websocket.CloseGoingAway, "server shutting down")
		}
	}
	h.logger.Info("Hub stopped")
}

func (h *Hub) storeContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

// --- outbound helpers ---

func (h *Hub) encode(msg protocol.ServerMessage) []byte {
	data, err := protocol.Encode(msg)
	if err != nil {
		h.logger.Error("Failed to encode message", "type", msg.Kind(), "error", err)
		return nil
	}
	return data
}

func (h *Hub) send(id string, msg protocol.ServerMessage) {
	if data := h.encode(msg); data != nil {
		h.registry.Send(id, data)
	}
}

func (h *Hub) sendMany(ids []string, msg protocol.ServerMessage) {
	data := h.encode(msg)
	if data == nil {
		return
	}
	for _, id := range ids {
		h.registry.Send(id, data)
	}
}

func (h *Hub) broadcastAll(msg protocol.ServerMessage) {
	h.sendMany(h.registry.IDs(), msg)
}

func (h *Hub) sendError(id string, err error) {
	h.send(id, protocol.Error{Message: err.Error(), Code: Code(err)})
}
