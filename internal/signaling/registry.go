package signaling

import (
	"log/slog"

	"github.com/google/uuid"
)

// Conn is the transport side of one client connection. All methods must
// return without blocking.
type Conn interface {
	// Send enqueues one encoded frame. It reports false when the frame was dropped.
	Send(data []byte) bool
	// Ping asks the transport to emit a heartbeat ping.
	Ping() bool
	// Close sends a close frame with code and reason, then tears the transport down.
	Close(code int, reason string)
}

type registration struct {
	conn  Conn
	alive bool
}

// Registry tracks live connections by their server-assigned id.
// It is owned by the hub loop and not safe for concurrent use.
type Registry struct {
	conns  map[string]*registration
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*registration),
		logger: logger,
	}
}

// Register assigns a fresh id to conn. Ids are never reused.
func (r *Registry) Register(conn Conn) string {
	id := uuid.NewString()
	r.conns[id] = &registration{conn: conn, alive: true}
	return id
}

// Unregister forgets id and returns its transport.
func (r *Registry) Unregister(id string) (Conn, bool) {
	reg, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	delete(r.conns, id)
	return reg.conn, true
}

func (r *Registry) IsLive(id string) bool {
	_, ok := r.conns[id]
	return ok
}

func (r *Registry) Conn(id string) (Conn, bool) {
	reg, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return reg.conn, true
}

// Send is fire-and-forget: unknown ids are ignored and a full outbound
// buffer drops the frame with a warning.
func (r *Registry) Send(id string, data []byte) {
	reg, ok := r.conns[id]
	if !ok {
		return
	}
	if !reg.conn.Send(data) {
		r.logger.Warn("Dropping outbound frame", "client", id, "bytes", len(data))
	}
}

// IDs returns every live id in no particular order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Len() int {
	return len(r.conns)
}

// MarkAlive records a pong from id.
func (r *Registry) MarkAlive(id string) {
	if reg, ok := r.conns[id]; ok {
		reg.alive = true
	}
}

// Sweep pings every connection that answered the previous ping and returns
// the ids that did not.
func (r *Registry) Sweep() []string {
	var dead []string
	for id, reg := range r.conns {
		if !reg.alive {
			dead = append(dead, id)
			continue
		}
		reg.alive = false
		reg.conn.Ping()
	}
	return dead
}
