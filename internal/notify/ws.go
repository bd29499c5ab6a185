package notify

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/accessible-dispatch/internal/models"
)

var ErrNoSession = errors.New("no ws session")

// Session is a connected driver app.
type Session struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *Session) Send(result models.DispatchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(result)
}

// Registry holds live driver sessions and pushes assignments to them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{sessions: make(map[string]*Session), logger: logger}
}

func (r *Registry) Add(driverID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[driverID] = &Session{conn: conn}
}

func (r *Registry) Remove(driverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, driverID)
}

// Offer pushes the assignment to the driver's session, if any.
func (r *Registry) Offer(driverID string, result models.DispatchResult) error {
	r.mu.RLock()
	s, ok := r.sessions[driverID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(result); err != nil {
		r.logger.Warn("ws send failed", "driver_id", driverID, "error", err)
		return err
	}
	return nil
}
