package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/linlinlin-zhang/stream2graph/internal/metrics"
	"github.com/linlinlin-zhang/stream2graph/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Broker fans out each newly dispatched session.Event to every live
// websocket subscriber for that session id.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan session.Event]struct{}
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[chan session.Event]struct{})}
}

// Subscribe registers a new channel for sessionID and returns it plus an
// unsubscribe function.
func (b *Broker) Subscribe(sessionID string) (chan session.Event, func()) {
	ch := make(chan session.Event, 16)
	b.mu.Lock()
	if b.subs[sessionID] == nil {
		b.subs[sessionID] = make(map[chan session.Event]struct{})
	}
	b.subs[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subs[sessionID], ch)
		if len(b.subs[sessionID]) == 0 {
			delete(b.subs, sessionID)
		}
		b.mu.Unlock()
		close(ch)
	}
}

// Publish forwards ev to every current subscriber of sessionID, dropping it
// for any subscriber whose buffer is full rather than blocking ingest.
func (b *Broker) Publish(sessionID string, ev session.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[sessionID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// handleSessionStream upgrades GET /api/session/stream?session_id= to a
// websocket and forwards each render frame/update pair as it is ingested.
func (s *Server) handleSessionStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, `{"ok":false,"error":"session_id required"}`, http.StatusBadRequest)
		return
	}
	if _, err := s.registry.Get(sessionID); err != nil {
		http.Error(w, `{"ok":false,"error":"unknown session"}`, http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	metrics.WebsocketConnections.Inc()
	defer metrics.WebsocketConnections.Dec()

	ch, unsubscribe := s.broker.Subscribe(sessionID)
	defer unsubscribe()

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}
