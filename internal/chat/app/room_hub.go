package app

import (
	"context"
	"encoding/json"
	"sync"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/internal/chat/repository"
	"campus_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sendBuffer = 256

// Broadcaster fan-out of room events to every member, sender included
type Broadcaster interface {
	Broadcast(ctx context.Context, event domain.Event, data interface{}) error
}

// Subscriber one push connection joined to the room
type Subscriber struct {
	ID     string
	UserID string
	send   chan []byte
}

// Messages frames queued for this connection, closed on unregister
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

// Hub 單一聊天室的連線表, process scoped
type Hub struct {
	room    string
	origin  string
	pubsub  repository.PubSub
	mu      sync.RWMutex
	clients map[string]*Subscriber
	typing  map[string]string // connID -> userID
}

// NewHub create Hub, pubsub may be nil for a single instance
func NewHub(room string, pubsub repository.PubSub) *Hub {
	return &Hub{
		room:    room,
		origin:  uuid.NewString(),
		pubsub:  pubsub,
		clients: make(map[string]*Subscriber),
		typing:  make(map[string]string),
	}
}

// Size connections on this instance
func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Register join a connection to the room
func (h *Hub) Register(userID string) *Subscriber {
	s := &Subscriber{ID: uuid.NewString(), UserID: userID, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[s.ID] = s
	h.mu.Unlock()

	connectionsOpen.Inc()
	logger.Log.Debug("room join", zap.String("room", h.room), zap.String("conn_id", s.ID), zap.String("user_id", userID))
	return s
}

// Unregister remove the connection and clear any typing flag it left behind
func (h *Hub) Unregister(ctx context.Context, s *Subscriber) {
	h.mu.Lock()
	_, ok := h.clients[s.ID]
	if ok {
		delete(h.clients, s.ID)
		close(s.send)
	}
	userID, wasTyping := h.typing[s.ID]
	delete(h.typing, s.ID)
	h.mu.Unlock()

	if !ok {
		return
	}
	connectionsOpen.Dec()
	logger.Log.Debug("room leave", zap.String("room", h.room), zap.String("conn_id", s.ID))

	if wasTyping {
		h.broadcastTyping(ctx, userID, false)
	}
}

// SetTyping record the connection's typing state and broadcast the change
func (h *Hub) SetTyping(ctx context.Context, s *Subscriber, isTyping bool) {
	h.mu.Lock()
	if _, ok := h.clients[s.ID]; !ok {
		// 已被移除的連線不再回報
		h.mu.Unlock()
		return
	}
	if isTyping {
		h.typing[s.ID] = s.UserID
	} else {
		delete(h.typing, s.ID)
	}
	h.mu.Unlock()

	h.broadcastTyping(ctx, s.UserID, isTyping)
}

func (h *Hub) broadcastTyping(ctx context.Context, userID string, isTyping bool) {
	if err := h.Broadcast(ctx, domain.EventUserTyping, domain.TypingPayload{UserID: userID, IsTyping: isTyping}); err != nil {
		logger.Log.Warn("typing broadcast", zap.String("user_id", userID), zap.Error(err))
	}
}

// Broadcast deliver to local connections then publish for the other instances
func (h *Hub) Broadcast(ctx context.Context, event domain.Event, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	stopped := h.deliver(event, raw)

	if h.pubsub != nil {
		err = h.pubsub.Publish(ctx, repository.RoomChannel(h.room), domain.RoomEvent{
			Origin: h.origin,
			Event:  event,
			Data:   raw,
		})
	}
	h.clearTyping(ctx, stopped)
	return err
}

// Listen relay events published by other instances until ctx is done
func (h *Hub) Listen(ctx context.Context) error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Subscribe(ctx, repository.RoomChannel(h.room), func(e domain.RoomEvent) {
		if e.Origin == h.origin {
			return
		}
		h.clearTyping(ctx, h.deliver(e.Event, e.Data))
	})
}

// clearTyping announce the stop for users whose connection was dropped mid-typing
func (h *Hub) clearTyping(ctx context.Context, userIDs []string) {
	for _, userID := range userIDs {
		h.broadcastTyping(ctx, userID, false)
	}
}

// SendTo queue a frame for one connection only, dropped if its buffer is full
func (h *Hub) SendTo(s *Subscriber, frame []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[s.ID]; !ok {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

// deliver queue the frame on every local connection. It returns the users of
// dropped connections that were typing; the caller broadcasts their stop once h.mu is released.
func (h *Hub) deliver(event domain.Event, raw json.RawMessage) []string {
	frame, err := json.Marshal(domain.WSResponse{Event: event, Success: true, Data: raw})
	if err != nil {
		logger.Log.Error("frame encode", zap.String("event", string(event)), zap.Error(err))
		return nil
	}

	var stopped []string

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		select {
		case c.send <- frame:
		default:
			// 跟不上的連線直接移除
			close(c.send)
			delete(h.clients, id)
			if userID, ok := h.typing[id]; ok {
				stopped = append(stopped, userID)
				delete(h.typing, id)
			}
			connectionsOpen.Dec()
			broadcastDropped.Inc()
			logger.Log.Warn("slow connection dropped", zap.String("conn_id", id), zap.String("user_id", c.UserID))
		}
	}
	return stopped
}
