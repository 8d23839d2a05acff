package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/config"
	"campus_chat_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrRejected the server answered a push request with a failure
var ErrRejected = errors.New("rejected by server")

// UpdateKind what changed in the engine
type UpdateKind int

const (
	// UpdateMessages entries added or replaced
	UpdateMessages UpdateKind = iota
	// UpdateReactions a reaction set changed
	UpdateReactions
	// UpdateTyping typing set changed
	UpdateTyping
	// UpdateConnection push channel went up or down
	UpdateConnection
	// UpdateError a transient error worth a toast
	UpdateError
)

// Update change notice for the UI
type Update struct {
	Kind      UpdateKind
	MessageID string
	Err       error
}

type inbound struct {
	Event   domain.Event    `json:"event"`
	AckID   string          `json:"ack_id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type ackResult struct {
	entry Entry
	err   error
}

// Session keeps an Engine in sync with the server over the push channel,
// falling back to HTTP when the push channel is down.
type Session struct {
	cfg     config.ChatClient
	engine  *Engine
	api     *HTTPAPI
	dialer  *websocket.Dialer
	typing  *TypingDebouncer
	updates chan Update

	writeMu sync.Mutex
	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan ackResult
}

// NewSession create Session, Run must be started for the push channel
func NewSession(cfg config.ChatClient, engine *Engine) *Session {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.RequestLimit <= 0 {
		cfg.RequestLimit = 10 * time.Second
	}

	s := &Session{
		cfg:     cfg,
		engine:  engine,
		api:     NewHTTPAPI(cfg.Server, cfg.Token, cfg.RequestLimit),
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.RequestLimit},
		updates: make(chan Update, 64),
		pending: make(map[string]chan ackResult),
	}
	s.typing = NewTypingDebouncer(cfg.TypingQuiet, s.sendTyping)
	return s
}

// Engine local state driven by this session
func (s *Session) Engine() *Engine {
	return s.engine
}

// Updates change notices, dropped when the reader falls behind
func (s *Session) Updates() <-chan Update {
	return s.updates
}

func (s *Session) notify(u Update) {
	select {
	case s.updates <- u:
	default:
	}
}

// Run connect, resync and read until ctx is done, reconnecting after each drop
func (s *Session) Run(ctx context.Context) error {
	for {
		conn, err := s.dial(ctx)
		if err != nil {
			logger.Log.Warn("chat connect", zap.String("server", s.cfg.Server), zap.Error(err))
			s.notify(Update{Kind: UpdateError, Err: err})
		} else {
			s.attach(conn)
			if err := s.Resync(ctx); err != nil {
				logger.Log.Warn("history resync", zap.Error(err))
				s.notify(Update{Kind: UpdateError, Err: err})
			}
			s.readLoop(ctx, conn)
			s.detach(conn)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.RetryDelay):
		}
	}
}

// Resync fetch history and merge it, recovering events missed while offline
func (s *Session) Resync(ctx context.Context) error {
	msgs, err := s.api.History(ctx)
	if err != nil {
		return err
	}
	s.engine.MergeAll(msgs)
	s.notify(Update{Kind: UpdateMessages})
	return nil
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := websocketURL(s.cfg.Server)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.cfg.Token)

	conn, resp, err := s.dialer.DialContext(ctx, u, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("dial %s: %w", u, domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("dial %s: %v: %w", u, err, domain.ErrTransport)
	}
	return conn, nil
}

func websocketURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("server url %q: %w", server, err)
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}

func (s *Session) attach(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.engine.SetConnected(true)
	s.notify(Update{Kind: UpdateConnection})
	logger.Log.Info("chat connected", zap.String("server", s.cfg.Server))
}

func (s *Session) detach(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	pending := s.pending
	s.pending = make(map[string]chan ackResult)
	s.mu.Unlock()

	_ = conn.Close()
	for _, ch := range pending {
		ch <- ackResult{err: fmt.Errorf("connection lost: %w", domain.ErrTransport)}
	}

	s.engine.SetConnected(false)
	s.notify(Update{Kind: UpdateConnection})
	logger.Log.Info("chat disconnected", zap.String("server", s.cfg.Server))
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) && ctx.Err() == nil {
				logger.Log.Warn("chat read", zap.Error(err))
			}
			return
		}
		s.handle(frame)
	}
}

func (s *Session) handle(frame []byte) {
	var in inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		logger.Log.Warn("chat frame decode", zap.Error(err))
		return
	}

	switch in.Event {
	case domain.EventReceiveMessage:
		m, err := DecodeMessage(in.Data)
		if err != nil {
			logger.Log.Warn("receive-message decode", zap.Error(err))
			return
		}
		s.engine.Merge(m)
		s.notify(Update{Kind: UpdateMessages, MessageID: m.ID})

	case domain.EventReactionUpdated:
		var p domain.ReactionsPayload
		if err := json.Unmarshal(in.Data, &p); err != nil {
			logger.Log.Warn("reaction decode", zap.Error(err))
			return
		}
		if s.engine.ApplyReactions(p.MessageID, p.Reactions) {
			s.notify(Update{Kind: UpdateReactions, MessageID: p.MessageID})
		}

	case domain.EventUserTyping:
		var p domain.TypingPayload
		if err := json.Unmarshal(in.Data, &p); err != nil || p.UserID == "" {
			return
		}
		if p.UserID == s.engine.Self().ID {
			return
		}
		s.engine.SetTyping(p.UserID, p.IsTyping)
		s.notify(Update{Kind: UpdateTyping})

	case domain.EventAck:
		s.resolveAck(in)

	case domain.EventError:
		err := fmt.Errorf("%s: %w", in.Error, ErrRejected)
		logger.Log.Warn("chat server error", zap.String("error", in.Error))
		s.notify(Update{Kind: UpdateError, Err: err})

	default:
		logger.Log.Debug("chat event ignored", zap.String("event", string(in.Event)))
	}
}

func (s *Session) expectAck(id string) chan ackResult {
	ch := make(chan ackResult, 1)
	s.mu.Lock()
	s.pending[id] = ch
	s.mu.Unlock()
	return ch
}

func (s *Session) dropAck(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *Session) resolveAck(in inbound) {
	s.mu.Lock()
	ch, ok := s.pending[in.AckID]
	delete(s.pending, in.AckID)
	s.mu.Unlock()
	if !ok {
		return
	}

	if !in.Success {
		ch <- ackResult{err: fmt.Errorf("%s: %w", in.Error, ErrRejected)}
		return
	}
	m, err := DecodeMessage(in.Data)
	ch <- ackResult{entry: m, err: err}
}

func (s *Session) emit(event domain.Event, ackID string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(domain.WSRequest{Event: event, AckID: ackID, Data: raw})
	if err != nil {
		return err
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("emit %s: %w", event, domain.ErrTransport)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("emit %s: %v: %w", event, err, domain.ErrTransport)
	}
	return nil
}

// Send compose text, over the push channel when connected, otherwise over HTTP.
// The optimistic entry stays in the list, flagged failed, when the send gives up.
func (s *Session) Send(ctx context.Context, text string) (Entry, error) {
	entry, err := s.engine.Compose(text)
	if err != nil {
		return Entry{}, err
	}
	s.notify(Update{Kind: UpdateMessages, MessageID: entry.ID})
	s.typing.Stop()

	payload := domain.SendMessagePayload{
		UserID:  s.engine.Self().ID,
		Text:    entry.Text,
		ReplyTo: entry.ReplyToID(),
	}

	if s.engine.Connected() {
		ackID := uuid.NewString()
		wait := s.expectAck(ackID)
		if err := s.emit(domain.EventSendMessage, ackID, payload); err == nil {
			saved, err := s.awaitAck(ctx, ackID, wait)
			return s.settle(entry, saved, err)
		}
		s.dropAck(ackID)
	}

	saved, err := s.api.Post(ctx, payload.Text, payload.ReplyTo)
	return s.settle(entry, saved, err)
}

func (s *Session) awaitAck(ctx context.Context, ackID string, wait chan ackResult) (Entry, error) {
	timer := time.NewTimer(s.cfg.RequestLimit)
	defer timer.Stop()

	select {
	case res := <-wait:
		return res.entry, res.err
	case <-ctx.Done():
		s.dropAck(ackID)
		return Entry{}, ctx.Err()
	case <-timer.C:
		s.dropAck(ackID)
		return Entry{}, fmt.Errorf("ack %s timed out: %w", ackID, domain.ErrTransport)
	}
}

func (s *Session) settle(optimistic, saved Entry, err error) (Entry, error) {
	if err != nil {
		s.engine.MarkFailed(optimistic.ID)
		s.notify(Update{Kind: UpdateError, MessageID: optimistic.ID, Err: err})
		return optimistic, err
	}
	s.engine.Merge(saved)
	s.notify(Update{Kind: UpdateMessages, MessageID: saved.ID})
	return saved, nil
}

// React toggle the user's emoji on a message, locally first then on the server
func (s *Session) React(messageID, emoji string) error {
	if !domain.IsAllowedEmoji(emoji) {
		return domain.ErrInvalidEmoji
	}
	if !s.engine.ToggleReactionLocal(messageID, emoji) {
		return domain.ErrNotFound
	}
	s.notify(Update{Kind: UpdateReactions, MessageID: messageID})

	err := s.emit(domain.EventReactMessage, "", domain.ReactMessagePayload{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    s.engine.Self().ID,
	})
	if err != nil {
		// 沒送出就還原
		s.engine.ToggleReactionLocal(messageID, emoji)
		s.notify(Update{Kind: UpdateReactions, MessageID: messageID})
	}
	return err
}

// Keystroke feed the typing debouncer
func (s *Session) Keystroke() {
	s.typing.Keystroke()
}

func (s *Session) sendTyping(isTyping bool) {
	if !s.engine.Connected() {
		return
	}
	err := s.emit(domain.EventTyping, "", domain.TypingPayload{UserID: s.engine.Self().ID, IsTyping: isTyping})
	if err != nil {
		logger.Log.Debug("typing emit", zap.Error(err))
	}
}
