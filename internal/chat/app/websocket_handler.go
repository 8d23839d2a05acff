package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/config"
	"campus_chat_service/pkg/logger"
	"campus_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 8192
)

// ChatWebsocketHandler push path of the room
type ChatWebsocketHandler struct {
	messageUC *MessageUseCase
	hub       *Hub
	sendRate  rate.Limit
	sendBurst int
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(messageUC *MessageUseCase, hub *Hub, cfg config.RoomConfig) *ChatWebsocketHandler {
	cfg.ApplyDefaults()
	return &ChatWebsocketHandler{
		messageUC: messageUC,
		hub:       hub,
		sendRate:  rate.Limit(cfg.SendRate),
		sendBurst: cfg.SendBurst,
	}
}

type wsSession struct {
	conn    *websocket.Conn
	sub     *Subscriber
	author  domain.Author
	limiter *rate.Limiter
}

// HandleConnection 是 WebSocket 連線的進入點, returns once the peer is gone
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	memberID, _ := conn.Locals(middlewares.TokenMemberID).(string)
	memberName, _ := conn.Locals(middlewares.TokenMemberName).(string)

	s := &wsSession{
		conn:    conn,
		sub:     h.hub.Register(memberID),
		author:  domain.Author{ID: memberID, Name: memberName},
		limiter: rate.NewLimiter(h.sendRate, h.sendBurst),
	}
	logger.Log.Info("websocket open", zap.String("user_id", memberID), zap.String("conn_id", s.sub.ID))

	ctxClose, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(ctxClose, s)
	}()

	defer func() {
		cancel()
		h.hub.Unregister(context.Background(), s.sub)
		<-done
		conn.Close()
		logger.Log.Info("websocket close", zap.String("user_id", memberID), zap.String("conn_id", s.sub.ID))
	}()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	//server發出ping之後client連線正常會回pong
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Debug("connection closed", zap.String("conn_id", s.sub.ID))
			} else {
				//直接斷線 1006
				logger.Log.Warn("websocket read error", zap.String("conn_id", s.sub.ID), zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			h.reply(s, domain.WSResponse{Event: domain.EventError, Error: "unsupported message type"})
			continue
		}
		h.textMessageAction(ctx, s, message)
	}
}

// writePump 唯一寫入 conn 的 goroutine
func (h *ChatWebsocketHandler) writePump(ctx context.Context, s *wsSession) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-s.sub.Messages():
			if !ok {
				_ = s.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "dropped"), time.Now().Add(writeWait))
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logger.Log.Warn("write message error", zap.String("conn_id", s.sub.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, s *wsSession, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		h.reply(s, domain.WSResponse{Event: domain.EventError, Error: domain.ErrInvalidPayload.Error()})
		return
	}

	switch req.Event {
	case domain.EventSendMessage:
		h.sendMessage(ctx, s, req)

	case domain.EventReactMessage:
		if !s.limiter.Allow() {
			logger.Log.Warn("reaction rate limited", zap.String("user_id", s.author.ID))
			return
		}
		var p domain.ReactMessagePayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return
		}
		// 結果只透過廣播回傳
		_ = h.messageUC.ToggleReaction(ctx, s.author, p)

	case domain.EventTyping:
		var p domain.TypingPayload
		if err := json.Unmarshal(req.Data, &p); err != nil {
			return
		}
		h.hub.SetTyping(ctx, s.sub, p.IsTyping)

	default:
		h.reply(s, domain.WSResponse{Event: domain.EventError, AckID: req.AckID, Error: "unknown event"})
	}
}

func (h *ChatWebsocketHandler) sendMessage(ctx context.Context, s *wsSession, req domain.WSRequest) {
	var p domain.SendMessagePayload
	if err := json.Unmarshal(req.Data, &p); err != nil || p.UserID == "" || p.Text == "" {
		h.ack(s, req.AckID, nil, domain.ErrInvalidPayload)
		return
	}
	if !s.limiter.Allow() {
		h.ack(s, req.AckID, nil, domain.ErrRateLimited)
		return
	}

	msg, err := h.messageUC.Send(ctx, SendRequest{
		Author:        s.author,
		ClaimedUserID: p.UserID,
		Text:          p.Text,
		ReplyTo:       p.ReplyTo,
		Source:        domain.SourcePush,
	})
	h.ack(s, req.AckID, msg, err)
}

// ack reply to the requester only. Without an ack id only failures are reported.
func (h *ChatWebsocketHandler) ack(s *wsSession, ackID string, msg *domain.Message, err error) {
	if err == nil {
		if ackID != "" {
			h.reply(s, domain.WSResponse{Event: domain.EventAck, AckID: ackID, Success: true, Data: msg})
		}
		return
	}

	resp := domain.WSResponse{Event: domain.EventAck, AckID: ackID, Error: clientMessage(err)}
	if ackID == "" {
		resp.Event = domain.EventError
	}
	h.reply(s, resp)
}

func (h *ChatWebsocketHandler) reply(s *wsSession, resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("response encode", zap.Error(err))
		return
	}
	h.hub.SendTo(s.sub, b)
}

// clientMessage error text safe to show the submitter
func clientMessage(err error) string {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Msg
	case errors.Is(err, domain.ErrUnauthorized):
		return "Not allowed"
	case errors.Is(err, domain.ErrRateLimited):
		return "Too many messages, slow down"
	default:
		return "Failed to send message"
	}
}
