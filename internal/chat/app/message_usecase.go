package app

import (
	"context"
	"errors"
	"fmt"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/internal/chat/repository"
	"campus_chat_service/pkg/config"
	"campus_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// SendRequest compose request from either transport
type SendRequest struct {
	Author        domain.Author // from the verified token
	ClaimedUserID string        // userId in the payload, optional
	Text          string
	ReplyTo       string
	Source        domain.Source
}

// MessageUseCase 負責處理聊天訊息
type MessageUseCase struct {
	msgRepo   repository.MessageRepository
	members   repository.MemberRepository
	broadcast Broadcaster
	cfg       config.RoomConfig
}

// NewMessageUseCase init message use case, members may be nil
func NewMessageUseCase(
	msgRepo repository.MessageRepository,
	members repository.MemberRepository,
	broadcast Broadcaster,
	cfg config.RoomConfig,
) *MessageUseCase {
	cfg.ApplyDefaults()
	return &MessageUseCase{
		msgRepo:   msgRepo,
		members:   members,
		broadcast: broadcast,
		cfg:       cfg,
	}
}

func traceState(state domain.IngestState, req SendRequest, fields ...zap.Field) {
	logger.Log.Debug("compose "+string(state),
		append(fields, zap.String("user_id", req.Author.ID), zap.String("source", string(req.Source)))...)
}

// Send validate, persist and broadcast a message. The returned message is canonical.
func (uc *MessageUseCase) Send(ctx context.Context, req SendRequest) (*domain.Message, error) {
	traceState(domain.StateReceived, req)

	if req.Author.ID == "" {
		messagesRejected.WithLabelValues(string(req.Source)).Inc()
		return nil, fmt.Errorf("compose: %w", domain.ErrUnauthorized)
	}
	if req.ClaimedUserID != "" && req.ClaimedUserID != req.Author.ID {
		messagesRejected.WithLabelValues(string(req.Source)).Inc()
		traceState(domain.StateRejected, req, zap.String("claimed", req.ClaimedUserID))
		return nil, fmt.Errorf("compose as %s: %w", req.ClaimedUserID, domain.ErrUnauthorized)
	}

	maxLen := uc.cfg.MaxTextLength
	if req.Source == domain.SourceSystem {
		maxLen = 0
	}
	text, err := domain.CleanText(req.Text, maxLen)
	if err != nil {
		messagesRejected.WithLabelValues(string(req.Source)).Inc()
		traceState(domain.StateRejected, req, zap.Error(err))
		return nil, err
	}

	author := uc.resolveAuthor(ctx, req.Author)

	traceState(domain.StatePersisting, req)
	msg, err := uc.msgRepo.Append(ctx, author, text, req.ReplyTo)
	if err != nil {
		logger.Log.Error("append message", zap.String("user_id", author.ID), zap.Error(err))
		return nil, err
	}
	messagesPersisted.WithLabelValues(string(req.Source)).Inc()
	traceState(domain.StatePersisted, req, zap.String("message_id", msg.ID))

	if msg.ReplyToID != "" {
		window := []domain.Message{*msg}
		if err := uc.msgRepo.ResolveReplyTargets(ctx, window); err != nil {
			// 已寫入，回覆快照缺失不影響送出, keep the id so clients can still reconcile
			logger.Log.Warn("resolve reply target", zap.String("message_id", msg.ID), zap.Error(err))
			msg.ReplyTo = &domain.ReplySnapshot{ID: msg.ReplyToID}
		} else {
			msg = &window[0]
		}
	}

	if err := uc.broadcast.Broadcast(ctx, domain.EventReceiveMessage, msg); err != nil {
		logger.Log.Error("broadcast message", zap.String("message_id", msg.ID), zap.Error(err))
	} else {
		traceState(domain.StatePublished, req, zap.String("message_id", msg.ID))
	}
	return msg, nil
}

// ToggleReaction flip (user, emoji) on a message and broadcast the full set.
// Toggles on missing messages are dropped and reported as ErrNotFound.
func (uc *MessageUseCase) ToggleReaction(ctx context.Context, author domain.Author, req domain.ReactMessagePayload) error {
	if req.MessageID == "" || req.Emoji == "" {
		reactionToggles.WithLabelValues(string(domain.StateDropped)).Inc()
		return domain.ErrInvalidPayload
	}
	if req.UserID != "" && req.UserID != author.ID {
		reactionToggles.WithLabelValues(string(domain.StateDropped)).Inc()
		return fmt.Errorf("react as %s: %w", req.UserID, domain.ErrUnauthorized)
	}
	if !domain.IsAllowedEmoji(req.Emoji) {
		reactionToggles.WithLabelValues(string(domain.StateDropped)).Inc()
		return domain.ErrInvalidEmoji
	}

	reactions, err := uc.msgRepo.ToggleReaction(ctx, req.MessageID, author.ID, req.Emoji)
	if err != nil {
		reactionToggles.WithLabelValues(string(domain.StateDropped)).Inc()
		if errors.Is(err, domain.ErrNotFound) {
			logger.Log.Warn("reaction toggle dropped, message missing",
				zap.String("message_id", req.MessageID), zap.String("user_id", author.ID))
		} else {
			logger.Log.Error("reaction toggle", zap.String("message_id", req.MessageID), zap.Error(err))
		}
		return err
	}
	reactionToggles.WithLabelValues(string(domain.StateApplied)).Inc()

	if err := uc.broadcast.Broadcast(ctx, domain.EventReactionUpdated, domain.ReactionsPayload{
		MessageID: req.MessageID,
		Reactions: reactions,
	}); err != nil {
		logger.Log.Error("broadcast reactions", zap.String("message_id", req.MessageID), zap.Error(err))
	}
	return nil
}

// History recent window, oldest first
func (uc *MessageUseCase) History(ctx context.Context) ([]domain.Message, error) {
	msgs, err := uc.msgRepo.RecentWindow(ctx, uc.cfg.HistoryLimit)
	if err != nil {
		logger.Log.Error("load history", zap.Error(err))
		return nil, err
	}
	return msgs, nil
}

// PostSystemMessage append a system-authored message and broadcast it
func (uc *MessageUseCase) PostSystemMessage(ctx context.Context, text string) (*domain.Message, error) {
	return uc.Send(ctx, SendRequest{
		Author: domain.Author{ID: uc.cfg.SystemUserID, Name: uc.cfg.SystemUserName},
		Text:   text,
		Source: domain.SourceSystem,
	})
}

// NotifyReport announce a report create/update in the room
func (uc *MessageUseCase) NotifyReport(ctx context.Context, ev domain.ReportEvent) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	_, err := uc.PostSystemMessage(ctx, ev.SystemText())
	return err
}

func (uc *MessageUseCase) resolveAuthor(ctx context.Context, a domain.Author) domain.Author {
	if uc.members == nil || a.ID == uc.cfg.SystemUserID {
		if a.Name == "" {
			a.Name = domain.UnknownAuthor
		}
		return a
	}

	m, err := uc.members.FindByID(ctx, a.ID)
	switch {
	case err == nil && m.Name != "":
		a.Name = m.Name
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		logger.Log.Warn("member lookup", zap.String("user_id", a.ID), zap.Error(err))
	}
	if a.Name == "" {
		a.Name = domain.UnknownAuthor
	}
	return a
}
