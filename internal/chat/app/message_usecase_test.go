package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/internal/chat/repository"
	"campus_chat_service/pkg/config"
	"campus_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var ann = domain.Author{ID: "u-ann", Name: "Ann"}

func newUseCase(members repository.MemberRepository) (*MessageUseCase, *MockMessageRepository, *MockBroadcaster) {
	logger.SetNewNop()
	repo := new(MockMessageRepository)
	bc := new(MockBroadcaster)
	return NewMessageUseCase(repo, members, bc, config.RoomConfig{}), repo, bc
}

func canonical(id, text string) *domain.Message {
	return &domain.Message{
		ID: id, UserID: ann.ID, UserName: ann.Name, Text: text,
		Timestamp: time.Now(), Reactions: []domain.Reaction{},
	}
}

func TestSendPersistsAndBroadcasts(t *testing.T) {
	uc, repo, bc := newUseCase(nil)
	ctx := context.Background()
	saved := canonical("abc123", "hi")

	repo.On("Append", ctx, ann, "hi", "").Return(saved, nil)
	bc.On("Broadcast", ctx, domain.EventReceiveMessage, saved).Return(nil)

	msg, err := uc.Send(ctx, SendRequest{Author: ann, ClaimedUserID: ann.ID, Text: "  hi ", Source: domain.SourcePush})

	require.NoError(t, err)
	assert.Equal(t, "abc123", msg.ID)
	repo.AssertExpectations(t)
	bc.AssertExpectations(t)
}

func TestSendResolvesReplySnapshot(t *testing.T) {
	uc, repo, bc := newUseCase(nil)
	ctx := context.Background()
	saved := canonical("c1", "yes")
	saved.ReplyToID = "p1"
	snap := &domain.ReplySnapshot{ID: "p1", Text: "parent", User: "Bob", UserID: "u-bob"}

	repo.On("Append", ctx, ann, "yes", "p1").Return(saved, nil)
	repo.On("ResolveReplyTargets", ctx, mock.Anything).Return(snap, nil)
	bc.On("Broadcast", ctx, domain.EventReceiveMessage, mock.MatchedBy(func(m *domain.Message) bool {
		return m.ReplyTo != nil && m.ReplyTo.ID == "p1"
	})).Return(nil)

	msg, err := uc.Send(ctx, SendRequest{Author: ann, Text: "yes", ReplyTo: "p1", Source: domain.SourceHTTP})

	require.NoError(t, err)
	assert.Equal(t, snap, msg.ReplyTo)
	bc.AssertExpectations(t)
}

func TestSendRejections(t *testing.T) {
	cases := []struct {
		name string
		req  SendRequest
		want error
	}{
		{"blank text", SendRequest{Author: ann, Text: "   "}, domain.ErrValidation},
		{"too long", SendRequest{Author: ann, Text: strings.Repeat("x", 501)}, domain.ErrValidation},
		{"no identity", SendRequest{Text: "hi"}, domain.ErrUnauthorized},
		{"impersonation", SendRequest{Author: ann, ClaimedUserID: "u-bob", Text: "hi"}, domain.ErrUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, repo, bc := newUseCase(nil)
			_, err := uc.Send(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
			repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			bc.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSendKeepsReplyIDWhenResolveFails(t *testing.T) {
	uc, repo, bc := newUseCase(nil)
	ctx := context.Background()
	saved := canonical("c1", "yes")
	saved.ReplyToID = "p1"

	repo.On("Append", ctx, ann, "yes", "p1").Return(saved, nil)
	repo.On("ResolveReplyTargets", ctx, mock.Anything).Return(nil, fmt.Errorf("find: %w", domain.ErrStore))
	bc.On("Broadcast", ctx, domain.EventReceiveMessage, mock.MatchedBy(func(m *domain.Message) bool {
		return m.ReplyTo != nil && m.ReplyTo.ID == "p1"
	})).Return(nil)

	msg, err := uc.Send(ctx, SendRequest{Author: ann, Text: "yes", ReplyTo: "p1", Source: domain.SourcePush})

	require.NoError(t, err)
	require.NotNil(t, msg.ReplyTo)
	assert.Equal(t, &domain.ReplySnapshot{ID: "p1"}, msg.ReplyTo)
	bc.AssertExpectations(t)
}

func TestSendStoreFailureIsNotBroadcast(t *testing.T) {
	uc, repo, bc := newUseCase(nil)
	ctx := context.Background()
	repo.On("Append", ctx, ann, "hi", "").Return(nil, fmt.Errorf("insert: %w", domain.ErrStore))

	_, err := uc.Send(ctx, SendRequest{Author: ann, Text: "hi"})

	assert.ErrorIs(t, err, domain.ErrStore)
	bc.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendBroadcastFailureStillReturnsMessage(t *testing.T) {
	uc, repo, bc := newUseCase(nil)
	ctx := context.Background()
	saved := canonical("m1", "hi")
	repo.On("Append", ctx, ann, "hi", "").Return(saved, nil)
	bc.On("Broadcast", ctx, domain.EventReceiveMessage, saved).Return(errors.New("redis down"))

	msg, err := uc.Send(ctx, SendRequest{Author: ann, Text: "hi"})

	require.NoError(t, err)
	assert.Equal(t, saved, msg)
}

func TestSendUsesMemberDirectoryName(t *testing.T) {
	members := new(MockMemberRepository)
	uc, repo, bc := newUseCase(members)
	ctx := context.Background()

	members.On("FindByID", ctx, "u-ann").Return(&domain.Member{ID: "u-ann", Name: "Ann Lee"}, nil)
	repo.On("Append", ctx, domain.Author{ID: "u-ann", Name: "Ann Lee"}, "hi", "").Return(canonical("m1", "hi"), nil)
	bc.On("Broadcast", ctx, domain.EventReceiveMessage, mock.Anything).Return(nil)

	_, err := uc.Send(ctx, SendRequest{Author: ann, Text: "hi"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSendFallsBackToTokenName(t *testing.T) {
	members := new(MockMemberRepository)
	uc, repo, bc := newUseCase(members)
	ctx := context.Background()

	members.On("FindByID", ctx, "u-ann").Return(nil, errors.New("pg down"))
	repo.On("Append", ctx, ann, "hi", "").Return(canonical("m1", "hi"), nil)
	bc.On("Broadcast", ctx, domain.EventReceiveMessage, mock.Anything).Return(nil)

	_, err := uc.Send(ctx, SendRequest{Author: ann, Text: "hi"})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestToggleReactionBroadcastsFullSet(t *testing.T) {
	uc, repo, bc := newUseCase(nil)
	ctx := context.Background()
	set := []domain.Reaction{{Emoji: "👍", UserID: "u-bob"}, {Emoji: "👍", UserID: ann.ID}}

	repo.On("ToggleReaction", ctx, "m1", ann.ID, "👍").Return(set, nil)
	bc.On("Broadcast", ctx, domain.EventReactionUpdated, domain.ReactionsPayload{MessageID: "m1", Reactions: set}).Return(nil)

	err := uc.ToggleReaction(ctx, ann, domain.ReactMessagePayload{MessageID: "m1", Emoji: "👍", UserID: ann.ID})

	require.NoError(t, err)
	bc.AssertExpectations(t)
}

func TestToggleReactionDropped(t *testing.T) {
	cases := []struct {
		name string
		req  domain.ReactMessagePayload
		repo error
		want error
	}{
		{"missing message", domain.ReactMessagePayload{MessageID: "gone", Emoji: "👍"}, fmt.Errorf("x: %w", domain.ErrNotFound), domain.ErrNotFound},
		{"emoji outside palette", domain.ReactMessagePayload{MessageID: "m1", Emoji: "🦄"}, nil, domain.ErrValidation},
		{"empty payload", domain.ReactMessagePayload{}, nil, domain.ErrValidation},
		{"other user", domain.ReactMessagePayload{MessageID: "m1", Emoji: "👍", UserID: "u-bob"}, nil, domain.ErrUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, repo, bc := newUseCase(nil)
			ctx := context.Background()
			if tc.repo != nil {
				repo.On("ToggleReaction", ctx, tc.req.MessageID, ann.ID, tc.req.Emoji).Return(nil, tc.repo)
			}

			err := uc.ToggleReaction(ctx, ann, tc.req)

			assert.ErrorIs(t, err, tc.want)
			bc.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHistoryUsesConfiguredLimit(t *testing.T) {
	uc, repo, _ := newUseCase(nil)
	ctx := context.Background()
	window := []domain.Message{*canonical("a", "1"), *canonical("b", "2")}
	repo.On("RecentWindow", ctx, 50).Return(window, nil)

	got, err := uc.History(ctx)

	require.NoError(t, err)
	assert.Equal(t, window, got)
}

func TestNotifyReportPostsSystemMessage(t *testing.T) {
	uc, repo, bc := newUseCase(nil)
	ctx := context.Background()
	ev := domain.ReportEvent{Title: "Flooded corridor", Categories: []string{"Facilities"}, Status: "open", Action: domain.ReportCreated}
	system := domain.Author{ID: "system", Name: "System"}
	saved := &domain.Message{ID: "s1", UserID: "system", UserName: "System", Text: ev.SystemText()}

	repo.On("Append", ctx, system, "Case Facilities: Flooded corridor has been created. Status: open", "").Return(saved, nil)
	bc.On("Broadcast", ctx, domain.EventReceiveMessage, saved).Return(nil)

	require.NoError(t, uc.NotifyReport(ctx, ev))
	repo.AssertExpectations(t)

	assert.ErrorIs(t, uc.NotifyReport(ctx, domain.ReportEvent{}), domain.ErrValidation)
}
