package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/database"
	errprocess "campus_chat_service/pkg/err"
	"campus_chat_service/pkg/logger"

	"github.com/jackc/pgx/v4"
	"go.uber.org/zap"
)

// rowQuerier subset of *pgxpool.Pool used here
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// MemberRepository definition display name lookup
type MemberRepository interface {
	FindByID(ctx context.Context, userID string) (*domain.Member, error)
}

type memberRepository struct {
	db    rowQuerier
	cache database.RedisRepository[domain.Member]
	ttl   time.Duration
}

// NewMemberRepository create a MemberRepository over the users table, cache may be nil
func NewMemberRepository(db rowQuerier, cache database.RedisRepository[domain.Member], ttl time.Duration) MemberRepository {
	return &memberRepository{db: db, cache: cache, ttl: ttl}
}

func (r *memberRepository) FindByID(ctx context.Context, userID string) (*domain.Member, error) {
	if r.cache != nil {
		m, err := r.cache.Get(ctx, userID)
		if err == nil {
			return &m, nil
		}
		if !errors.Is(err, database.ErrCacheMiss) {
			logger.Log.Warn("member cache read", zap.String("user_id", userID), zap.Error(err))
		}
	}

	var m domain.Member
	err := r.db.QueryRow(ctx, "SELECT id, name FROM users WHERE id = $1", userID).Scan(&m.ID, &m.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("member %s: %w", userID, domain.ErrNotFound)
		}
		return nil, errprocess.Wrap(domain.ErrStore, "member lookup", zap.String("user_id", userID), zap.Error(err))
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, userID, m, r.ttl); err != nil {
			logger.Log.Warn("member cache write", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return &m, nil
}
