package database

import (
	"context"
	"time"

	"campus_chat_service/pkg/logger"

	"github.com/jackc/pgx/v4/pgxpool"
	"go.uber.org/zap"
)

// NewDatabaseConnection create a new postgreSQL connection pool
func NewDatabaseConnection(ctx context.Context, d Connection) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(d.ConnectStr)
	if err != nil {
		return nil, err
	}

	var pool *pgxpool.Pool
	for i := 0; i < d.RetryCount; i++ {
		pool, err = pgxpool.ConnectConfig(ctx, dbConfig)
		if err == nil {
			return pool, nil
		}
		logger.Log.Warn(
			"Failed to connect to postgreSQL database, retrying...",
			zap.Int("attempt", i+1),
			zap.String("host", dbConfig.ConnConfig.Host),
			zap.Error(err),
		)
		time.Sleep(d.RetryInterval)
	}

	return pool, err
}
