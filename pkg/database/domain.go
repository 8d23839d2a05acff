package database

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Connection definition connect string & retry setting
type Connection struct {
	ConnectStr string

	RetryCount    int
	RetryInterval time.Duration
}

// MongoDB definition mongo db
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// KafkaConnection definition kafka
type KafkaConnection struct {
	Brokers       []string
	Topic         string
	GroupID       string
	RetryCount    int
	RetryInterval time.Duration
}

// MongoURI build a mongodb:// connect string
func MongoURI(host string, port int, user, password string) string {
	if user == "" {
		return fmt.Sprintf("mongodb://%s:%d", host, port)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%d", user, password, host, port)
}

// PostgresURI build a postgres:// connect string
func PostgresURI(host string, port int, user, password, db string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", user, password, host, port, db)
}
