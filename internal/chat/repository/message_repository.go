package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg"
	errprocess "campus_chat_service/pkg/err"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// toggle retries when the message changes between the $pull and $push attempts
const maxToggleAttempts = 5

// MessageRepository definition community room message store
type MessageRepository interface {
	// Append 寫入一筆訊息, id and timestamp are assigned here
	Append(ctx context.Context, author domain.Author, text, replyToID string) (*domain.Message, error)
	// ToggleReaction 新增或移除 (userID, emoji), returns the resulting set
	ToggleReaction(ctx context.Context, messageID, userID, emoji string) ([]domain.Reaction, error)
	// RecentWindow newest limit messages, oldest first
	RecentWindow(ctx context.Context, limit int) ([]domain.Message, error)
	// ResolveReplyTargets expand each ReplyToID into a snapshot, dangling ids become nil
	ResolveReplyTargets(ctx context.Context, msgs []domain.Message) error
	EnsureIndexes(ctx context.Context) error
}

type chatMessageRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoChatMessageRepository create a MessageRepository
func NewMongoChatMessageRepository(db *mongo.Database) MessageRepository {
	return &chatMessageRepository{
		coll: db.Collection(domain.Collection),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func storeErr(op string, err error) error {
	return errprocess.Wrap(domain.ErrStore, "chat messages "+op, zap.Error(err))
}

func (r *chatMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
	})
	if err != nil {
		return storeErr("create index", err)
	}
	return nil
}

func (r *chatMessageRepository) Append(ctx context.Context, author domain.Author, text, replyToID string) (*domain.Message, error) {
	clean, err := domain.CleanText(text, 0)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		// ObjectID hex 依時間遞增
		ID:        primitive.NewObjectID().Hex(),
		UserID:    author.ID,
		UserName:  author.Name,
		Text:      clean,
		Timestamp: r.now(),
		ReplyToID: replyToID,
		Reactions: []domain.Reaction{},
	}
	msg.Normalize()

	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return nil, storeErr("insert message", err)
	}
	return msg, nil
}

func (r *chatMessageRepository) ToggleReaction(ctx context.Context, messageID, userID, emoji string) ([]domain.Reaction, error) {
	match := bson.M{"user_id": userID, "emoji": emoji}
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	for attempt := 0; attempt < maxToggleAttempts; attempt++ {
		// 已存在則移除
		var doc domain.Message
		err := r.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": messageID, "reactions": bson.M{"$elemMatch": match}},
			bson.M{"$pull": bson.M{"reactions": match}},
			after,
		).Decode(&doc)
		if err == nil {
			doc.Normalize()
			return doc.Reactions, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storeErr("pull reaction", err)
		}

		// 不存在則新增
		err = r.coll.FindOneAndUpdate(ctx,
			bson.M{"_id": messageID, "reactions": bson.M{"$not": bson.M{"$elemMatch": match}}},
			bson.M{"$push": bson.M{"reactions": bson.D{{Key: "emoji", Value: emoji}, {Key: "user_id", Value: userID}}}},
			after,
		).Decode(&doc)
		if err == nil {
			doc.Normalize()
			return doc.Reactions, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, storeErr("push reaction", err)
		}

		// neither matched: the message is gone, or a concurrent toggle flipped it in between
		n, err := r.coll.CountDocuments(ctx, bson.M{"_id": messageID})
		if err != nil {
			return nil, storeErr("count message", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("message %s: %w", messageID, domain.ErrNotFound)
		}
	}

	return nil, fmt.Errorf("toggle reaction on %s: %w: too much contention", messageID, domain.ErrStore)
}

func (r *chatMessageRepository) RecentWindow(ctx context.Context, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = domain.DefaultHistoryLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storeErr("find recent", err)
	}

	msgs := []domain.Message{}
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, storeErr("decode recent", err)
	}

	// newest -> oldest 轉為 oldest -> newest
	pkg.Reverse(msgs)

	if err := r.ResolveReplyTargets(ctx, msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *chatMessageRepository) ResolveReplyTargets(ctx context.Context, msgs []domain.Message) error {
	var ids []string
	for i := range msgs {
		msgs[i].Normalize()
		if msgs[i].ReplyToID != "" && !pkg.Contains(ids, msgs[i].ReplyToID) {
			ids = append(ids, msgs[i].ReplyToID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return storeErr("find reply targets", err)
	}
	var parents []domain.Message
	if err := cur.All(ctx, &parents); err != nil {
		return storeErr("decode reply targets", err)
	}

	byID := make(map[string]*domain.Message, len(parents))
	for i := range parents {
		parents[i].Normalize()
		byID[parents[i].ID] = &parents[i]
	}

	for i := range msgs {
		msgs[i].ReplyTo = nil
		if p, ok := byID[msgs[i].ReplyToID]; ok {
			msgs[i].ReplyTo = p.Snapshot()
		}
	}
	return nil
}
