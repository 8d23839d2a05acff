package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"campus_chat_service/internal/chat/domain"
)

// TempPrefix id prefix of optimistic local entries
const TempPrefix = "temp-"

// Reply frozen view of the message being replied to
type Reply struct {
	ID         string
	Text       string
	AuthorID   string
	AuthorName string
}

// Entry one row of the local message list
type Entry struct {
	ID         string
	AuthorID   string
	AuthorName string
	Text       string
	Timestamp  time.Time
	ReplyTo    *Reply
	Reactions  []domain.Reaction

	// Optimistic entry created locally and not yet confirmed by the server
	Optimistic bool
	// Failed send gave up, entry kept visible but unconfirmed
	Failed bool
}

// ReplyToID id of the reply target, empty when not a reply
func (e Entry) ReplyToID() string {
	if e.ReplyTo == nil {
		return ""
	}
	return e.ReplyTo.ID
}

func (e Entry) clone() Entry {
	if e.ReplyTo != nil {
		r := *e.ReplyTo
		e.ReplyTo = &r
	}
	e.Reactions = append([]domain.Reaction(nil), e.Reactions...)
	return e
}

type wireMessage struct {
	ID        string            `json:"_id"`
	UserID    string            `json:"userId"`
	User      json.RawMessage   `json:"user"`
	Text      string            `json:"text"`
	Timestamp time.Time         `json:"timestamp"`
	ReplyTo   json.RawMessage   `json:"replyTo"`
	Reactions []domain.Reaction `json:"reactions"`
}

type wireUser struct {
	ID       string `json:"_id"`
	AltID    string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// DecodeMessage turn a server message into an Entry.
// The author may arrive as a display name string or as a user object.
func DecodeMessage(raw []byte) (Entry, error) {
	var w wireMessage
	if err := json.Unmarshal(raw, &w); err != nil {
		return Entry{}, fmt.Errorf("decode message: %w", err)
	}
	if w.ID == "" {
		return Entry{}, fmt.Errorf("decode message: missing _id")
	}

	authorID, authorName := decodeAuthor(w.User)
	if w.UserID != "" {
		authorID = w.UserID
	}

	reply, err := decodeReply(w.ReplyTo)
	if err != nil {
		return Entry{}, err
	}

	return Entry{
		ID:         w.ID,
		AuthorID:   authorID,
		AuthorName: authorName,
		Text:       w.Text,
		Timestamp:  w.Timestamp,
		ReplyTo:    reply,
		Reactions:  w.Reactions,
	}, nil
}

// DecodeMessages decode a list, skipping nothing: one bad row fails the batch
func DecodeMessages(raws []json.RawMessage) ([]Entry, error) {
	out := make([]Entry, 0, len(raws))
	for _, r := range raws {
		e, err := DecodeMessage(r)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func decodeAuthor(raw json.RawMessage) (id, name string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", domain.UnknownAuthor
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			s = domain.UnknownAuthor
		}
		return "", s
	}

	var u wireUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return "", domain.UnknownAuthor
	}
	id = u.ID
	if id == "" {
		id = u.AltID
	}
	name = u.Name
	if name == "" {
		name = u.Username
	}
	if name == "" {
		name = domain.UnknownAuthor
	}
	return id, name
}

func decodeReply(raw json.RawMessage) (*Reply, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	// 只有 id 的情況 (尚未展開)
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		if id == "" {
			return nil, nil
		}
		return &Reply{ID: id}, nil
	}

	var w struct {
		ID     string          `json:"_id"`
		Text   string          `json:"text"`
		User   json.RawMessage `json:"user"`
		UserID string          `json:"userId"`
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode replyTo: %w", err)
	}
	if w.ID == "" {
		return nil, nil
	}
	authorID, authorName := decodeAuthor(w.User)
	if w.UserID != "" {
		authorID = w.UserID
	}
	return &Reply{ID: w.ID, Text: w.Text, AuthorID: authorID, AuthorName: authorName}, nil
}
