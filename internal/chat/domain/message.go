package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"campus_chat_service/pkg"
)

// Collection mongo collection holding the room messages
const Collection = "chat_messages"

// DefaultHistoryLimit newest messages returned by a history fetch
const DefaultHistoryLimit = 50

// MaxTextLength characters allowed in a message body
const MaxTextLength = 500

// UnknownAuthor display name used when the author cannot be resolved
const UnknownAuthor = "Unknown"

// Emojis fixed reaction palette
var Emojis = []string{"👍", "❤️", "😂", "😮", "😢", "🔥"}

// Message 表示一則聊天訊息. Immutable except Reactions.
type Message struct {
	ID        string         `bson:"_id" json:"_id"`
	UserID    string         `bson:"user_id" json:"userId"`
	UserName  string         `bson:"user_name" json:"user"`
	Text      string         `bson:"text" json:"text"`
	Timestamp time.Time      `bson:"created_at" json:"timestamp"`
	ReplyToID string         `bson:"reply_to,omitempty" json:"-"`
	ReplyTo   *ReplySnapshot `bson:"-" json:"replyTo"`
	Reactions []Reaction     `bson:"reactions" json:"reactions"`
}

// Reaction one user's emoji on a message
type Reaction struct {
	Emoji  string `bson:"emoji" json:"emoji"`
	UserID string `bson:"user_id" json:"userId"`
}

// ReplySnapshot frozen view of the replied-to message
type ReplySnapshot struct {
	ID     string `json:"_id"`
	Text   string `json:"text"`
	User   string `json:"user"`
	UserID string `json:"userId"`
}

// Author resolved identity of a message writer
type Author struct {
	ID   string
	Name string
}

// Snapshot build the reply view of m
func (m *Message) Snapshot() *ReplySnapshot {
	return &ReplySnapshot{ID: m.ID, Text: m.Text, User: m.UserName, UserID: m.UserID}
}

// Normalize fill nil slices so the wire form always carries reactions:[]
func (m *Message) Normalize() {
	if m.Reactions == nil {
		m.Reactions = []Reaction{}
	}
	if m.UserName == "" {
		m.UserName = UnknownAuthor
	}
}

// IsAllowedEmoji check emoji is part of the palette
func IsAllowedEmoji(emoji string) bool {
	return pkg.Contains(Emojis, emoji)
}

// CleanText trim text and check it fits in maxLen characters
func CleanText(text string, maxLen int) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", ErrTextRequired
	}
	if maxLen > 0 && utf8.RuneCountInString(t) > maxLen {
		return "", ErrTextTooLong
	}
	return t, nil
}

// HasReaction check userID already reacted with emoji
func HasReaction(reactions []Reaction, userID, emoji string) bool {
	for _, r := range reactions {
		if r.UserID == userID && r.Emoji == emoji {
			return true
		}
	}
	return false
}

// ToggleReaction return a new set with (userID, emoji) removed if present, otherwise appended
func ToggleReaction(reactions []Reaction, userID, emoji string) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	removed := false
	for _, r := range reactions {
		if r.UserID == userID && r.Emoji == emoji {
			removed = true
			continue
		}
		out = append(out, r)
	}
	if !removed {
		out = append(out, Reaction{Emoji: emoji, UserID: userID})
	}
	return out
}

// ReactionCount emoji with how many users picked it
type ReactionCount struct {
	Emoji   string
	Count   int
	Reacted bool
}

// SummarizeReactions group reactions by emoji in first-seen order, Reacted marks viewerID's picks
func SummarizeReactions(reactions []Reaction, viewerID string) []ReactionCount {
	idx := map[string]int{}
	var out []ReactionCount
	for _, r := range reactions {
		i, ok := idx[r.Emoji]
		if !ok {
			i = len(out)
			idx[r.Emoji] = i
			out = append(out, ReactionCount{Emoji: r.Emoji})
		}
		out[i].Count++
		if r.UserID == viewerID {
			out[i].Reacted = true
		}
	}
	return out
}
