package client

import (
	"sort"
	"strings"
	"sync"
	"time"

	"campus_chat_service/internal/chat/domain"

	"github.com/google/uuid"
)

// Engine local view of the room: ordered entries, typing users,
// the reply being composed and the open reaction picker.
// Safe for concurrent use.
type Engine struct {
	self domain.Author

	mu        sync.Mutex
	entries   []Entry
	typing    map[string]struct{}
	replying  *Reply
	picker    string
	connected bool
	now       func() time.Time
}

// NewEngine create an Engine for the signed in user
func NewEngine(self domain.Author) *Engine {
	return &Engine{
		self:   self,
		typing: make(map[string]struct{}),
		now:    time.Now,
	}
}

// Self signed in user
func (e *Engine) Self() domain.Author {
	return e.self
}

// Compose add an optimistic entry for text and consume the pending reply target
func (e *Engine) Compose(text string) (Entry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Entry{}, domain.ErrTextRequired
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	entry := Entry{
		ID:         TempPrefix + uuid.NewString(),
		AuthorID:   e.self.ID,
		AuthorName: e.self.Name,
		Text:       text,
		Timestamp:  e.now().UTC(),
		ReplyTo:    e.replying,
		Optimistic: true,
	}
	e.replying = nil
	e.entries = append(e.entries, entry)
	return entry.clone(), nil
}

// Merge fold a canonical message into the list.
// Same id replaces in place, then a matching optimistic entry is replaced in place,
// otherwise the message is appended.
func (e *Engine) Merge(in Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.merge(in)
}

// MergeAll fold a history window, oldest first
func (e *Engine) MergeAll(in []Entry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, m := range in {
		e.merge(m)
	}
}

func (e *Engine) merge(in Entry) {
	in = in.clone()
	in.Optimistic = false
	in.Failed = false

	if i := e.indexOf(in.ID); i >= 0 {
		e.entries[i] = in
		return
	}

	text := strings.TrimSpace(in.Text)
	for i, cur := range e.entries {
		if !cur.Optimistic {
			continue
		}
		if cur.AuthorID == in.AuthorID && strings.TrimSpace(cur.Text) == text && cur.ReplyToID() == in.ReplyToID() {
			e.entries[i] = in
			return
		}
	}

	e.entries = append(e.entries, in)
}

func (e *Engine) indexOf(id string) int {
	for i := range e.entries {
		if e.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// ApplyReactions replace a message's reaction set with the server's
func (e *Engine) ApplyReactions(messageID string, reactions []domain.Reaction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexOf(messageID)
	if i < 0 {
		return false
	}
	e.entries[i].Reactions = append([]domain.Reaction(nil), reactions...)
	return true
}

// ToggleReactionLocal flip the user's own reaction ahead of the server broadcast.
// It also closes the reaction picker.
func (e *Engine) ToggleReactionLocal(messageID, emoji string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.picker = ""
	i := e.indexOf(messageID)
	if i < 0 {
		return false
	}
	e.entries[i].Reactions = domain.ToggleReaction(e.entries[i].Reactions, e.self.ID, emoji)
	return true
}

// MarkFailed flag an optimistic entry whose send gave up
func (e *Engine) MarkFailed(tempID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.indexOf(tempID); i >= 0 && e.entries[i].Optimistic {
		e.entries[i].Failed = true
	}
}

// SetTyping add or remove a user from the typing set
func (e *Engine) SetTyping(userID string, isTyping bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if isTyping {
		e.typing[userID] = struct{}{}
		return
	}
	delete(e.typing, userID)
}

// TypingUsers sorted ids of users currently typing
func (e *Engine) TypingUsers() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, 0, len(e.typing))
	for id := range e.typing {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// StartReply point the next Compose at messageID
func (e *Engine) StartReply(messageID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexOf(messageID)
	if i < 0 || e.entries[i].Optimistic {
		return domain.ErrNotFound
	}
	m := e.entries[i]
	e.replying = &Reply{ID: m.ID, Text: m.Text, AuthorID: m.AuthorID, AuthorName: m.AuthorName}
	return nil
}

// CancelReply drop the pending reply target
func (e *Engine) CancelReply() {
	e.mu.Lock()
	e.replying = nil
	e.mu.Unlock()
}

// Replying pending reply target, nil when composing a plain message
func (e *Engine) Replying() *Reply {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.replying == nil {
		return nil
	}
	r := *e.replying
	return &r
}

// OpenPicker open the reaction picker for one message, closing any other
func (e *Engine) OpenPicker(messageID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.indexOf(messageID) < 0 {
		return domain.ErrNotFound
	}
	e.picker = messageID
	return nil
}

// ClosePicker close the reaction picker
func (e *Engine) ClosePicker() {
	e.mu.Lock()
	e.picker = ""
	e.mu.Unlock()
}

// Picker message id the picker is open for, empty when closed
func (e *Engine) Picker() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.picker
}

// SetConnected record push channel state
func (e *Engine) SetConnected(ok bool) {
	e.mu.Lock()
	e.connected = ok
	if !ok {
		// 斷線後無法收到 isTyping:false
		e.typing = make(map[string]struct{})
	}
	e.mu.Unlock()
}

// Connected push channel state
func (e *Engine) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.connected
}

// Messages snapshot of the ordered list
func (e *Engine) Messages() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Entry, len(e.entries))
	for i, m := range e.entries {
		out[i] = m.clone()
	}
	return out
}

// Find entry by id
func (e *Engine) Find(id string) (Entry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if i := e.indexOf(id); i >= 0 {
		return e.entries[i].clone(), true
	}
	return Entry{}, false
}
