package client

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"campus_chat_service/internal/chat/domain"

	"github.com/cucumber/godog"
)

func TestReconciliationFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeReconciliationScenario,
		Options: &godog.Options{
			Paths:    []string{"./features"},
			Format:   "pretty",
			Output:   os.Stdout,
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fail()
	}
}

// reconciliationWorld 每個 scenario 一份
type reconciliationWorld struct {
	engine *Engine
}

// InitializeReconciliationScenario 註冊 Gherkin 與 Step Definition 的對應
func InitializeReconciliationScenario(s *godog.ScenarioContext) {
	w := &reconciliationWorld{}
	s.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		w.engine = nil
		return ctx, nil
	})

	s.Step(`^I am signed in as "([^"]*)" named "([^"]*)"$`, w.signedIn)
	s.Step(`^I compose "([^"]*)"$`, w.compose)
	s.Step(`^the server confirms "([^"]*)" from "([^"]*)" as "([^"]*)"$`, w.confirm)
	s.Step(`^the server confirms "([^"]*)" from "([^"]*)" as "([^"]*)" replying to "([^"]*)"$`, w.confirmReply)
	s.Step(`^the room already has "([^"]*)" from "([^"]*)" as "([^"]*)"$`, w.confirm)
	s.Step(`^the list has (\d+) entries$`, w.listHas)
	s.Step(`^entry (\d+) is optimistic with text "([^"]*)"$`, w.entryOptimistic)
	s.Step(`^the ids are "([^"]*)"$`, w.idsAre)
	s.Step(`^the texts are "([^"]*)"$`, w.textsAre)
	s.Step(`^the server reports reactions "([^"]*)" on "([^"]*)"$`, w.serverReactions)
	s.Step(`^I toggle "([^"]*)" on "([^"]*)"$`, w.toggle)
	s.Step(`^"([^"]*)" has reactions "([^"]*)"$`, w.hasReactions)
	s.Step(`^"([^"]*)" has no reactions$`, w.hasNoReactions)
	s.Step(`^I reply to "([^"]*)"$`, w.replyTo)
	s.Step(`^entry (\d+) replies to "([^"]*)" with text "([^"]*)"$`, w.entryReplies)
	s.Step(`^I am not replying to anything$`, w.notReplying)
	s.Step(`^I open the picker on "([^"]*)"$`, w.openPicker)
	s.Step(`^the picker is open on "([^"]*)"$`, w.pickerOn)
	s.Step(`^the picker is closed$`, w.pickerClosed)
	s.Step(`^"([^"]*)" starts typing$`, func(id string) error { w.engine.SetTyping(id, true); return nil })
	s.Step(`^"([^"]*)" stops typing$`, func(id string) error { w.engine.SetTyping(id, false); return nil })
	s.Step(`^the typing users are "([^"]*)"$`, w.typingUsers)
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func parseReactions(s string) []domain.Reaction {
	out := []domain.Reaction{}
	for _, part := range splitList(s) {
		kv := strings.SplitN(part, ":", 2)
		out = append(out, domain.Reaction{Emoji: kv[0], UserID: kv[1]})
	}
	return out
}

func expectEqual(what string, want, got interface{}) error {
	if !reflect.DeepEqual(want, got) {
		return fmt.Errorf("%s: expected %v, got %v", what, want, got)
	}
	return nil
}

func (w *reconciliationWorld) signedIn(id, name string) error {
	w.engine = NewEngine(domain.Author{ID: id, Name: name})
	return nil
}

func (w *reconciliationWorld) compose(text string) error {
	_, err := w.engine.Compose(text)
	return err
}

func (w *reconciliationWorld) confirm(text, authorID, id string) error {
	w.engine.Merge(Entry{ID: id, AuthorID: authorID, AuthorName: authorID, Text: text, Reactions: []domain.Reaction{}})
	return nil
}

func (w *reconciliationWorld) confirmReply(text, authorID, id, replyTo string) error {
	target, ok := w.engine.Find(replyTo)
	if !ok {
		return fmt.Errorf("no message %s to reply to", replyTo)
	}
	w.engine.Merge(Entry{
		ID:        id,
		AuthorID:  authorID,
		Text:      text,
		ReplyTo:   &Reply{ID: target.ID, Text: target.Text, AuthorID: target.AuthorID},
		Reactions: []domain.Reaction{},
	})
	return nil
}

func (w *reconciliationWorld) entry(n string) (Entry, error) {
	i, err := strconv.Atoi(n)
	if err != nil {
		return Entry{}, err
	}
	msgs := w.engine.Messages()
	if i < 1 || i > len(msgs) {
		return Entry{}, fmt.Errorf("entry %d out of range, list has %d", i, len(msgs))
	}
	return msgs[i-1], nil
}

func (w *reconciliationWorld) listHas(n int) error {
	return expectEqual("entries", n, len(w.engine.Messages()))
}

func (w *reconciliationWorld) entryOptimistic(n, text string) error {
	e, err := w.entry(n)
	if err != nil {
		return err
	}
	if !e.Optimistic || !strings.HasPrefix(e.ID, TempPrefix) {
		return fmt.Errorf("entry %s is not optimistic: %+v", n, e)
	}
	return expectEqual("text", text, e.Text)
}

func (w *reconciliationWorld) idsAre(list string) error {
	return expectEqual("ids", splitList(list), ids(w.engine.Messages()))
}

func (w *reconciliationWorld) textsAre(list string) error {
	var texts []string
	for _, m := range w.engine.Messages() {
		texts = append(texts, m.Text)
	}
	return expectEqual("texts", splitList(list), texts)
}

func (w *reconciliationWorld) serverReactions(list, messageID string) error {
	if !w.engine.ApplyReactions(messageID, parseReactions(list)) {
		return fmt.Errorf("no message %s", messageID)
	}
	return nil
}

func (w *reconciliationWorld) toggle(emoji, messageID string) error {
	if !w.engine.ToggleReactionLocal(messageID, emoji) {
		return fmt.Errorf("no message %s", messageID)
	}
	return nil
}

func (w *reconciliationWorld) hasReactions(messageID, list string) error {
	m, ok := w.engine.Find(messageID)
	if !ok {
		return fmt.Errorf("no message %s", messageID)
	}
	return expectEqual("reactions", parseReactions(list), m.Reactions)
}

func (w *reconciliationWorld) hasNoReactions(messageID string) error {
	m, ok := w.engine.Find(messageID)
	if !ok {
		return fmt.Errorf("no message %s", messageID)
	}
	if len(m.Reactions) != 0 {
		return fmt.Errorf("expected no reactions, got %v", m.Reactions)
	}
	return nil
}

func (w *reconciliationWorld) replyTo(messageID string) error {
	return w.engine.StartReply(messageID)
}

func (w *reconciliationWorld) entryReplies(n, targetID, text string) error {
	e, err := w.entry(n)
	if err != nil {
		return err
	}
	if e.ReplyTo == nil {
		return fmt.Errorf("entry %s has no reply snapshot", n)
	}
	if err := expectEqual("reply target", targetID, e.ReplyTo.ID); err != nil {
		return err
	}
	return expectEqual("reply text", text, e.ReplyTo.Text)
}

func (w *reconciliationWorld) notReplying() error {
	if r := w.engine.Replying(); r != nil {
		return fmt.Errorf("still replying to %s", r.ID)
	}
	return nil
}

func (w *reconciliationWorld) openPicker(messageID string) error {
	return w.engine.OpenPicker(messageID)
}

func (w *reconciliationWorld) pickerOn(messageID string) error {
	return expectEqual("picker", messageID, w.engine.Picker())
}

func (w *reconciliationWorld) pickerClosed() error {
	return expectEqual("picker", "", w.engine.Picker())
}

func (w *reconciliationWorld) typingUsers(list string) error {
	return expectEqual("typing", splitList(list), w.engine.TypingUsers())
}
