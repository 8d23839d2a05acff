package tui

import (
	"context"
	"testing"

	"campus_chat_service/internal/chat/client"
	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/config"
	"campus_chat_service/pkg/logger"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) *Model {
	logger.SetNewNop()
	engine := client.NewEngine(domain.Author{ID: "u1", Name: "Ann"})
	engine.Merge(client.Entry{ID: "m1", AuthorID: "u2", AuthorName: "Bob", Text: "the hall light is out"})
	engine.Merge(client.Entry{ID: "m2", AuthorID: "u1", AuthorName: "Ann", Text: "reported it",
		Reactions: []domain.Reaction{{Emoji: "👍", UserID: "u2"}, {Emoji: "👍", UserID: "u1"}}})

	s := client.NewSession(config.ChatClient{Server: "http://127.0.0.1:1", Token: "t"}, engine)
	return NewModel(context.Background(), s, "community-chat")
}

func typeLine(m *Model, line string) tea.Cmd {
	m.input.SetValue(line)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return cmd
}

func TestReplyCommandByPosition(t *testing.T) {
	m := newTestModel(t)
	engine := m.session.Engine()

	typeLine(m, "/reply 1")
	require.NoError(t, m.err)
	require.NotNil(t, engine.Replying())
	assert.Equal(t, "m1", engine.Replying().ID)
	assert.Contains(t, m.View(), "replying to Bob")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, engine.Replying())
}

func TestPickThenReactWithPaletteIndex(t *testing.T) {
	m := newTestModel(t)
	engine := m.session.Engine()

	typeLine(m, "/pick #1")
	require.NoError(t, m.err)
	assert.Equal(t, "m1", engine.Picker())
	assert.Contains(t, m.View(), "6)🔥")

	typeLine(m, "/react 6")
	// 離線送不出, 本地切換會還原
	assert.ErrorIs(t, m.err, domain.ErrTransport)
	got, _ := engine.Find("m1")
	assert.Empty(t, got.Reactions)
	assert.Empty(t, engine.Picker())
}

func TestUnknownAndBadCommands(t *testing.T) {
	m := newTestModel(t)

	typeLine(m, "/dance")
	assert.EqualError(t, m.err, "unknown command /dance")

	typeLine(m, "/reply 9")
	assert.ErrorIs(t, m.err, domain.ErrNotFound)

	typeLine(m, "/react")
	assert.Error(t, m.err)
}

func TestEscQuitsWhenIdle(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestViewShowsReactionsAndStatus(t *testing.T) {
	m := newTestModel(t)
	view := m.View()

	assert.Contains(t, view, "reconnecting")
	assert.Contains(t, view, "the hall light is out")
	assert.Contains(t, view, "👍2*")

	m.session.Engine().SetTyping("u3", true)
	assert.Contains(t, m.View(), "Someone is typing...")
	m.session.Engine().SetTyping("u4", true)
	assert.Contains(t, m.View(), "Multiple people are typing...")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", snippet("short"))
	long := "abcdefghijklmnopqrstuvwxyzabcdefghijklmnopqrstuvwxyz"
	assert.Equal(t, long[:40]+"…", snippet(long))
}
