package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"campus_chat_service/internal/chat/client"
	"campus_chat_service/internal/chat/domain"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type (
	updateMsg client.Update
	sentMsg   struct{ err error }
	noticeMsg string
)

// Model terminal view over a chat Session
type Model struct {
	ctx     context.Context
	session *client.Session
	input   textinput.Model
	room    string
	notice  string
	err     error
}

// NewModel create Model, the session should already be running
func NewModel(ctx context.Context, session *client.Session, room string) *Model {
	input := textinput.New()
	input.Placeholder = "Type a message…"
	input.CharLimit = domain.MaxTextLength
	input.Prompt = "> "
	input.Focus()

	return &Model{ctx: ctx, session: session, input: input, room: room}
}

// Init start cursor blink and the update pump
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitUpdate())
}

func (m *Model) waitUpdate() tea.Cmd {
	return func() tea.Msg {
		select {
		case u := <-m.session.Updates():
			return updateMsg(u)
		case <-m.ctx.Done():
			return tea.Quit()
		}
	}
}

func (m *Model) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.session.Send(m.ctx, text)
		return sentMsg{err: err}
	}
}

func (m *Model) resyncCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.session.Resync(m.ctx); err != nil {
			return sentMsg{err: err}
		}
		return noticeMsg("history reloaded")
	}
}

// Update handle keys and session updates
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.onKey(msg)

	case updateMsg:
		if msg.Err != nil {
			m.err = msg.Err
		}
		return m, m.waitUpdate()

	case sentMsg:
		m.err = msg.err
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, nil
	}
	return m, nil
}

func (m *Model) onKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	engine := m.session.Engine()

	switch key.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		switch {
		case engine.Picker() != "":
			engine.ClosePicker()
		case engine.Replying() != nil:
			engine.CancelReply()
		default:
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		m.err = nil
		m.notice = ""
		if text == "" {
			return m, nil
		}
		if strings.HasPrefix(text, "/") {
			return m, m.command(text)
		}
		return m, m.sendCmd(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	if !strings.HasPrefix(m.input.Value(), "/") && (key.Type == tea.KeyRunes || key.Type == tea.KeySpace || key.Type == tea.KeyBackspace) {
		m.session.Keystroke()
	}
	return m, cmd
}

// command slash commands. Message refs are list positions as shown, or raw ids.
func (m *Model) command(line string) tea.Cmd {
	fields := strings.Fields(line)
	engine := m.session.Engine()

	switch fields[0] {
	case "/quit", "/exit":
		return tea.Quit

	case "/reply":
		if len(fields) < 2 {
			m.err = fmt.Errorf("usage: /reply <n>")
			return nil
		}
		m.err = engine.StartReply(m.resolve(fields[1]))

	case "/cancel":
		engine.CancelReply()
		engine.ClosePicker()

	case "/pick":
		if len(fields) < 2 {
			m.err = fmt.Errorf("usage: /pick <n>")
			return nil
		}
		m.err = engine.OpenPicker(m.resolve(fields[1]))

	case "/react":
		var target, emoji string
		switch len(fields) {
		case 2:
			// 已開啟 picker
			target, emoji = engine.Picker(), fields[1]
		case 3:
			target, emoji = m.resolve(fields[1]), fields[2]
		default:
			m.err = fmt.Errorf("usage: /react [n] <emoji|1-%d>", len(domain.Emojis))
			return nil
		}
		if target == "" {
			m.err = fmt.Errorf("no message picked")
			return nil
		}
		m.err = m.session.React(target, paletteEmoji(emoji))

	case "/resync":
		return m.resyncCmd()

	default:
		m.err = fmt.Errorf("unknown command %s", fields[0])
	}
	return nil
}

func (m *Model) resolve(ref string) string {
	ref = strings.TrimPrefix(ref, "#")
	if n, err := strconv.Atoi(ref); err == nil {
		msgs := m.session.Engine().Messages()
		if n >= 1 && n <= len(msgs) {
			return msgs[n-1].ID
		}
	}
	return ref
}

func paletteEmoji(s string) string {
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(domain.Emojis) {
		return domain.Emojis[n-1]
	}
	return s
}
