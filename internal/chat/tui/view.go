package tui

import (
	"fmt"
	"strings"

	"campus_chat_service/internal/chat/client"
	"campus_chat_service/internal/chat/domain"

	"github.com/charmbracelet/lipgloss"
)

const visibleMessages = 20

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	connectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	offlineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("178")).Italic(true)
	indexStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	authorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	selfStyle      = authorStyle.Copy().Foreground(lipgloss.Color("213"))
	replyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	typingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	inputBoxStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
)

// View render the room
func (m *Model) View() string {
	engine := m.session.Engine()
	self := engine.Self()

	status := offlineStyle.Render("reconnecting…")
	if engine.Connected() {
		status = connectedStyle.Render("connected")
	}
	sections := []string{headerStyle.Render(fmt.Sprintf("#%s  %s", m.room, status))}

	msgs := engine.Messages()
	start := 0
	if len(msgs) > visibleMessages {
		start = len(msgs) - visibleMessages
	}
	for i := start; i < len(msgs); i++ {
		sections = append(sections, renderEntry(i+1, msgs[i], self.ID, engine.Picker() == msgs[i].ID))
	}

	if line := typingLine(engine.TypingUsers()); line != "" {
		sections = append(sections, typingStyle.Render(line))
	}
	if r := engine.Replying(); r != nil {
		sections = append(sections, replyStyle.Render(fmt.Sprintf("replying to %s: %s  (esc to cancel)", r.AuthorName, snippet(r.Text))))
	}
	if m.err != nil {
		sections = append(sections, errorStyle.Render(m.err.Error()))
	} else if m.notice != "" {
		sections = append(sections, hintStyle.Render(m.notice))
	}

	sections = append(sections,
		inputBoxStyle.Render(m.input.View()),
		hintStyle.Render("/reply n  •  /pick n  •  /react [n] emoji  •  /resync  •  esc quit"),
	)
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderEntry(n int, e client.Entry, selfID string, picking bool) string {
	var b strings.Builder

	b.WriteString(indexStyle.Render(fmt.Sprintf("%3d ", n)))
	b.WriteString(timestampStyle.Render(e.Timestamp.Local().Format("15:04")))
	b.WriteString(" ")
	if e.AuthorID == selfID {
		b.WriteString(selfStyle.Render(e.AuthorName))
	} else {
		b.WriteString(authorStyle.Render(e.AuthorName))
	}
	b.WriteString(": ")
	b.WriteString(e.Text)

	switch {
	case e.Failed:
		b.WriteString(failedStyle.Render("  ! not sent"))
	case e.Optimistic:
		b.WriteString(pendingStyle.Render("  …"))
	}

	if e.ReplyTo != nil {
		b.WriteString("\n      ")
		b.WriteString(replyStyle.Render(fmt.Sprintf("↪ %s: %s", e.ReplyTo.AuthorName, snippet(e.ReplyTo.Text))))
	}
	if r := reactionLine(e.Reactions, selfID); r != "" {
		b.WriteString("\n      ")
		b.WriteString(r)
	}
	if picking {
		b.WriteString("\n      ")
		b.WriteString(hintStyle.Render(paletteLine()))
	}
	return b.String()
}

func reactionLine(reactions []domain.Reaction, selfID string) string {
	var parts []string
	for _, c := range domain.SummarizeReactions(reactions, selfID) {
		mark := ""
		if c.Reacted {
			mark = "*"
		}
		parts = append(parts, fmt.Sprintf("%s%d%s", c.Emoji, c.Count, mark))
	}
	return strings.Join(parts, " ")
}

func paletteLine() string {
	parts := make([]string, len(domain.Emojis))
	for i, e := range domain.Emojis {
		parts[i] = fmt.Sprintf("%d)%s", i+1, e)
	}
	return strings.Join(parts, "  ")
}

func typingLine(users []string) string {
	switch len(users) {
	case 0:
		return ""
	case 1:
		return "Someone is typing..."
	default:
		return "Multiple people are typing..."
	}
}

func snippet(s string) string {
	const max = 40
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
