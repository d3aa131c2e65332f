// Package tui contains the terminal surfaces: the environment popup and the
// pattern options editor.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/envwarn/pkg/popup"
	"github.com/entrhq/envwarn/pkg/relay"
)

// Summarizer produces the popup content. *popup.Controller implements it.
type Summarizer interface {
	Summarize(ctx context.Context) popup.Summary
}

type summaryMsg struct{ summary popup.Summary }

type relayMsg struct {
	msg relay.Message
	ok  bool
}

type copiedMsg struct{ err error }

// PopupModel shows the environment of the active page and refreshes itself
// on tab and pattern changes.
type PopupModel struct {
	ctx        context.Context
	summarizer Summarizer
	events     <-chan relay.Message
	copyFn     func(string) error

	summary     popup.Summary
	loaded      bool
	status      string
	width       int
	openOptions bool
}

// NewPopupModel creates the popup. events may be nil; when set, TAB_UPDATED,
// TAB_ACTIVATED and patternsChanged messages trigger a refresh.
func NewPopupModel(ctx context.Context, summarizer Summarizer, events <-chan relay.Message) PopupModel {
	return PopupModel{
		ctx:        ctx,
		summarizer: summarizer,
		events:     events,
		copyFn:     clipboard.WriteAll,
	}
}

// OptionsRequested reports whether the popup was closed with the options key.
func (m PopupModel) OptionsRequested() bool {
	return m.openOptions
}

// Summary returns the summary currently displayed.
func (m PopupModel) Summary() popup.Summary {
	return m.summary
}

func (m PopupModel) Init() tea.Cmd {
	return tea.Batch(m.summarize(), m.waitForRelay())
}

func (m PopupModel) summarize() tea.Cmd {
	return func() tea.Msg {
		return summaryMsg{summary: m.summarizer.Summarize(m.ctx)}
	}
}

func (m PopupModel) waitForRelay() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events
	return func() tea.Msg {
		msg, ok := <-events
		return relayMsg{msg: msg, ok: ok}
	}
}

func (m PopupModel) copyURL() tea.Cmd {
	url := m.summary.URL
	copyFn := m.copyFn
	return func() tea.Msg {
		if url == "" {
			return copiedMsg{err: fmt.Errorf("no URL to copy")}
		}
		return copiedMsg{err: copyFn(url)}
	}
}

func (m PopupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.status = ""
			return m, m.summarize()
		case "c":
			return m, m.copyURL()
		case "o":
			m.openOptions = true
			return m, tea.Quit
		}
		return m, nil

	case summaryMsg:
		m.summary = msg.summary
		m.loaded = true
		return m, nil

	case copiedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Copy failed: " + msg.err.Error())
		} else {
			m.status = okStyle.Render("URL copied to clipboard")
		}
		return m, nil

	case relayMsg:
		if !msg.ok {
			m.events = nil
			return m, nil
		}
		switch msg.msg.Action {
		case relay.ActionTabUpdated, relay.ActionTabActivated, relay.ActionPatternsChanged:
			return m, tea.Batch(m.summarize(), m.waitForRelay())
		}
		return m, m.waitForRelay()
	}

	return m, nil
}

func (m PopupModel) View() string {
	if !m.loaded {
		return "\n  Detecting environment...\n"
	}

	s := m.summary
	var b strings.Builder

	b.WriteString(headerStyle.Render("Environment Warning"))
	b.WriteString("\n\n")
	b.WriteString(badge(s.Heading, s.Style.StatusBackground, s.Style.StatusForeground))
	b.WriteString("  ")
	b.WriteString(tipsStyle.Render(s.Style.Label))
	b.WriteString("\n\n")

	if s.Hostname != "" {
		b.WriteString(textStyle.Render(s.Hostname))
		b.WriteString("\n")
	}
	if s.URL != "" && s.URL != s.Hostname {
		b.WriteString(dimStyle.Render(s.URL))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	body := s.Style.Message
	if s.Style.Title != "" && s.Status != popup.StatusUnknown {
		body = s.Style.Title + "\n" + body
	}
	panel := panelStyle
	if m.width > 8 {
		panel = panel.Width(m.width - 4)
	}
	if s.Style.Alert {
		panel = panel.BorderForeground(salmonPink)
	}
	b.WriteString(panel.Render(body))
	b.WriteString("\n")

	if s.MatchedPattern != "" {
		b.WriteString(tipsStyle.Render("matched " + s.MatchedPattern))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("r refresh • c copy URL • o options • q quit"))
	b.WriteString("\n")
	return b.String()
}
