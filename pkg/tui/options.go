package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/entrhq/envwarn/pkg/environment"
)

// PatternEditor loads and saves the pattern set. *patterns.Store implements
// it.
type PatternEditor interface {
	Load() environment.PatternSet
	Save(ctx context.Context, set environment.PatternSet) error
	Validate(pattern string) bool
}

type savedMsg struct{ err error }

// OptionsModel edits a working copy of the pattern set. Nothing is
// persisted until the user saves; a save replaces the whole set.
type OptionsModel struct {
	ctx   context.Context
	store PatternEditor

	set      environment.PatternSet
	url      string
	hostname string

	envIdx  int
	itemIdx int

	input     textinput.Model
	editing   bool
	editIndex int

	dirty     bool
	saving    bool
	status    string
	statusErr bool
}

// NewOptionsModel creates the editor. When url is set, every pattern shows
// whether it matches that page's hostname.
func NewOptionsModel(ctx context.Context, store PatternEditor, url string) OptionsModel {
	ti := textinput.New()
	ti.Placeholder = `e.g. \.staging\.example\.com$`
	ti.CharLimit = 256
	ti.Width = 48
	ti.Prompt = "> "

	m := OptionsModel{
		ctx:   ctx,
		store: store,
		set:   store.Load(),
		url:   url,
		input: ti,
	}
	if url != "" {
		if host, err := environment.Hostname(url); err == nil {
			m.hostname = host
		}
	}
	return m
}

// PatternSet returns the working copy.
func (m OptionsModel) PatternSet() environment.PatternSet {
	return m.set.Clone()
}

// Dirty reports unsaved changes.
func (m OptionsModel) Dirty() bool {
	return m.dirty
}

func (m OptionsModel) env() environment.Environment {
	return environment.Priority[m.envIdx]
}

func (m OptionsModel) Init() tea.Cmd {
	return nil
}

func (m OptionsModel) save() tea.Cmd {
	set := m.set.Clone()
	store := m.store
	ctx := m.ctx
	return func() tea.Msg {
		return savedMsg{err: store.Save(ctx, set)}
	}
}

func (m OptionsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case savedMsg:
		m.saving = false
		if msg.err != nil {
			m.setStatus("Failed to save: "+msg.err.Error(), true)
		} else {
			m.dirty = false
			m.setStatus("Patterns saved", false)
		}
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m OptionsModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		m.input.SetValue("")
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		m.editing = false
		m.input.Blur()
		m.input.SetValue("")
		if value == "" {
			return m, nil
		}

		env := m.env()
		patterns := append([]string(nil), m.set[env]...)
		if m.editIndex < 0 {
			patterns = append(patterns, value)
			m.itemIdx = len(patterns) - 1
		} else {
			patterns[m.editIndex] = value
		}
		m.set[env] = patterns
		m.dirty = true

		if m.store.Validate(value) {
			m.setStatus("", false)
		} else {
			m.setStatus("Invalid regular expression; it will never match", true)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m OptionsModel) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	patterns := m.set[m.env()]

	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case "tab", "right", "l":
		m.envIdx = (m.envIdx + 1) % len(environment.Priority)
		m.itemIdx = 0
	case "shift+tab", "left", "h":
		m.envIdx = (m.envIdx + len(environment.Priority) - 1) % len(environment.Priority)
		m.itemIdx = 0

	case "down", "j":
		if m.itemIdx < len(patterns)-1 {
			m.itemIdx++
		}
	case "up", "k":
		if m.itemIdx > 0 {
			m.itemIdx--
		}

	case "a":
		m.editing = true
		m.editIndex = -1
		m.input.SetValue("")
		return m, m.input.Focus()

	case "e", "enter":
		if len(patterns) == 0 {
			return m, nil
		}
		m.editing = true
		m.editIndex = m.itemIdx
		m.input.SetValue(patterns[m.itemIdx])
		m.input.CursorEnd()
		return m, m.input.Focus()

	case "d", "x", "delete":
		if len(patterns) == 0 {
			return m, nil
		}
		updated := append(append([]string(nil), patterns[:m.itemIdx]...), patterns[m.itemIdx+1:]...)
		m.set[m.env()] = updated
		if m.itemIdx >= len(updated) && m.itemIdx > 0 {
			m.itemIdx--
		}
		m.dirty = true

	case "R":
		m.set = environment.DefaultPatterns()
		m.itemIdx = 0
		m.dirty = true
		m.setStatus("Defaults restored; press s to save", false)

	case "s", "ctrl+s":
		if m.saving {
			return m, nil
		}
		m.saving = true
		m.setStatus("Saving...", false)
		return m, m.save()
	}
	return m, nil
}

func (m *OptionsModel) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// matches reports whether pattern matches the hostname under edit.
func (m OptionsModel) matches(pattern string) bool {
	if m.hostname == "" {
		return false
	}
	re, err := environment.CompilePattern(pattern)
	return err == nil && re.MatchString(m.hostname)
}

func (m OptionsModel) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("Environment Patterns"))
	if m.dirty {
		b.WriteString(tipsStyle.Render("  (unsaved)"))
	}
	b.WriteString("\n")
	if m.hostname != "" {
		b.WriteString(tipsStyle.Render("Testing against " + m.hostname))
		if result, err := environment.Classify(m.url, m.set); err == nil {
			b.WriteString(tipsStyle.Render(" → "))
			style := environment.StyleFor(result.Environment)
			b.WriteString(badge(style.Label, style.StatusBackground, style.StatusForeground))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	var counts map[environment.Environment]int
	if m.url != "" {
		counts, _ = environment.MatchCounts(m.url, m.set)
	}

	tabs := make([]string, 0, len(environment.Priority))
	for i, env := range environment.Priority {
		label := environment.StyleFor(env).Label
		if counts != nil {
			label = fmt.Sprintf("%s (%d)", label, counts[env])
		}
		if i == m.envIdx {
			tabs = append(tabs, selectedStyle.Render("["+label+"]"))
		} else {
			tabs = append(tabs, tipsStyle.Render(" "+label+" "))
		}
	}
	b.WriteString(strings.Join(tabs, " "))
	b.WriteString("\n\n")

	patterns := m.set[m.env()]
	if len(patterns) == 0 {
		b.WriteString(dimStyle.Render("  no patterns"))
		b.WriteString("\n")
	}
	for i, p := range patterns {
		cursor := "  "
		line := textStyle.Render(p)
		if i == m.itemIdx {
			cursor = selectedStyle.Render("> ")
			line = selectedStyle.Render(p)
		}

		mark := okStyle.Render("✓")
		if !m.store.Validate(p) {
			mark = errorStyle.Render("✗ invalid")
		}
		if m.matches(p) {
			mark += okStyle.Render(" ● matches")
		}
		b.WriteString(fmt.Sprintf("%s%s  %s\n", cursor, line, mark))
	}

	if m.editing {
		b.WriteString("\n")
		title := "Add pattern"
		if m.editIndex >= 0 {
			title = "Edit pattern"
		}
		b.WriteString(inputBoxStyle.Render(title + "\n" + m.input.View()))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(okStyle.Render(m.status))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.editing {
		b.WriteString(helpStyle.Render("enter confirm • esc cancel"))
	} else {
		b.WriteString(helpStyle.Render("tab environment • ↑/↓ select • a add • e edit • d delete • R defaults • s save • q quit"))
	}
	b.WriteString("\n")
	return b.String()
}
