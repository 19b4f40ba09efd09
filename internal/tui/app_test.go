package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type stubPage struct {
	id      string
	navTo   string
	updates int
}

func (s *stubPage) ID() string    { return s.id }
func (s *stubPage) Init() tea.Cmd { return nil }

func (s *stubPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	s.updates++
	if s.navTo != "" {
		return nil, &PageNav{PageID: s.navTo}
	}
	return nil, nil
}

func (s *stubPage) View(width, height int) string { return s.id }

func TestApp_RoutesToActivePage(t *testing.T) {
	first := &stubPage{id: "first"}
	second := &stubPage{id: "second"}
	app := NewApp(first, second)

	if app.View() != "first" {
		t.Errorf("view = %q, want first page", app.View())
	}

	app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if first.updates != 1 || second.updates != 0 {
		t.Errorf("updates = %d/%d, want only the active page", first.updates, second.updates)
	}
}

func TestApp_NavSwitchesPages(t *testing.T) {
	first := &stubPage{id: "first", navTo: "second"}
	second := &stubPage{id: "second"}
	app := NewApp(first, second)

	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	if app.View() != "second" {
		t.Errorf("view = %q, want second page after nav", app.View())
	}

	// A nav request to an unknown page is ignored.
	second.navTo = "nowhere"
	app.Update(tea.KeyMsg{Type: tea.KeyTab})
	if app.View() != "second" {
		t.Errorf("view = %q, want to stay on second", app.View())
	}
}
