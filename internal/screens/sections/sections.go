// Package sections implements the section select screen.
package sections

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/examdeck/examdeck/internal/progress"
	"github.com/examdeck/examdeck/internal/questionbank"
	"github.com/examdeck/examdeck/internal/screen"
	"github.com/examdeck/examdeck/internal/screens/quiz"
	"github.com/examdeck/examdeck/internal/session"
	"github.com/examdeck/examdeck/internal/ui/components"
	"github.com/examdeck/examdeck/internal/ui/layout"
	"github.com/examdeck/examdeck/internal/ui/theme"
)

// enteredMsg reports the outcome of starting a section attempt.
type enteredMsg struct {
	err error
}

// SectionsScreen lists all sections with their status and scores.
type SectionsScreen struct {
	state *session.State
	store *progress.Store
	log   *slog.Logger

	menu    components.Menu
	loadErr string
}

var _ screen.Screen = (*SectionsScreen)(nil)

// New creates the section select screen over the unlocked session.
func New(state *session.State, store *progress.Store, log *slog.Logger) *SectionsScreen {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &SectionsScreen{
		state: state,
		store: store,
		log:   log,
	}
	s.rebuildMenu()
	return s
}

func (s *SectionsScreen) rebuildMenu() {
	items := make([]components.MenuItem, 0, len(s.state.Sections))
	for _, sec := range s.state.Sections {
		sec := sec
		items = append(items, components.MenuItem{
			Label:  sec.Name,
			Note:   s.sectionNote(sec),
			Action: func() tea.Cmd { return s.enter(sec.ID) },
		})
	}
	s.menu = components.NewMenu(items)

	// Land on the section the saved record was last in.
	rec := s.state.Progress
	if rec.Section >= 1 && rec.Section <= len(items) {
		s.menu.Selected = rec.Section - 1
	}
}

func (s *SectionsScreen) sectionNote(sec questionbank.Section) string {
	rec := s.state.Progress
	switch rec.Status[sec.ID-1] {
	case progress.StatusCompleted:
		return fmt.Sprintf("completed · %d/%d", rec.Scores[sec.ID-1], sec.Count)
	case progress.StatusInProgress:
		return "in progress"
	default:
		return fmt.Sprintf("%d questions", sec.Count)
	}
}

func (s *SectionsScreen) enter(id int) tea.Cmd {
	if err := session.EnterSection(s.state, id); err != nil {
		return func() tea.Msg { return enteredMsg{err: err} }
	}
	save := s.saveProgress()
	push := screen.Push(quiz.New(s.state, s.store, s.log))
	return tea.Batch(save, push)
}

func (s *SectionsScreen) saveProgress() tea.Cmd {
	// Snapshot now, on the update loop; the command body runs on a
	// background goroutine while the live record keeps changing.
	rec := s.state.Progress.Clone()
	return func() tea.Msg {
		if err := s.store.Save(context.Background(), rec); err != nil {
			s.log.Warn("progress save failed", "error", err)
		}
		return nil
	}
}

func (s *SectionsScreen) Title() string {
	return "Sections"
}

func (s *SectionsScreen) Init() tea.Cmd {
	return nil
}

func (s *SectionsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case enteredMsg:
		if msg.err != nil {
			s.loadErr = msg.err.Error()
		}
		return s, nil

	case tea.KeyMsg:
		var cmd tea.Cmd
		s.menu, cmd = s.menu.Update(msg)
		return s, cmd
	}

	// Statuses change behind our back when a quiz screen above us
	// completes a section.
	s.refreshNotes()
	return s, nil
}

func (s *SectionsScreen) refreshNotes() {
	for i, sec := range s.state.Sections {
		s.menu.Items[i].Note = s.sectionNote(sec)
	}
}

func (s *SectionsScreen) View(width, height int) string {
	s.refreshNotes()

	var b strings.Builder
	b.WriteString(theme.Title.Render("Choose a section") + "\n\n")
	b.WriteString(s.menu.View())
	b.WriteString("\n")

	total := session.TotalScore(s.state)
	b.WriteString(theme.Subtitle.Render(fmt.Sprintf("Total score: %d", total)) + "\n")

	if s.loadErr != "" {
		b.WriteString("\n" + theme.Incorrect.Render(s.loadErr) + "\n")
	}

	card := theme.Card.Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

// KeyHints implements screen.KeyHintProvider.
func (s *SectionsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Start"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}
