// Package lock implements the license entry screen gating the quiz.
package lock

import (
	"context"
	"log/slog"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/examdeck/examdeck/internal/license"
	"github.com/examdeck/examdeck/internal/progress"
	"github.com/examdeck/examdeck/internal/screen"
	"github.com/examdeck/examdeck/internal/screens/sections"
	"github.com/examdeck/examdeck/internal/session"
	"github.com/examdeck/examdeck/internal/ui/components"
	"github.com/examdeck/examdeck/internal/ui/layout"
	"github.com/examdeck/examdeck/internal/ui/theme"
)

const keyCharLimit = 64

// validatedMsg carries a finished validation plus the loaded progress.
type validatedMsg struct {
	key    string
	result license.Result
	record *progress.Record
}

// resumeMsg carries a still-fresh cached session found at startup.
type resumeMsg struct {
	key    string
	admin  bool
	record *progress.Record
}

// noResumeMsg means no cached session was usable; wait for input.
type noResumeMsg struct{}

// LockScreen asks for a license key and unlocks the session.
type LockScreen struct {
	validator *license.Validator
	store     *progress.Store
	state     *session.State
	log       *slog.Logger

	input    components.TextInput
	checking bool
	rejected string
}

var _ screen.Screen = (*LockScreen)(nil)

// New creates the lock screen.
func New(validator *license.Validator, store *progress.Store, state *session.State, log *slog.Logger) *LockScreen {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &LockScreen{
		validator: validator,
		store:     store,
		state:     state,
		log:       log,
		input:     components.NewTextInput("LICENSE-...", keyCharLimit),
	}
}

func (l *LockScreen) Title() string {
	return "License"
}

func (l *LockScreen) Init() tea.Cmd {
	return tea.Batch(l.input.Init(), l.checkCachedSession())
}

// checkCachedSession looks for a validation young enough to continue a
// previous session without re-entering the key.
func (l *LockScreen) checkCachedSession() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		key, admin, ok := l.validator.CachedSession(ctx)
		if !ok {
			return noResumeMsg{}
		}
		rec, err := l.store.Load(ctx, key)
		if err != nil {
			l.log.Warn("progress load failed on resume", "error", err)
			rec = nil
		}
		return resumeMsg{key: key, admin: admin, record: rec}
	}
}

func (l *LockScreen) validate(key string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		result := l.validator.Validate(ctx, key)
		var rec *progress.Record
		if result.Valid {
			loaded, err := l.store.Load(ctx, key)
			if err != nil {
				l.log.Warn("progress load failed after unlock", "error", err)
			} else {
				rec = loaded
			}
		}
		return validatedMsg{key: key, result: result, record: rec}
	}
}

func (l *LockScreen) unlock(key string, admin bool, rec *progress.Record) tea.Cmd {
	session.Unlock(l.state, key, admin, rec)
	next := sections.New(l.state, l.store, l.log)
	return screen.Replace(next)
}

func (l *LockScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case resumeMsg:
		l.log.Info("continuing cached session", "admin", msg.admin)
		return l, l.unlock(msg.key, msg.admin, msg.record)

	case noResumeMsg:
		return l, nil

	case validatedMsg:
		l.checking = false
		if msg.result.Valid {
			l.input.Submit(true)
			return l, l.unlock(msg.key, msg.result.Admin, msg.record)
		}
		l.input.Submit(false)
		l.rejected = rejectionText(msg.result.Reason)
		return l, nil

	case tea.KeyMsg:
		if l.checking {
			return l, nil
		}
		if l.rejected != "" && msg.String() != "enter" {
			// Typing again clears the verdict and re-enables the input.
			l.input.Reactivate()
			l.rejected = ""
		}
		if msg.String() == "enter" {
			key := l.input.Value()
			if key == "" {
				l.rejected = "Enter a license key."
				return l, nil
			}
			l.checking = true
			l.rejected = ""
			return l, l.validate(key)
		}
	}

	var cmd tea.Cmd
	l.input, cmd = l.input.Update(msg)
	return l, cmd
}

func rejectionText(reason string) string {
	switch reason {
	case license.ReasonAlreadyUsed:
		return "This license key has already been used."
	case license.ReasonUnknownKey:
		return "Invalid license key."
	default:
		return "License validation failed."
	}
}

func (l *LockScreen) View(width, height int) string {
	var b strings.Builder

	b.WriteString(theme.Title.Render("Enter your license key") + "\n\n")
	b.WriteString(l.input.View() + "\n\n")

	switch {
	case l.checking:
		b.WriteString(theme.Hint.Render("Checking license...") + "\n")
	case l.rejected != "":
		b.WriteString(theme.Incorrect.Render(l.rejected) + "\n")
	default:
		b.WriteString(theme.Hint.Render("One key unlocks one seat.") + "\n")
	}

	card := theme.Card.Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

// KeyHints implements screen.KeyHintProvider.
func (l *LockScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Validate"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}
