// Package app wires the Bubble Tea program: question loading, the
// screen stack, and the shared header/footer frame.
package app

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/examdeck/examdeck/internal/license"
	"github.com/examdeck/examdeck/internal/progress"
	"github.com/examdeck/examdeck/internal/questionbank"
	"github.com/examdeck/examdeck/internal/screen"
	"github.com/examdeck/examdeck/internal/screens/lock"
	"github.com/examdeck/examdeck/internal/session"
	"github.com/examdeck/examdeck/internal/ui/layout"
	"github.com/examdeck/examdeck/internal/ui/theme"
)

// Deps carries everything the app needs, assembled by the root command.
type Deps struct {
	// LoadBank fetches the question set. Called at startup and again on
	// a reload request after a failed load.
	LoadBank func() (*questionbank.Bank, error)

	Validator *license.Validator
	Store     *progress.Store
	Rand      *rand.Rand
	Log       *slog.Logger
}

// bankLoadedMsg reports a finished question-set load.
type bankLoadedMsg struct {
	bank *questionbank.Bank
	err  error
}

// AppModel is the root Bubble Tea model. It owns the screen stack and
// replaces the whole surface with an error panel when the question set
// cannot be loaded.
type AppModel struct {
	deps   Deps
	stack  []screen.Screen
	state  *session.State
	width  int
	height int

	loading bool
	loadErr string
}

func newAppModel(deps Deps) AppModel {
	if deps.Log == nil {
		deps.Log = slog.New(slog.DiscardHandler)
	}
	return AppModel{
		deps:    deps,
		loading: true,
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.loadBank()
}

func (m AppModel) loadBank() tea.Cmd {
	return func() tea.Msg {
		bank, err := m.deps.LoadBank()
		return bankLoadedMsg{bank: bank, err: err}
	}
}

func (m AppModel) active() screen.Screen {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bankLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.deps.Log.Error("question set load failed", "error", msg.err)
			m.loadErr = msg.err.Error()
			return m, nil
		}
		m.loadErr = ""
		m.state = session.NewState(msg.bank, questionbank.DefaultSections(), m.deps.Rand)
		first := lock.New(m.deps.Validator, m.deps.Store, m.state, m.deps.Log)
		m.stack = []screen.Screen{first}
		return m, first.Init()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case screen.PushMsg:
		m.stack = append(m.stack, msg.Screen)
		return m, msg.Screen.Init()

	case screen.PopMsg:
		if len(m.stack) > 1 {
			m.stack = m.stack[:len(m.stack)-1]
		}
		return m, nil

	case screen.ReplaceMsg:
		if len(m.stack) == 0 {
			m.stack = []screen.Screen{msg.Screen}
		} else {
			m.stack[len(m.stack)-1] = msg.Screen
		}
		return m, msg.Screen.Init()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "r":
			if m.loadErr != "" {
				m.loading = true
				m.loadErr = ""
				return m, m.loadBank()
			}
		}
	}

	active := m.active()
	if active == nil {
		return m, nil
	}
	updated, cmd := active.Update(msg)
	m.stack[len(m.stack)-1] = updated
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	if m.loading || m.loadErr != "" {
		v.SetContent(m.statusPanel())
		return v
	}

	active := m.active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	licenseKey := ""
	totalScore := 0
	if m.state != nil && m.state.Phase != session.PhaseLocked {
		licenseKey = m.state.LicenseKey
		totalScore = session.TotalScore(m.state)
	}

	header := layout.RenderHeader(title, licenseKey, totalScore, m.width)

	footerHints := []layout.KeyHint{
		{Key: "Ctrl+C", Description: "Quit"},
	}
	if provider, ok := active.(screen.KeyHintProvider); ok {
		footerHints = provider.KeyHints()
	}
	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := ""
	if active != nil {
		content = active.View(m.width, contentHeight)
	}
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// statusPanel renders the pre-unlock loading state or the question-load
// error panel with its reload action.
func (m AppModel) statusPanel() string {
	var content string
	if m.loading {
		content = theme.Subtitle.Render("Loading questions...")
	} else {
		content = theme.Incorrect.Render("Could not load the question set.") + "\n\n" +
			theme.Body.Render(m.loadErr) + "\n\n" +
			theme.Hint.Render("press r to reload · ctrl+c to quit")
	}
	card := theme.Card.Render(content)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
}

// Run starts the Bubble Tea program.
func Run(deps Deps) error {
	p := tea.NewProgram(newAppModel(deps))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
