// Package quiz implements the in-section screen: question display,
// countdowns, answer feedback, and the post-section review.
package quiz

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/examdeck/examdeck/internal/progress"
	"github.com/examdeck/examdeck/internal/questionbank"
	"github.com/examdeck/examdeck/internal/screen"
	"github.com/examdeck/examdeck/internal/session"
	"github.com/examdeck/examdeck/internal/ui/components"
	"github.com/examdeck/examdeck/internal/ui/layout"
	"github.com/examdeck/examdeck/internal/ui/theme"
)

// reviewWindow is how many questions the review pane shows at once.
const reviewWindow = 10

type mode int

const (
	modeAnswering mode = iota
	modeFeedback
	modeReview
)

// tickMsg is a one-second countdown tick tagged with the timer sequence
// that scheduled it, so ticks from abandoned attempts drop dead.
type tickMsg struct {
	seq uint64
}

// advanceMsg auto-advances past timeout feedback, tagged like a tick so
// a manual advance in the meantime cancels it.
type advanceMsg struct {
	seq uint64
}

// QuizScreen runs one section attempt.
type QuizScreen struct {
	state *session.State
	store *progress.Store
	log   *slog.Logger

	options     components.OptionList
	mode        mode
	lastCorrect bool
	timedOut    bool

	reviewOffset int
}

var _ screen.Screen = (*QuizScreen)(nil)

// New creates a quiz screen over an attempt already started via
// session.EnterSection.
func New(state *session.State, store *progress.Store, log *slog.Logger) *QuizScreen {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	q := &QuizScreen{
		state: state,
		store: store,
		log:   log,
	}
	q.resetOptions()
	return q
}

func (q *QuizScreen) resetOptions() {
	if question := q.state.CurrentQuestion(); question != nil {
		q.options = components.NewOptionList(question)
	}
}

func (q *QuizScreen) Title() string {
	if q.state.Attempt == nil {
		return ""
	}
	return q.state.Attempt.Section.Name
}

func (q *QuizScreen) Init() tea.Cmd {
	return q.tick()
}

func (q *QuizScreen) tick() tea.Cmd {
	seq := q.state.TimerSeq
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{seq: seq}
	})
}

func (q *QuizScreen) autoAdvance() tea.Cmd {
	seq := q.state.TimerSeq
	return tea.Tick(session.FeedbackDelay, func(time.Time) tea.Msg {
		return advanceMsg{seq: seq}
	})
}

func (q *QuizScreen) saveProgress() tea.Cmd {
	// Snapshot now, on the update loop; the command body runs on a
	// background goroutine while the live record keeps changing.
	rec := q.state.Progress.Clone()
	return func() tea.Msg {
		if err := q.store.Save(context.Background(), rec); err != nil {
			q.log.Warn("progress save failed", "error", err)
		}
		return nil
	}
}

func (q *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return q.handleTick(msg)

	case advanceMsg:
		if msg.seq != q.state.TimerSeq || q.mode != modeFeedback {
			return q, nil
		}
		return q, q.advance()

	case tea.KeyMsg:
		return q.handleKey(msg)
	}

	return q, nil
}

func (q *QuizScreen) handleTick(msg tickMsg) (screen.Screen, tea.Cmd) {
	res := session.Tick(q.state, msg.seq)
	if res.Stale {
		return q, nil
	}
	if !res.Expired {
		return q, q.tick()
	}

	a := q.state.Attempt
	if a.Section.FinalExam {
		// Section time over: force-submit regardless of the current
		// question's answer state.
		return q, q.finishSection()
	}

	q.lastCorrect = session.QuestionTimeUp(q.state)
	q.timedOut = true
	q.mode = modeFeedback
	q.options.Revealed = true
	return q, q.autoAdvance()
}

func (q *QuizScreen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	switch q.mode {
	case modeAnswering:
		switch msg.String() {
		case "enter":
			q.lastCorrect = session.RecordAnswer(q.state, q.options.Selected())
			q.timedOut = false
			q.mode = modeFeedback
			q.options.Revealed = true
			return q, nil
		case "esc":
			return q, q.abandon()
		}
		var cmd tea.Cmd
		q.options, cmd = q.options.Update(msg)
		return q, cmd

	case modeFeedback:
		switch msg.String() {
		case "enter", "n":
			return q, q.advance()
		case "esc":
			return q, q.abandon()
		}
		return q, nil

	case modeReview:
		return q.handleReviewKey(msg)
	}

	return q, nil
}

func (q *QuizScreen) handleReviewKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	a := q.state.Attempt
	switch msg.String() {
	case "up", "k":
		if q.reviewOffset > 0 {
			q.reviewOffset--
		}
	case "down", "j":
		if q.reviewOffset < len(a.Questions)-reviewWindow {
			q.reviewOffset++
		}
	case "r":
		if err := session.Retry(q.state); err != nil {
			q.log.Warn("retry failed", "error", err)
			return q, nil
		}
		q.mode = modeAnswering
		q.timedOut = false
		q.reviewOffset = 0
		q.resetOptions()
		return q, tea.Batch(q.saveProgress(), q.tick())
	case "esc", "b":
		session.BackToSelect(q.state)
		return q, screen.Pop()
	}
	return q, nil
}

// advance moves past feedback: next question, or section submit when the
// last question has been answered.
func (q *QuizScreen) advance() tea.Cmd {
	if q.state.OnLastQuestion() {
		return q.finishSection()
	}
	session.NextQuestion(q.state)
	q.mode = modeAnswering
	q.timedOut = false
	q.resetOptions()
	return tea.Batch(q.saveProgress(), q.tick())
}

// finishSection grades the attempt and shows the review. The transition
// happens before the save is even attempted, so a failed save never
// blocks the score display.
func (q *QuizScreen) finishSection() tea.Cmd {
	session.SubmitSection(q.state)
	q.mode = modeReview
	q.reviewOffset = 0
	return q.saveProgress()
}

// abandon cancels the attempt and returns to section select.
func (q *QuizScreen) abandon() tea.Cmd {
	session.BackToSelect(q.state)
	return tea.Batch(q.saveProgress(), screen.Pop())
}

func (q *QuizScreen) View(width, height int) string {
	a := q.state.Attempt
	if a == nil {
		return ""
	}
	if q.mode == modeReview {
		return q.reviewView(width, height)
	}
	return q.questionView(width, height)
}

func (q *QuizScreen) questionView(width, height int) string {
	a := q.state.Attempt
	question := q.state.CurrentQuestion()
	if question == nil {
		return ""
	}

	var b strings.Builder

	pos := components.NewProgressBar(
		fmt.Sprintf("Question %d/%d", a.Index+1, len(a.Questions)),
		float64(a.Index+1)/float64(len(a.Questions)),
		false, 50,
	)
	b.WriteString(pos.View() + "\n")
	b.WriteString(q.timerView() + "\n\n")

	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(question.Text) + "\n\n")
	b.WriteString(q.options.View())

	if q.mode == modeFeedback {
		b.WriteString("\n" + q.feedbackView())
	} else if question.Kind == questionbank.KindMulti {
		b.WriteString("\n" + theme.Hint.Render("space toggles, enter submits"))
	}

	card := theme.Card.Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

func (q *QuizScreen) timerView() string {
	return q.timerBar().View()
}

// timerBar renders the active countdown as a draining bar: the section
// clock on the final exam, the per-question clock everywhere else.
func (q *QuizScreen) timerBar() components.ProgressBar {
	a := q.state.Attempt

	var text string
	var frac float64
	var urgent bool
	if a.Section.FinalExam {
		remaining := a.SectionRemaining
		text = fmt.Sprintf("⏱ %02d:%02d:%02d",
			int(remaining.Hours()),
			int(remaining.Minutes())%60,
			int(remaining.Seconds())%60,
		)
		frac = float64(remaining) / float64(session.FinalExamTime)
		urgent = remaining <= 5*time.Minute
	} else {
		remaining := a.QuestionRemaining
		text = fmt.Sprintf("⏱ %2ds", int(remaining.Seconds()))
		frac = float64(remaining) / float64(session.QuestionTime)
		urgent = remaining <= 10*time.Second
	}

	style := theme.TimerCalm
	if urgent {
		style = theme.TimerUrgent
	}
	bar := components.NewProgressBar(style.Render(text), frac, false, 50)
	bar.Urgent = urgent
	return bar
}

func (q *QuizScreen) feedbackView() string {
	var verdict string
	switch {
	case q.timedOut && q.lastCorrect:
		verdict = theme.Correct.Render("Time's up, but the empty answer was right!")
	case q.timedOut:
		verdict = theme.Incorrect.Render("Time's up!")
	case q.lastCorrect:
		verdict = theme.Correct.Render("Correct!")
	default:
		verdict = theme.Incorrect.Render("Incorrect.")
	}

	hint := "enter for next"
	if q.state.OnLastQuestion() {
		hint = "enter to finish the section"
	}
	if q.timedOut {
		hint += " (auto in 3s)"
	}
	return verdict + "\n" + theme.Hint.Render(hint)
}

func (q *QuizScreen) reviewView(width, height int) string {
	a := q.state.Attempt

	var b strings.Builder
	b.WriteString(theme.Title.Render(fmt.Sprintf("%s complete", a.Section.Name)) + "\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).
		Render(fmt.Sprintf("Score: %d/%d", a.Score, len(a.Questions))) + "\n")
	b.WriteString(theme.Subtitle.Render(fmt.Sprintf("Total score: %d", session.TotalScore(q.state))) + "\n\n")

	end := q.reviewOffset + reviewWindow
	if end > len(a.Questions) {
		end = len(a.Questions)
	}
	for i := q.reviewOffset; i < end; i++ {
		b.WriteString(q.reviewLine(i) + "\n")
	}
	if end < len(a.Questions) {
		b.WriteString(theme.Hint.Render(fmt.Sprintf("… %d more", len(a.Questions)-end)) + "\n")
	}

	b.WriteString("\n" + theme.Hint.Render("r retry · esc back · ↑↓ scroll"))

	card := theme.Card.Render(b.String())
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, card)
}

func (q *QuizScreen) reviewLine(i int) string {
	a := q.state.Attempt
	question := a.Questions[i]

	mark := theme.Incorrect.Render("✗")
	if question.IsCorrect(a.Answers[i]) {
		mark = theme.Correct.Render("✓")
	}

	answered := strings.Join(a.Answers[i], ",")
	if answered == "" {
		answered = "—"
	}
	detail := fmt.Sprintf("you: %s  correct: %s", answered, strings.Join(question.Correct, ","))

	// Truncate on runes; a byte cut could split a multibyte character.
	text := question.Text
	if runes := []rune(text); len(runes) > 40 {
		text = string(runes[:40]) + "…"
	}
	return fmt.Sprintf("%s %2d. %s  %s", mark, i+1, text,
		lipgloss.NewStyle().Foreground(theme.TextDim).Render(detail))
}

// KeyHints implements screen.KeyHintProvider.
func (q *QuizScreen) KeyHints() []layout.KeyHint {
	switch q.mode {
	case modeReview:
		return []layout.KeyHint{
			{Key: "R", Description: "Retry"},
			{Key: "Esc", Description: "Sections"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	case modeFeedback:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Next"},
			{Key: "Esc", Description: "Abandon"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	default:
		return []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Answer"},
			{Key: "Esc", Description: "Abandon"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}
}
