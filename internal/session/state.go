// Package session holds the quiz state machine. All state lives in a
// single State value and is mutated only through the transition
// functions in this package, so the machine tests deterministically
// without a rendering surface.
package session

import (
	"math/rand/v2"
	"time"

	"github.com/examdeck/examdeck/internal/progress"
	"github.com/examdeck/examdeck/internal/questionbank"
)

// Phase represents the current phase of the quiz session.
type Phase int

const (
	PhaseLocked          Phase = iota // Waiting for license validation
	PhaseSectionSelect                // Choosing a section
	PhaseInSection                    // Answering questions
	PhaseSectionComplete              // Showing the section result
)

// QuestionTime is the per-question countdown for normal sections.
const QuestionTime = 90 * time.Second

// FinalExamTime is the single countdown covering a whole final exam attempt.
const FinalExamTime = 90 * time.Minute

// FeedbackDelay is how long the timeout feedback stays up before the
// session advances on its own.
const FeedbackDelay = 3 * time.Second

// State tracks the runtime state of a quiz session.
type State struct {
	// Phase is the current session phase.
	Phase Phase

	// LicenseKey is the validated key, empty while locked.
	LicenseKey string

	// Admin is true when the session was unlocked with the admin key.
	Admin bool

	// Bank is the loaded question set.
	Bank *questionbank.Bank

	// Sections is the static section layout.
	Sections []questionbank.Section

	// Progress is the durable record backing this session. Transitions
	// mutate it in place; persistence is the caller's concern.
	Progress *progress.Record

	// Attempt is the active section attempt, nil outside PhaseInSection
	// and PhaseSectionComplete.
	Attempt *Attempt

	// TimerSeq is bumped every time a countdown starts or the state
	// machine leaves the state that started one. Ticks carrying an older
	// sequence are stale and must be ignored.
	TimerSeq uint64

	// Rand drives question shuffling and final-exam sampling.
	Rand *rand.Rand
}

// Attempt is one pass through a section's questions.
type Attempt struct {
	// Section is the definition this attempt was drawn from.
	Section questionbank.Section

	// Questions is the drawn order for this attempt.
	Questions []*questionbank.Question

	// Index is the current question, 0-based.
	Index int

	// Answers holds the recorded option-key set per question. An entry is
	// meaningful only where Answered is true; a timeout records the empty
	// set explicitly.
	Answers [][]string

	// Answered marks which questions have a recorded answer.
	Answered []bool

	// TimedOut marks questions whose answer was recorded by timer expiry.
	TimedOut []bool

	// QuestionRemaining is the per-question countdown (normal sections).
	QuestionRemaining time.Duration

	// SectionRemaining is the whole-attempt countdown (final exam only).
	SectionRemaining time.Duration

	// Score is the graded result, set when the attempt is submitted.
	Score int
}

// NewState creates a locked session over the given bank and layout.
func NewState(bank *questionbank.Bank, sections []questionbank.Section, rng *rand.Rand) *State {
	return &State{
		Phase:    PhaseLocked,
		Bank:     bank,
		Sections: sections,
		Rand:     rng,
	}
}

// CurrentQuestion returns the active question, or nil when no attempt is
// running.
func (s *State) CurrentQuestion() *questionbank.Question {
	if s.Attempt == nil || s.Attempt.Index >= len(s.Attempt.Questions) {
		return nil
	}
	return s.Attempt.Questions[s.Attempt.Index]
}

// OnLastQuestion reports whether the attempt is on its final question.
func (s *State) OnLastQuestion() bool {
	return s.Attempt != nil && s.Attempt.Index == len(s.Attempt.Questions)-1
}

// SectionByID returns the section definition with the given id.
func (s *State) SectionByID(id int) (questionbank.Section, bool) {
	for _, sec := range s.Sections {
		if sec.ID == id {
			return sec, true
		}
	}
	return questionbank.Section{}, false
}
