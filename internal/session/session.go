package session

import (
	"fmt"
	"time"

	"github.com/examdeck/examdeck/internal/progress"
)

// Unlock transitions a locked session to section select after a
// successful license validation. A nil record starts fresh progress.
func Unlock(state *State, licenseKey string, admin bool, rec *progress.Record) {
	if rec == nil {
		rec = progress.NewRecord(licenseKey)
	}
	rec.Normalize()
	state.LicenseKey = licenseKey
	state.Admin = admin
	state.Progress = rec
	state.Phase = PhaseSectionSelect
}

// EnterSection starts a fresh attempt at the given section. Any section
// is selectable; incomplete earlier sections do not lock later ones.
func EnterSection(state *State, id int) error {
	sec, ok := state.SectionByID(id)
	if !ok {
		return fmt.Errorf("no section with id %d", id)
	}

	questions := sec.Draw(state.Bank, state.Rand)
	if len(questions) == 0 {
		return fmt.Errorf("section %d has no questions", id)
	}

	attempt := &Attempt{
		Section:   sec,
		Questions: questions,
		Answers:   make([][]string, len(questions)),
		Answered:  make([]bool, len(questions)),
		TimedOut:  make([]bool, len(questions)),
	}
	if sec.FinalExam {
		attempt.SectionRemaining = FinalExamTime
	} else {
		attempt.QuestionRemaining = QuestionTime
	}

	state.Attempt = attempt
	state.Phase = PhaseInSection
	state.TimerSeq++

	state.Progress.Section = id
	state.Progress.Index = 0
	if state.Progress.Status[id-1] != progress.StatusCompleted {
		state.Progress.Status[id-1] = progress.StatusInProgress
	}
	return nil
}

// RecordAnswer records the selected option keys for the current question
// and reports whether they match the correct set exactly.
func RecordAnswer(state *State, selected []string) bool {
	a := state.Attempt
	if a == nil || state.Phase != PhaseInSection {
		return false
	}
	a.Answers[a.Index] = selected
	a.Answered[a.Index] = true
	if !a.Section.FinalExam {
		// The per-question countdown is void once an answer is recorded.
		// The final exam's section countdown keeps running.
		state.TimerSeq++
	}
	return a.Questions[a.Index].IsCorrect(selected)
}

// QuestionTimeUp records the empty set for the current question when its
// countdown expires with no submission. The empty answer still goes
// through normal grading, so a question whose correct set is empty
// grades correct.
func QuestionTimeUp(state *State) bool {
	a := state.Attempt
	if a == nil || state.Phase != PhaseInSection || a.Answered[a.Index] {
		return false
	}
	a.Answers[a.Index] = []string{}
	a.Answered[a.Index] = true
	a.TimedOut[a.Index] = true
	return a.Questions[a.Index].IsCorrect(nil)
}

// NextQuestion advances to the next question, resetting the per-question
// countdown. Returns false on the last question; callers submit instead.
func NextQuestion(state *State) bool {
	a := state.Attempt
	if a == nil || state.Phase != PhaseInSection || state.OnLastQuestion() {
		return false
	}
	a.Index++
	if !a.Section.FinalExam {
		a.QuestionRemaining = QuestionTime
	}
	state.TimerSeq++
	state.Progress.Index = a.Index
	return true
}

// TickResult reports the outcome of a timer tick. Expired is true when
// the countdown just reached zero.
type TickResult struct {
	Stale   bool
	Expired bool
}

// Tick advances the active countdown by one second. Ticks tagged with a
// sequence older than the current one belong to an abandoned state and
// are dropped.
func Tick(state *State, seq uint64) TickResult {
	if seq != state.TimerSeq {
		return TickResult{Stale: true}
	}
	a := state.Attempt
	if a == nil || state.Phase != PhaseInSection {
		return TickResult{Stale: true}
	}

	if a.Section.FinalExam {
		a.SectionRemaining -= time.Second
		if a.SectionRemaining <= 0 {
			a.SectionRemaining = 0
			return TickResult{Expired: true}
		}
		return TickResult{}
	}

	a.QuestionRemaining -= time.Second
	if a.QuestionRemaining <= 0 {
		a.QuestionRemaining = 0
		return TickResult{Expired: true}
	}
	return TickResult{}
}

// SubmitSection grades the attempt and completes the section. Unanswered
// questions grade as the empty set. This transition always succeeds;
// persisting the updated record is the caller's concern and its failure
// must not block the result display.
func SubmitSection(state *State) {
	a := state.Attempt
	if a == nil || state.Phase != PhaseInSection {
		return
	}

	score := 0
	for i, q := range a.Questions {
		if q.IsCorrect(a.Answers[i]) {
			score++
		}
	}
	a.Score = score

	id := a.Section.ID
	state.Progress.Scores[id-1] = score
	state.Progress.Status[id-1] = progress.StatusCompleted
	state.Progress.Answers = a.Answers
	state.Progress.IsFinalExam = a.Section.FinalExam
	state.Progress.Index = a.Index

	state.Phase = PhaseSectionComplete
	state.TimerSeq++
}

// Retry redraws the just-completed section for another attempt. A normal
// section reshuffles the same fixed range; the final exam draws a brand
// new sample.
func Retry(state *State) error {
	if state.Attempt == nil || state.Phase != PhaseSectionComplete {
		return fmt.Errorf("no completed attempt to retry")
	}
	return EnterSection(state, state.Attempt.Section.ID)
}

// BackToSelect abandons the current attempt and returns to section
// select, cancelling any running countdown.
func BackToSelect(state *State) {
	state.Attempt = nil
	state.Phase = PhaseSectionSelect
	state.TimerSeq++
}

// TotalScore sums the per-section scores, sections never attempted
// contributing zero.
func TotalScore(state *State) int {
	if state.Progress == nil {
		return 0
	}
	return state.Progress.Total()
}
