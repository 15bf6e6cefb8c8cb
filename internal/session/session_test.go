package session

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/examdeck/examdeck/internal/progress"
	"github.com/examdeck/examdeck/internal/questionbank"
)

func testBank(n int) *questionbank.Bank {
	qs := make([]questionbank.Question, n)
	for i := range qs {
		qs[i] = questionbank.Question{
			Text: fmt.Sprintf("q%d", i),
			Options: []questionbank.Option{
				{Key: "A", Text: "alpha"},
				{Key: "B", Text: "beta"},
				{Key: "C", Text: "gamma"},
			},
			Correct: []string{"A"},
			Kind:    questionbank.KindSingle,
		}
	}
	return &questionbank.Bank{Questions: qs}
}

func unlockedState(t *testing.T, bankSize int, seed uint64) *State {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))
	state := NewState(testBank(bankSize), questionbank.DefaultSections(), rng)
	Unlock(state, "LICENSE-001-ABCDE", false, nil)
	return state
}

func texts(qs []*questionbank.Question) map[string]bool {
	set := make(map[string]bool, len(qs))
	for _, q := range qs {
		set[q.Text] = true
	}
	return set
}

func TestUnlock_FreshProgress(t *testing.T) {
	state := unlockedState(t, 385, 1)

	if state.Phase != PhaseSectionSelect {
		t.Fatalf("Phase = %d, want PhaseSectionSelect", state.Phase)
	}
	if state.Progress == nil || state.Progress.LicenseKey != "LICENSE-001-ABCDE" {
		t.Errorf("Progress = %+v, want fresh record for the key", state.Progress)
	}
}

func TestUnlock_ResumesExistingRecord(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	state := NewState(testBank(385), questionbank.DefaultSections(), rng)

	rec := progress.NewRecord("LICENSE-001-ABCDE")
	rec.Section = 4
	rec.Scores[0] = 50
	Unlock(state, "LICENSE-001-ABCDE", false, rec)

	if state.Progress.Section != 4 || state.Progress.Scores[0] != 50 {
		t.Errorf("resumed record = %+v", state.Progress)
	}
}

func TestEnterSection_NormalSection(t *testing.T) {
	state := unlockedState(t, 385, 2)

	if err := EnterSection(state, 1); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}
	a := state.Attempt
	if state.Phase != PhaseInSection {
		t.Fatalf("Phase = %d, want PhaseInSection", state.Phase)
	}
	if len(a.Questions) != 60 {
		t.Errorf("questions = %d, want 60", len(a.Questions))
	}
	if a.QuestionRemaining != QuestionTime {
		t.Errorf("QuestionRemaining = %v, want %v", a.QuestionRemaining, QuestionTime)
	}
	if a.SectionRemaining != 0 {
		t.Errorf("SectionRemaining = %v, want 0 for a normal section", a.SectionRemaining)
	}
	if state.Progress.Status[0] != progress.StatusInProgress {
		t.Errorf("Status[0] = %q, want in-progress", state.Progress.Status[0])
	}
}

func TestEnterSection_FinalExamUsesSectionTimer(t *testing.T) {
	state := unlockedState(t, 385, 3)

	if err := EnterSection(state, 8); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}
	a := state.Attempt
	if !a.Section.FinalExam {
		t.Fatal("section 8 should be the final exam")
	}
	if a.SectionRemaining != FinalExamTime {
		t.Errorf("SectionRemaining = %v, want %v", a.SectionRemaining, FinalExamTime)
	}
	if a.QuestionRemaining != 0 {
		t.Errorf("QuestionRemaining = %v, want 0 for the final exam", a.QuestionRemaining)
	}
}

func TestEnterSection_UnknownID(t *testing.T) {
	state := unlockedState(t, 385, 4)

	if err := EnterSection(state, 9); err == nil {
		t.Error("EnterSection(9) succeeded, want error")
	}
}

func TestRecordAnswer_ExactSetEquality(t *testing.T) {
	state := unlockedState(t, 385, 5)
	if err := EnterSection(state, 1); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}

	if !RecordAnswer(state, []string{"A"}) {
		t.Error("exact match graded incorrect")
	}
	NextQuestion(state)
	if RecordAnswer(state, []string{"A", "B"}) {
		t.Error("superset graded correct")
	}
	NextQuestion(state)
	if RecordAnswer(state, nil) {
		t.Error("empty answer graded correct against a non-empty set")
	}
}

func TestQuestionTimeUp_RecordsEmptySet(t *testing.T) {
	state := unlockedState(t, 385, 6)
	if err := EnterSection(state, 1); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}

	if correct := QuestionTimeUp(state); correct {
		t.Error("timeout graded correct against a non-empty correct set")
	}
	a := state.Attempt
	if !a.Answered[0] || !a.TimedOut[0] {
		t.Errorf("Answered/TimedOut = %v/%v, want true/true", a.Answered[0], a.TimedOut[0])
	}
	if a.Answers[0] == nil || len(a.Answers[0]) != 0 {
		t.Errorf("Answers[0] = %v, want recorded empty set", a.Answers[0])
	}

	// A second expiry for the same question must not re-record.
	a.TimedOut[0] = false
	QuestionTimeUp(state)
	if a.TimedOut[0] {
		t.Error("timeout re-recorded an already answered question")
	}
}

func TestQuestionTimeUp_EmptyCorrectSetGradesCorrect(t *testing.T) {
	bank := testBank(60)
	bank.Questions[0].Correct = nil
	rng := rand.New(rand.NewPCG(7, 7))
	state := NewState(bank, questionbank.DefaultSections(), rng)
	Unlock(state, "LICENSE-001-ABCDE", false, nil)
	if err := EnterSection(state, 1); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}

	// Walk to the question with the empty correct set.
	for state.CurrentQuestion().Text != "q0" {
		if !NextQuestion(state) {
			t.Fatal("q0 not present in the attempt")
		}
	}
	if correct := QuestionTimeUp(state); !correct {
		t.Error("empty answer against empty correct set graded incorrect")
	}
}

func TestNextQuestion_ResetsCountdownAndBumpsSeq(t *testing.T) {
	state := unlockedState(t, 385, 8)
	if err := EnterSection(state, 1); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}
	seq := state.TimerSeq
	state.Attempt.QuestionRemaining = 5 * time.Second

	RecordAnswer(state, []string{"A"})
	if !NextQuestion(state) {
		t.Fatal("NextQuestion returned false mid-section")
	}
	if state.Attempt.QuestionRemaining != QuestionTime {
		t.Errorf("QuestionRemaining = %v, want reset to %v", state.Attempt.QuestionRemaining, QuestionTime)
	}
	if state.TimerSeq == seq {
		t.Error("TimerSeq not bumped on advance")
	}
	if state.Progress.Index != 1 {
		t.Errorf("Progress.Index = %d, want 1", state.Progress.Index)
	}
}

func TestNextQuestion_RefusedOnLastQuestion(t *testing.T) {
	state := unlockedState(t, 385, 9)
	if err := EnterSection(state, 1); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}
	state.Attempt.Index = len(state.Attempt.Questions) - 1

	if NextQuestion(state) {
		t.Error("NextQuestion advanced past the last question")
	}
}

func TestTick_StaleSequenceDropped(t *testing.T) {
	state := unlockedState(t, 385, 10)
	if err := EnterSection(state, 1); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}
	stale := state.TimerSeq
	RecordAnswer(state, []string{"A"})
	NextQuestion(state)

	before := state.Attempt.QuestionRemaining
	res := Tick(state, stale)
	if !res.Stale {
		t.Error("tick with old sequence not reported stale")
	}
	if state.Attempt.QuestionRemaining != before {
		t.Error("stale tick mutated the countdown")
	}
}

func TestTick_QuestionExpiry(t *testing.T) {
	state := unlockedState(t, 385, 11)
	if err := EnterSection(state, 1); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}
	state.Attempt.QuestionRemaining = time.Second

	res := Tick(state, state.TimerSeq)
	if res.Stale || !res.Expired {
		t.Errorf("result = %+v, want expiry", res)
	}
	if state.Attempt.QuestionRemaining != 0 {
		t.Errorf("QuestionRemaining = %v, want 0", state.Attempt.QuestionRemaining)
	}
}

func TestTick_FinalExamExpiry(t *testing.T) {
	state := unlockedState(t, 385, 12)
	if err := EnterSection(state, 8); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}
	state.Attempt.SectionRemaining = time.Second

	res := Tick(state, state.TimerSeq)
	if !res.Expired {
		t.Errorf("result = %+v, want expiry", res)
	}
}

func TestSubmitSection_ScoresAndCompletes(t *testing.T) {
	state := unlockedState(t, 385, 13)
	if err := EnterSection(state, 1); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}

	// Answer the first three, leave the rest unanswered.
	RecordAnswer(state, []string{"A"})
	NextQuestion(state)
	RecordAnswer(state, []string{"B"})
	NextQuestion(state)
	RecordAnswer(state, []string{"A"})
	SubmitSection(state)

	if state.Phase != PhaseSectionComplete {
		t.Fatalf("Phase = %d, want PhaseSectionComplete", state.Phase)
	}
	if state.Attempt.Score != 2 {
		t.Errorf("Score = %d, want 2", state.Attempt.Score)
	}
	if state.Progress.Scores[0] != 2 {
		t.Errorf("Progress.Scores[0] = %d, want 2", state.Progress.Scores[0])
	}
	if state.Progress.Status[0] != progress.StatusCompleted {
		t.Errorf("Status[0] = %q, want completed", state.Progress.Status[0])
	}
}

func TestTotalScore_SumsAllSections(t *testing.T) {
	state := unlockedState(t, 385, 14)
	state.Progress.Scores[0] = 40
	state.Progress.Scores[6] = 20

	if got := TotalScore(state); got != 60 {
		t.Errorf("TotalScore = %d, want 60 (unattempted sections contribute 0)", got)
	}
}

func TestRetry_NormalSectionKeepsQuestionSet(t *testing.T) {
	state := unlockedState(t, 385, 15)
	if err := EnterSection(state, 1); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}
	first := texts(state.Attempt.Questions)

	SubmitSection(state)
	if err := Retry(state); err != nil {
		t.Fatalf("Retry: %v", err)
	}

	if state.Phase != PhaseInSection {
		t.Fatalf("Phase = %d, want PhaseInSection", state.Phase)
	}
	second := texts(state.Attempt.Questions)
	if len(first) != len(second) {
		t.Fatalf("question counts differ: %d vs %d", len(first), len(second))
	}
	for text := range first {
		if !second[text] {
			t.Errorf("retry dropped question %s from the fixed range", text)
		}
	}
	if state.Attempt.Answered[0] {
		t.Error("retry kept answers from the previous attempt")
	}
}

func TestRetry_FinalExamResamples(t *testing.T) {
	state := unlockedState(t, 385, 16)
	if err := EnterSection(state, 8); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}
	first := texts(state.Attempt.Questions)

	SubmitSection(state)
	if err := Retry(state); err != nil {
		t.Fatalf("Retry: %v", err)
	}

	second := texts(state.Attempt.Questions)
	overlap := 0
	for text := range first {
		if second[text] {
			overlap++
		}
	}
	// 60 of 385 twice; full overlap would mean the sample was reused.
	if overlap == len(first) {
		t.Error("final exam retry reused the exact same sample")
	}
}

func TestBackToSelect_CancelsAttempt(t *testing.T) {
	state := unlockedState(t, 385, 17)
	if err := EnterSection(state, 1); err != nil {
		t.Fatalf("EnterSection: %v", err)
	}
	seq := state.TimerSeq

	BackToSelect(state)
	if state.Phase != PhaseSectionSelect || state.Attempt != nil {
		t.Errorf("Phase/Attempt = %d/%v after back", state.Phase, state.Attempt)
	}
	if state.TimerSeq == seq {
		t.Error("TimerSeq not bumped, pending ticks would still apply")
	}
	if res := Tick(state, seq); !res.Stale {
		t.Error("tick from the abandoned attempt not dropped")
	}
}
