package questionbank

import (
	"math/rand/v2"
)

// SectionCount is the fixed number of sections, final exam included.
const SectionCount = 8

// FinalExamID is the section id of the synthetic final exam.
const FinalExamID = 8

// Section is one selectable quiz attempt: a fixed contiguous range over
// the bank, or the synthetic final exam sampled across all of it.
type Section struct {
	ID        int
	Name      string
	Start     int // inclusive index into the bank
	End       int // inclusive
	Count     int // required question count
	FinalExam bool
}

// DefaultSections returns the built-in section layout: seven contiguous
// ranges over a 385-question bank plus the random final exam.
func DefaultSections() []Section {
	return []Section{
		{ID: 1, Name: "Section 1", Start: 0, End: 59, Count: 60},
		{ID: 2, Name: "Section 2", Start: 60, End: 119, Count: 60},
		{ID: 3, Name: "Section 3", Start: 120, End: 179, Count: 60},
		{ID: 4, Name: "Section 4", Start: 180, End: 239, Count: 60},
		{ID: 5, Name: "Section 5", Start: 240, End: 299, Count: 60},
		{ID: 6, Name: "Section 6", Start: 300, End: 359, Count: 60},
		{ID: 7, Name: "Section 7", Start: 360, End: 384, Count: 25},
		{ID: 8, Name: "Final Exam", Start: 0, End: 384, Count: 60, FinalExam: true},
	}
}

// Draw returns the questions for one attempt at this section. A normal
// section yields its fixed range in a freshly randomized order; the final
// exam draws Count questions uniformly at random from the whole bank
// without replacement. Pointers alias the bank: questions are immutable
// once loaded.
func (s Section) Draw(bank *Bank, rng *rand.Rand) []*Question {
	if s.FinalExam {
		return Sample(bank, s.Count, rng)
	}

	start := max(0, s.Start)
	end := min(bank.Len()-1, s.End)
	if start > end {
		return nil
	}

	qs := make([]*Question, 0, end-start+1)
	for i := start; i <= end; i++ {
		qs = append(qs, &bank.Questions[i])
	}
	Shuffle(qs, rng)
	return qs
}

// Sample draws min(count, len(bank)) distinct questions uniformly at
// random, never repeating an index within one draw.
func Sample(bank *Bank, count int, rng *rand.Rand) []*Question {
	n := bank.Len()
	if count > n {
		count = n
	}
	out := make([]*Question, 0, count)
	for _, i := range rng.Perm(n)[:count] {
		out = append(out, &bank.Questions[i])
	}
	return out
}

// Shuffle randomizes qs in place (Fisher-Yates).
func Shuffle(qs []*Question, rng *rand.Rand) {
	rng.Shuffle(len(qs), func(i, j int) {
		qs[i], qs[j] = qs[j], qs[i]
	})
}
