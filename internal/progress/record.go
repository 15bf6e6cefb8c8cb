// Package progress persists quiz progress to the remote document store,
// mirroring every write into the local database so a restart without
// connectivity can resume from the last known state.
package progress

import (
	"time"

	"github.com/examdeck/examdeck/internal/questionbank"
)

// Status of a single section as recorded in a progress document.
const (
	StatusNotStarted = "not-started"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Record is the wire shape of a progress document. Answers holds one
// entry per question of the active attempt; each entry is the set of
// option keys the user selected (empty on timeout).
type Record struct {
	LicenseKey  string     `json:"licenseKey"`
	Section     int        `json:"currentPart"`
	Index       int        `json:"currentIndex"`
	Answers     [][]string `json:"userAnswers"`
	Scores      []int      `json:"partScores"`
	Status      []string   `json:"partStatus"`
	LastSaved   time.Time  `json:"lastSaved"`
	TotalScore  int        `json:"totalScore"`
	IsFinalExam bool       `json:"isFinalExam"`
}

// NewRecord returns an empty record for the given license key with all
// sections not started.
func NewRecord(licenseKey string) *Record {
	r := &Record{
		LicenseKey: licenseKey,
		Section:    1,
		Scores:     make([]int, questionbank.SectionCount),
		Status:     make([]string, questionbank.SectionCount),
	}
	for i := range r.Status {
		r.Status[i] = StatusNotStarted
	}
	return r
}

// Normalize repairs a record loaded from an older or partial document so
// callers can index sections without bounds checks.
func (r *Record) Normalize() {
	if r.Section < 1 {
		r.Section = 1
	}
	if r.Index < 0 {
		r.Index = 0
	}
	for len(r.Scores) < questionbank.SectionCount {
		r.Scores = append(r.Scores, 0)
	}
	for len(r.Status) < questionbank.SectionCount {
		r.Status = append(r.Status, StatusNotStarted)
	}
	for i, s := range r.Status {
		switch s {
		case StatusNotStarted, StatusInProgress, StatusCompleted:
		default:
			r.Status[i] = StatusNotStarted
		}
	}
}

// Clone returns a deep copy. Saves run on a background goroutine while
// the UI keeps mutating the live record, so every save must serialize a
// private snapshot taken on the caller's side.
func (r *Record) Clone() *Record {
	c := *r
	c.Scores = append([]int(nil), r.Scores...)
	c.Status = append([]string(nil), r.Status...)
	c.Answers = make([][]string, len(r.Answers))
	for i, a := range r.Answers {
		c.Answers[i] = append([]string(nil), a...)
	}
	return &c
}

// Total sums the per-section scores.
func (r *Record) Total() int {
	total := 0
	for _, s := range r.Scores {
		total += s
	}
	return total
}
