package questionbank

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// DefaultCandidatePaths are tried in order when no explicit question file
// is configured; the first readable one wins.
var DefaultCandidatePaths = []string{
	"questions.json",
	"src/questions.json",
	"dist/questions.json",
}

// Bank is the full loaded question set.
type Bank struct {
	Questions []Question
}

// Len returns the number of loaded questions.
func (b *Bank) Len() int { return len(b.Questions) }

// Load reads the question file from the first readable candidate path.
// Individual entries failing schema validation are logged and skipped; a
// file yielding zero valid questions is a load failure.
func Load(candidates []string, log *slog.Logger) (*Bank, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if len(candidates) == 0 {
		candidates = DefaultCandidatePaths
	}

	var lastErr error
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			continue
		}
		bank, err := Parse(data, log)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", path, err)
			continue
		}
		log.Info("question bank loaded", slog.String("path", path), slog.Int("questions", bank.Len()))
		return bank, nil
	}

	return nil, fmt.Errorf("no question file found in %v: %w", candidates, lastErr)
}

// Parse decodes a question-file payload, skipping invalid entries.
func Parse(data []byte, log *slog.Logger) (*Bank, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("question file is not a JSON array: %w", err)
	}

	questions := make([]Question, 0, len(entries))
	skipped := 0
	for i, raw := range entries {
		if err := validateEntry(raw); err != nil {
			log.Warn("skipping invalid question entry", slog.Int("index", i), slog.String("error", err.Error()))
			skipped++
			continue
		}
		var q Question
		if err := json.Unmarshal(raw, &q); err != nil {
			log.Warn("skipping undecodable question entry", slog.Int("index", i), slog.String("error", err.Error()))
			skipped++
			continue
		}
		questions = append(questions, q)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("no valid questions (skipped %d entries)", skipped)
	}
	if skipped > 0 {
		log.Warn("question bank loaded with gaps", slog.Int("valid", len(questions)), slog.Int("skipped", skipped))
	}

	return &Bank{Questions: questions}, nil
}
