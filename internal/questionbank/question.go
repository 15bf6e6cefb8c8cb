// Package questionbank loads and models the static multiple-choice
// question set. The bank is immutable once loaded; sections are fixed
// contiguous slices over it, plus a synthetic final exam sampled across
// the whole set.
package questionbank

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind distinguishes single-answer from multi-answer questions.
type Kind string

const (
	KindSingle Kind = "single"
	KindMulti  Kind = "multi"
)

// Option is one answer choice. Slice order is display order, preserved
// from the JSON object's declaration order.
type Option struct {
	Key  string
	Text string
}

// Question is one loaded quiz question.
type Question struct {
	Text    string
	Options []Option
	Correct []string
	Kind    Kind
}

// questionWire matches the data-file format.
type questionWire struct {
	Question string          `json:"question"`
	Options  json.RawMessage `json:"options"`
	Correct  []string        `json:"correct"`
	Type     string          `json:"type"`
}

// UnmarshalJSON decodes the wire format, walking the options object with a
// token decoder because encoding/json maps would lose declaration order.
func (q *Question) UnmarshalJSON(data []byte) error {
	var w questionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	opts, err := decodeOrderedOptions(w.Options)
	if err != nil {
		return fmt.Errorf("decode options: %w", err)
	}

	q.Text = w.Question
	q.Options = opts
	q.Correct = w.Correct
	q.Kind = Kind(w.Type)
	return nil
}

// MarshalJSON writes the wire format back out, preserving option order.
func (q Question) MarshalJSON() ([]byte, error) {
	var opts bytes.Buffer
	opts.WriteByte('{')
	for i, o := range q.Options {
		if i > 0 {
			opts.WriteByte(',')
		}
		k, err := json.Marshal(o.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(o.Text)
		if err != nil {
			return nil, err
		}
		opts.Write(k)
		opts.WriteByte(':')
		opts.Write(v)
	}
	opts.WriteByte('}')

	return json.Marshal(questionWire{
		Question: q.Text,
		Options:  json.RawMessage(opts.Bytes()),
		Correct:  q.Correct,
		Type:     string(q.Kind),
	})
}

// IsCorrect compares a selected option-key set against the correct set for
// exact equality: same size, mutual containment. Partial credit is never
// awarded. Two empty sets compare equal, so a timeout on a question with no
// correct options still counts.
func (q *Question) IsCorrect(selected []string) bool {
	if len(selected) != len(q.Correct) {
		return false
	}
	for _, s := range selected {
		if !contains(q.Correct, s) {
			return false
		}
	}
	return true
}

func contains(set []string, key string) bool {
	for _, k := range set {
		if k == key {
			return true
		}
	}
	return false
}

// decodeOrderedOptions token-walks a JSON object, keeping key order.
func decodeOrderedOptions(raw json.RawMessage) ([]Option, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("options is not an object")
	}

	var opts []Option
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("non-string option key")
		}

		var text string
		if err := dec.Decode(&text); err != nil {
			return nil, fmt.Errorf("option %q: %w", key, err)
		}

		opts = append(opts, Option{Key: key, Text: text})
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return opts, nil
}
