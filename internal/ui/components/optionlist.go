package components

import (
	"fmt"
	"sort"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/examdeck/examdeck/internal/questionbank"
	"github.com/examdeck/examdeck/internal/ui/theme"
)

// OptionList presents a question's options in their declared order. For
// single-answer questions enter selects and submits in one step; for
// multi-answer questions space toggles and enter submits the chosen set.
type OptionList struct {
	Question *questionbank.Question
	Cursor   int
	Chosen   map[string]bool

	// Revealed switches the list into feedback rendering: correct options
	// green, wrong picks red, the rest dimmed.
	Revealed bool
}

// NewOptionList creates a list over the question's options.
func NewOptionList(q *questionbank.Question) OptionList {
	return OptionList{
		Question: q,
		Chosen:   make(map[string]bool),
	}
}

// Init returns nil.
func (o OptionList) Init() tea.Cmd {
	return nil
}

// Update handles navigation and selection. Submission itself is the
// parent's call; the parent watches for enter and reads Selected.
func (o OptionList) Update(msg tea.Msg) (OptionList, tea.Cmd) {
	if o.Revealed {
		return o, nil
	}

	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return o, nil
	}

	switch kmsg.String() {
	case "up", "k":
		if o.Cursor > 0 {
			o.Cursor--
		}
	case "down", "j":
		if o.Cursor < len(o.Question.Options)-1 {
			o.Cursor++
		}
	case " ":
		if o.Question.Kind == questionbank.KindMulti {
			key := o.Question.Options[o.Cursor].Key
			if o.Chosen[key] {
				delete(o.Chosen, key)
			} else {
				o.Chosen[key] = true
			}
		}
	}

	return o, nil
}

// Selected returns the chosen option keys. For single-answer questions
// the cursor position is the choice.
func (o OptionList) Selected() []string {
	if o.Question.Kind == questionbank.KindSingle {
		if len(o.Question.Options) == 0 {
			return nil
		}
		return []string{o.Question.Options[o.Cursor].Key}
	}
	keys := make([]string, 0, len(o.Chosen))
	for key := range o.Chosen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// View renders the option list.
func (o OptionList) View() string {
	correct := make(map[string]bool, len(o.Question.Correct))
	for _, key := range o.Question.Correct {
		correct[key] = true
	}

	var s string
	for i, opt := range o.Question.Options {
		marker := " "
		if o.Question.Kind == questionbank.KindMulti {
			if o.Chosen[opt.Key] {
				marker = "■"
			} else {
				marker = "□"
			}
		}

		prefix := "  "
		if i == o.Cursor && !o.Revealed {
			prefix = "▸ "
		}

		line := fmt.Sprintf("%s%s %s)  %s", prefix, marker, opt.Key, opt.Text)

		switch {
		case o.Revealed && correct[opt.Key]:
			s += theme.Correct.Render(line) + "\n"
		case o.Revealed && o.picked(opt.Key):
			s += theme.Incorrect.Render(line) + "\n"
		case o.Revealed:
			s += lipgloss.NewStyle().Foreground(theme.TextDim).Render(line) + "\n"
		case i == o.Cursor:
			s += theme.Selected.Render(line) + "\n"
		default:
			s += theme.Unselected.Render(line) + "\n"
		}
	}
	return s
}

func (o OptionList) picked(key string) bool {
	if o.Question.Kind == questionbank.KindSingle {
		return len(o.Question.Options) > 0 && o.Question.Options[o.Cursor].Key == key
	}
	return o.Chosen[key]
}
