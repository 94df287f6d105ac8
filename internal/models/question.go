// internal/models/question.go
package models

import "github.com/google/uuid"

// Question is one multiple-choice question within a set. CorrectIndex is
// never serialized toward clients until the reveal phase.
type Question struct {
	ID           uuid.UUID `json:"id"`
	Prompt       string    `json:"prompt"`
	Options      []string  `json:"options"`
	CorrectIndex int       `json:"-"`
	TimeLimitSec int       `json:"timeLimitSec"`
}

// QuestionSet is an immutable ordered list of questions resolved from the
// catalog at room creation.
type QuestionSet struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// QuestionView is the payload broadcast when a question begins: the prompt
// and options with the correct index withheld.
type QuestionView struct {
	Index        int      `json:"index"`
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	TimeLimitSec int      `json:"timeLimitSec"`
	Total        int      `json:"total"`
}

// View strips the answer key from q for broadcast.
func (q Question) View(index, total int) QuestionView {
	return QuestionView{
		Index:        index,
		Prompt:       q.Prompt,
		Options:      append([]string(nil), q.Options...),
		TimeLimitSec: q.TimeLimitSec,
		Total:        total,
	}
}
