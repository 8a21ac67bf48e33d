package models

// TriviaPool identifies which question pool a question belongs to.
type TriviaPool string

const (
	TriviaPoolMain     TriviaPool = "main"
	TriviaPoolHalftime TriviaPool = "halftime"
)

// TriviaQuestion is a static multiple choice question.
type TriviaQuestion struct {
	ID                 string     `json:"id" yaml:"id"`
	Text               string     `json:"text" yaml:"text"`
	Options            []string   `json:"options" yaml:"options"`
	CorrectOptionIndex int        `json:"correctOptionIndex" yaml:"correctOptionIndex"`
	Points             int        `json:"points" yaml:"points"`
	Pool               TriviaPool `json:"pool" yaml:"-"`
}
