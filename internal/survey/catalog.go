package survey

import (
	"encoding/json"
	"fmt"
	"os"
)

// Question is one immutable catalog entry.
type Question struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// Catalog is the ordered list of survey questions, fixed at process start.
// Question IDs are opaque keys; ordering is slice order, never derived from
// the ID text.
type Catalog struct {
	questions []Question
}

// NewCatalog builds a catalog from the given questions.
func NewCatalog(questions []Question) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("catalog: no questions")
	}
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		if q.ID == "" || q.Prompt == "" {
			return nil, fmt.Errorf("catalog: question %d missing id or prompt", i)
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate question id %q", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	qs := make([]Question, len(questions))
	copy(qs, questions)
	return &Catalog{questions: qs}, nil
}

// LoadCatalog reads a JSON array of questions from path. An empty path
// returns the built-in default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(defaultQuestions)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var questions []Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("catalog: parse %s: %w", path, err)
	}
	return NewCatalog(questions)
}

// Len reports the number of questions.
func (c *Catalog) Len() int { return len(c.questions) }

// At returns the question at position i and whether i is in range.
func (c *Catalog) At(i int) (Question, bool) {
	if i < 0 || i >= len(c.questions) {
		return Question{}, false
	}
	return c.questions[i], true
}

// Questions returns a copy of the ordered question list.
func (c *Catalog) Questions() []Question {
	qs := make([]Question, len(c.questions))
	copy(qs, c.questions)
	return qs
}

var defaultQuestions = []Question{
	{ID: "Q1", Prompt: "Hi! Thanks for joining. First, where are you traveling to?"},
	{ID: "Q2", Prompt: "When will you be traveling?"},
	{ID: "Q3", Prompt: "Who are you traveling with?"},
	{ID: "Q4", Prompt: "What's your top priority for this trip?"},
	{ID: "Q5", Prompt: "Any special requirements or questions for us?"},
}
