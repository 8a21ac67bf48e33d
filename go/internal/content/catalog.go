// Package content holds the static trivia pools and prop-bet list shipped with the app.
package content

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/mcdev12/huddle/go/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed trivia.yaml
var defaultTrivia []byte

//go:embed props.yaml
var defaultProps []byte

// Catalog is the read-only game content loaded at startup.
type Catalog struct {
	Main     []models.TriviaQuestion
	Halftime []models.TriviaQuestion
	Props    []models.PropBet
}

type triviaFile struct {
	Main     []models.TriviaQuestion `yaml:"main"`
	Halftime []models.TriviaQuestion `yaml:"halftime"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultTrivia, defaultProps)
}

// Load reads the catalog from files, falling back to the embedded content for any empty path.
func Load(triviaPath, propsPath string) (*Catalog, error) {
	triviaData, propsData := defaultTrivia, defaultProps
	if triviaPath != "" {
		data, err := os.ReadFile(triviaPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read trivia file: %w", err)
		}
		triviaData = data
	}
	if propsPath != "" {
		data, err := os.ReadFile(propsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read props file: %w", err)
		}
		propsData = data
	}
	return Parse(triviaData, propsData)
}

// Parse decodes and validates trivia and prop-bet YAML.
func Parse(triviaData, propsData []byte) (*Catalog, error) {
	var tf triviaFile
	if err := yaml.Unmarshal(triviaData, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse trivia: %w", err)
	}
	var props []models.PropBet
	if err := yaml.Unmarshal(propsData, &props); err != nil {
		return nil, fmt.Errorf("failed to parse props: %w", err)
	}

	for i := range tf.Main {
		tf.Main[i].Pool = models.TriviaPoolMain
	}
	for i := range tf.Halftime {
		tf.Halftime[i].Pool = models.TriviaPoolHalftime
	}

	c := &Catalog{Main: tf.Main, Halftime: tf.Halftime, Props: props}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	seen := make(map[string]bool)
	for _, q := range c.Questions() {
		if q.ID == "" {
			return fmt.Errorf("trivia question %q has no id", q.Text)
		}
		if seen[q.ID] {
			return fmt.Errorf("duplicate trivia question id %s", q.ID)
		}
		seen[q.ID] = true
		if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
			return fmt.Errorf("trivia question %s: correct option %d out of range", q.ID, q.CorrectOptionIndex)
		}
		if q.Points <= 0 {
			return fmt.Errorf("trivia question %s: points must be positive", q.ID)
		}
	}

	seen = make(map[string]bool)
	for _, p := range c.Props {
		if p.ID == "" {
			return fmt.Errorf("prop bet %q has no id", p.Question)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate prop bet id %s", p.ID)
		}
		seen[p.ID] = true
		if len(p.Options) < 2 {
			return fmt.Errorf("prop bet %s needs at least two options", p.ID)
		}
		if !validCategory(p.Category) {
			return fmt.Errorf("prop bet %s: unknown category %q", p.ID, p.Category)
		}
	}
	return nil
}

func validCategory(c models.BetCategory) bool {
	for _, known := range models.BetCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Questions returns both pools, main round first.
func (c *Catalog) Questions() []models.TriviaQuestion {
	out := make([]models.TriviaQuestion, 0, len(c.Main)+len(c.Halftime))
	out = append(out, c.Main...)
	return append(out, c.Halftime...)
}

// Question looks a trivia question up by id.
func (c *Catalog) Question(id string) (models.TriviaQuestion, bool) {
	for _, q := range c.Questions() {
		if q.ID == id {
			return q, true
		}
	}
	return models.TriviaQuestion{}, false
}

// Prop looks a prop bet up by id.
func (c *Catalog) Prop(id string) (models.PropBet, bool) {
	for _, p := range c.Props {
		if p.ID == id {
			return p, true
		}
	}
	return models.PropBet{}, false
}
