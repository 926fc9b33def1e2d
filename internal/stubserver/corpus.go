package stubserver

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yaml
var defaultCorpusYAML []byte

// Article is one entry in the stub's fixture corpus.
type Article struct {
	// URL of the article page
	URL string `yaml:"url"`

	// Name is the article title; its words participate in ranking
	Name string `yaml:"name"`

	// TLDR is the short teaser (derived from the summary when omitted)
	TLDR string `yaml:"tldr"`

	// Summary is the longer abstract shown on demand
	Summary string `yaml:"summary"`

	// Keywords participate in ranking alongside the name
	Keywords []string `yaml:"keywords"`
}

// Corpus is the article set the stub serves results from.
type Corpus struct {
	Articles []Article `yaml:"articles"`
}

// LoadCorpus loads and validates a corpus from a YAML file.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	corpus, err := parseCorpus(data)
	if err != nil {
		return nil, fmt.Errorf("invalid corpus file %s: %w", path, err)
	}
	return corpus, nil
}

// DefaultCorpus returns the embedded fixture corpus.
func DefaultCorpus() (*Corpus, error) {
	return parseCorpus(defaultCorpusYAML)
}

func parseCorpus(data []byte) (*Corpus, error) {
	var corpus Corpus
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("failed to parse corpus YAML: %w", err)
	}

	if err := validateCorpus(&corpus); err != nil {
		return nil, err
	}

	applyCorpusDefaults(&corpus)

	return &corpus, nil
}

// validateCorpus validates the corpus structure
func validateCorpus(corpus *Corpus) error {
	if len(corpus.Articles) == 0 {
		return fmt.Errorf("articles is required and must contain at least one article")
	}

	for i, article := range corpus.Articles {
		if article.URL == "" {
			return fmt.Errorf("articles[%d].url is required", i)
		}
		if article.Name == "" {
			return fmt.Errorf("articles[%d].name is required", i)
		}
	}

	return nil
}

// applyCorpusDefaults fills in derivable fields
func applyCorpusDefaults(corpus *Corpus) {
	for i := range corpus.Articles {
		if corpus.Articles[i].TLDR == "" {
			corpus.Articles[i].TLDR = deriveTLDR(corpus.Articles[i].Summary)
		}
	}
}

// deriveTLDR truncates a summary to its first 300 runes, the same cut
// the collaborator applies when generating teasers.
func deriveTLDR(summary string) string {
	runes := []rune(summary)
	if len(runes) <= 300 {
		return summary
	}
	return string(runes[:300]) + "..."
}
