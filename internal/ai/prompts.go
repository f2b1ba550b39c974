package ai

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

//go:embed prompts/relevance.md
var relevancePromptRaw string

//go:embed prompts/novelty.md
var noveltyPromptRaw string

// DefaultRelevancePrompt and DefaultNoveltyPrompt are used by roles that do
// not configure their own templates.
var (
	DefaultRelevancePrompt = relevancePromptRaw
	DefaultNoveltyPrompt   = noveltyPromptRaw
)

// RelevancePromptData is the data available to relevance templates.
type RelevancePromptData struct {
	Role   string
	Signal string
}

// NoveltyPromptData is the data available to novelty templates.
type NoveltyPromptData struct {
	Role      string
	Company   string
	NewSignal string   // context of the candidate lead
	Content   string   // raw post text the lead came from
	Priors    []string // contexts already stored for the company
}

// ParsePrompt parses a role prompt template. Unknown fields are errors.
func ParsePrompt(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s prompt: %w", name, err)
	}
	return tmpl, nil
}

// RenderPrompt executes tmpl with data.
func RenderPrompt(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}
