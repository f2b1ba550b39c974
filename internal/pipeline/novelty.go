package pipeline

import (
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/amishk599/leadradar/internal/ai"
	"github.com/amishk599/leadradar/internal/model"
)

// noveltyThreshold is exclusive: a score must be strictly greater to pass.
const noveltyThreshold = 0.5

// NoveltyStage rejects leads that only repeat what a company's history
// already says. Anything it cannot parse counts as not novel.
type NoveltyStage struct {
	provider ai.LLMProvider
	tmpl     *template.Template
	role     string
	timeout  time.Duration
}

func NewNoveltyStage(provider ai.LLMProvider, role model.RoleConfig, timeout time.Duration) (*NoveltyStage, error) {
	text := role.NoveltyPromptTemplate
	if text == "" {
		text = ai.DefaultNoveltyPrompt
	}
	tmpl, err := ai.ParsePrompt(role.Role+" novelty", text)
	if err != nil {
		return nil, err
	}
	return &NoveltyStage{provider: provider, tmpl: tmpl, role: role.Role, timeout: timeout}, nil
}

// Evaluate returns nil when lead should be kept. A company with no priors is
// accepted without calling the classifier.
func (s *NoveltyStage) Evaluate(ctx context.Context, lead model.Lead, content string, priors []model.SignalRecord) error {
	if len(priors) == 0 {
		return nil
	}

	contexts := make([]string, len(priors))
	for i, p := range priors {
		contexts[i] = p.Context
	}
	prompt, err := ai.RenderPrompt(s.tmpl, ai.NoveltyPromptData{
		Role:      s.role,
		Company:   lead.Company,
		NewSignal: lead.Context,
		Content:   content,
		Priors:    contexts,
	})
	if err != nil {
		return err
	}

	text, err := complete(ctx, s.provider, prompt, s.timeout)
	if err != nil {
		return fmt.Errorf("novelty classifier: %w", err)
	}

	obj, err := ai.DecodeObject(text)
	if err != nil {
		return err
	}
	score, ok, err := ai.NumberField(obj, "novelty_score")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: novelty_score missing", model.ErrMalformedJSON)
	}
	if score <= noveltyThreshold {
		return fmt.Errorf("%w: score %.2f", model.ErrNotNovel, score)
	}
	return nil
}
