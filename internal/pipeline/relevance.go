package pipeline

import (
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/amishk599/leadradar/internal/ai"
	"github.com/amishk599/leadradar/internal/model"
)

// RelevanceStage asks the classifier whether a signal shows hiring intent for
// a role and turns a positive answer into a Lead.
type RelevanceStage struct {
	provider  ai.LLMProvider
	tmpl      *template.Template
	role      string
	threshold float64
	timeout   time.Duration
}

// NewRelevanceStage parses the role's relevance template, falling back to the
// built-in prompt when the role has none.
func NewRelevanceStage(provider ai.LLMProvider, role model.RoleConfig, timeout time.Duration) (*RelevanceStage, error) {
	text := role.RelevancePromptTemplate
	if text == "" {
		text = ai.DefaultRelevancePrompt
	}
	tmpl, err := ai.ParsePrompt(role.Role+" relevance", text)
	if err != nil {
		return nil, err
	}
	return &RelevanceStage{
		provider:  provider,
		tmpl:      tmpl,
		role:      role.Role,
		threshold: role.RelevanceThreshold,
		timeout:   timeout,
	}, nil
}

// Evaluate returns the lead extracted from the classifier's answer, or an
// error explaining why the signal yields none.
func (s *RelevanceStage) Evaluate(ctx context.Context, signal model.Signal) (model.Lead, error) {
	prompt, err := ai.RenderPrompt(s.tmpl, ai.RelevancePromptData{Role: s.role, Signal: signal.Content})
	if err != nil {
		return model.Lead{}, err
	}

	text, err := complete(ctx, s.provider, prompt, s.timeout)
	if err != nil {
		return model.Lead{}, fmt.Errorf("relevance classifier: %w", err)
	}

	obj, err := ai.DecodeObject(text)
	if err != nil {
		return model.Lead{}, err
	}

	score, hasScore, err := ai.NumberField(obj, "score")
	if err != nil {
		return model.Lead{}, err
	}
	if hasScore && score <= s.threshold {
		return model.Lead{}, fmt.Errorf("%w: relevance %.2f <= %.2f", model.ErrBelowThreshold, score, s.threshold)
	}

	company, err := ai.StringField(obj, "company")
	if err != nil {
		return model.Lead{}, err
	}
	leadContext, err := ai.StringField(obj, "context")
	if err != nil {
		return model.Lead{}, err
	}
	if company == "" && leadContext == "" {
		return model.Lead{}, fmt.Errorf("%w: neither company nor context present", model.ErrMalformedJSON)
	}
	if company == "" {
		return model.Lead{}, model.ErrNoCompany
	}

	profile, err := ai.StringField(obj, "profile")
	if err != nil {
		return model.Lead{}, err
	}
	contacts, err := ai.StringListField(obj, "contacts")
	if err != nil {
		return model.Lead{}, err
	}
	status, err := ai.StringField(obj, "status")
	if err != nil {
		return model.Lead{}, err
	}
	if status == "" {
		status = model.DefaultStatus
	}

	return model.Lead{
		Company:   company,
		Profile:   profile,
		Contacts:  contacts,
		Context:   leadContext,
		Timestamp: signal.Timestamp,
		SourceURL: signal.SourceURL,
		Role:      s.role,
		Status:    status,
	}, nil
}

// complete calls the provider under its own deadline.
func complete(ctx context.Context, provider ai.LLMProvider, prompt string, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return provider.Complete(ctx, prompt)
}
