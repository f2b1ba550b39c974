package ai

import "context"

// LLMProvider sends a prompt to an LLM and returns the raw text response.
// The response is free text; callers extract JSON with DecodeObject.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// systemPrompt is shared by every provider.
const systemPrompt = "You classify social media posts about companies' hiring intent. Answer with a single JSON object."
