// Package ai drafts marketing copy with a Gemini model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	KindMetaDescription = "meta_description"
	KindBlogOutline     = "blog_outline"
	KindTranslation     = "translation"
)

var (
	ErrNotConfigured = errors.New("ai not configured")
	ErrUnknownKind   = errors.New("unknown generation kind")
)

type Request struct {
	Kind   string `json:"kind" binding:"required,oneof=meta_description blog_outline translation"`
	Topic  string `json:"topic"`
	Text   string `json:"text"`
	Locale string `json:"locale"`
}

type Generator struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Generator{client: client, model: model}, nil
}

func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	prompt, err := Prompt(req)
	if err != nil {
		return "", err
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return "", errors.New("genai returned no text")
	}
	if req.Kind == KindMetaDescription && len([]rune(out)) > 160 {
		out = string([]rune(out)[:157]) + "..."
	}
	return out, nil
}

var languages = map[string]string{"en": "English", "de": "German", "fr": "French"}

func languageName(locale string) string {
	if name, ok := languages[locale]; ok {
		return name
	}
	return "English"
}

// Prompt renders the instruction sent to the model for a request.
func Prompt(req Request) (string, error) {
	lang := languageName(req.Locale)
	switch req.Kind {
	case KindMetaDescription:
		if req.Topic == "" && req.Text == "" {
			return "", errors.New("topic or text required")
		}
		return fmt.Sprintf("Write one SEO meta description in %s, at most 155 characters, no quotes, for a vehicle leasing page about: %s\n%s",
			lang, req.Topic, req.Text), nil
	case KindBlogOutline:
		if req.Topic == "" {
			return "", errors.New("topic required")
		}
		return fmt.Sprintf("Draft a blog post outline in %s for a business leasing audience. Topic: %s. Use markdown headings and short bullet points.",
			lang, req.Topic), nil
	case KindTranslation:
		if req.Text == "" {
			return "", errors.New("text required")
		}
		return fmt.Sprintf("Translate the following website copy into %s. Keep placeholders like {name} unchanged and reply with the translation only.\n\n%s",
			lang, req.Text), nil
	}
	return "", ErrUnknownKind
}
