package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

// GeminiProvider uses schema-constrained generation, so its replies are JSON
// of the report shape rather than free text.
type GeminiProvider struct {
	apiKey string
	model  string
	opts   []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiProvider(apiKey, model string, opts ...option.ClientOption) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey, model: model, opts: opts}
}

func (p *GeminiProvider) Name() string { return "gemini" }

// Close releases the underlying client, if one was created.
func (p *GeminiProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	if p.apiKey == "" {
		return nil, errors.New("gemini: GEMINI_API_KEY is empty")
	}
	// The client outlives this request, so it must not inherit its deadline.
	opts := append([]option.ClientOption{option.WithAPIKey(p.apiKey)}, p.opts...)
	cl, err := genai.NewClient(context.WithoutCancel(ctx), opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	p.client = cl
	return cl, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, img Image) (string, error) {
	cl, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	m := cl.GenerativeModel(strings.TrimSpace(p.model))
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0.2),
		ResponseMIMEType: "application/json",
		ResponseSchema:   resultSchema(),
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text(prompt),
		genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
	)
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}
	txt := firstText(resp)
	if txt == "" {
		return "", errors.New("gemini: empty response")
	}
	return txt, nil
}

func resultSchema() *genai.Schema {
	grades := contract.Grades()
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"grade":      {Type: genai.TypeString, Format: "enum", Enum: grades},
			"confidence": {Type: genai.TypeInteger, Description: "0 to 100"},
			"analysis": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"visual_defects": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					"color":          {Type: genai.TypeString},
					"size_estimate":  {Type: genai.TypeString},
					"observations":   {Type: genai.TypeString},
				},
				Required: []string{"visual_defects", "color", "size_estimate", "observations"},
			},
		},
		Required: []string{"grade", "confidence", "analysis"},
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
