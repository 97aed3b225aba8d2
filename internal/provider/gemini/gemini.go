// Package gemini edits photos with Gemini image models through google.golang.org/genai.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/manash/hairtry/internal/cost"
	"github.com/manash/hairtry/internal/image"
	"github.com/manash/hairtry/internal/provider"
	"github.com/manash/hairtry/pkg/models"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

const defaultTimeout = 120 * time.Second

// contentGenerator is the slice of *genai.Models the provider uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Provider struct {
	models     contentGenerator
	registry   *models.ModelRegistry
	calculator *cost.Calculator
	verbose    bool
	log        zerolog.Logger
}

func New(ctx context.Context, cfg *provider.Config, registry *models.ModelRegistry) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return newWithGenerator(client.Models, cfg, registry), nil
}

func newWithGenerator(gen contentGenerator, cfg *provider.Config, registry *models.ModelRegistry) *Provider {
	return &Provider{
		models:     gen,
		registry:   registry,
		calculator: cost.NewCalculator(),
		verbose:    cfg.Verbose,
		log:        cfg.Logger.With().Str("provider", string(models.ProviderGemini)).Logger(),
	}
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderGemini
}

func (p *Provider) SupportsModel(model string) bool {
	cap, ok := p.registry.Get(model)
	if !ok {
		return false
	}
	return cap.Provider == models.ProviderGemini
}

func (p *Provider) ListModels() []string {
	return p.registry.ListByProvider(models.ProviderGemini)
}

// Edit sends the photo first, then the reference when present, then the
// instruction text. The first inline image in the reply becomes the result.
func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cap, ok := p.registry.Get(req.Model)
	if !ok || cap.Provider != models.ProviderGemini {
		return nil, fmt.Errorf("%w: %s", provider.ErrModelNotSupported, req.Model)
	}
	if err := cap.Validate(req); err != nil {
		return nil, err
	}

	photo, photoMIME, err := image.DecodeBytes(req.Image)
	if err != nil {
		return nil, fmt.Errorf("photo: %w", err)
	}

	parts := []*genai.Part{genai.NewPartFromBytes(photo, photoMIME)}

	if req.HasReference() {
		ref, refMIME, err := image.DecodeBytes(req.Reference)
		if err != nil {
			return nil, fmt.Errorf("reference: %w", err)
		}
		parts = append(parts, genai.NewPartFromBytes(ref, refMIME))
	}

	instruction := provider.BuildInstruction(req.Prompt, req.HasReference())
	parts = append(parts, genai.NewPartFromText(instruction))

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}

	if p.verbose {
		p.log.Debug().
			Str("model", req.Model).
			Str("instruction", instruction).
			Int("image_parts", len(parts)-1).
			Msg("generate content request")
	}

	result, err := p.models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", provider.ErrEditFailed, err)
	}

	return p.buildResponse(req.Model, result), nil
}

func (p *Provider) buildResponse(model string, result *genai.GenerateContentResponse) *models.Response {
	response := &models.Response{Model: model}

	// The first inline image across all candidates wins; text is collected from all.
	var text []string
	if result != nil {
		for _, cand := range result.Candidates {
			if cand == nil || cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				if part == nil {
					continue
				}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 && !response.HasImage() {
					mimeType := part.InlineData.MIMEType
					if mimeType == "" {
						mimeType = "image/png"
					}
					response.Image = image.Encode(part.InlineData.Data, mimeType)
					continue
				}
				if part.Text != "" {
					text = append(text, part.Text)
				}
			}
		}
	}
	response.Text = strings.TrimSpace(strings.Join(text, "\n"))

	if response.HasImage() {
		response.Cost = p.calculator.Calculate(models.ProviderGemini, model, "", 1)
	}

	if p.verbose {
		p.log.Debug().
			Bool("has_image", response.HasImage()).
			Str("text", response.Text).
			Msg("generate content response")
	}

	return response
}
