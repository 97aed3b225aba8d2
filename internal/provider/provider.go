package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manash/hairtry/pkg/models"
	"github.com/rs/zerolog"
)

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrModelNotSupported = errors.New("model not supported by provider")
	ErrAPIKeyRequired    = errors.New("API key is required")
	ErrEditFailed        = errors.New("image edit failed")
)

const (
	preserveDimensions = "IMPORTANT: The output image must have the exact same aspect ratio as the original input image. " +
		"Do not change the image dimensions."
	preserveFirstImage = "IMPORTANT: The output image must have the exact same dimensions and aspect ratio as the FIRST image " +
		"(the photo of the person). Ignore the composition, framing and aspect ratio of the SECOND image; " +
		"use it only as a reference for the hairstyle. Do not crop or resize the first image."
)

// Provider edits a photo according to a hairstyle instruction.
// A response without an image means the service declined; failures are errors.
type Provider interface {
	Name() models.ProviderType
	Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error)
	SupportsModel(model string) bool
	ListModels() []string
}

type Config struct {
	APIKey     string
	BaseURL    string
	TimeoutSec int
	Verbose    bool
	Logger     zerolog.Logger
}

// BuildInstruction appends the dimension directive matching the request shape.
func BuildInstruction(prompt string, hasReference bool) string {
	prompt = strings.TrimSpace(prompt)
	if hasReference {
		return prompt + " " + preserveFirstImage
	}
	return prompt + " " + preserveDimensions
}

type Factory struct {
	registry  *models.ModelRegistry
	configs   map[models.ProviderType]*Config
	providers map[models.ProviderType]Provider
}

func NewFactory(registry *models.ModelRegistry) *Factory {
	return &Factory{
		registry:  registry,
		configs:   make(map[models.ProviderType]*Config),
		providers: make(map[models.ProviderType]Provider),
	}
}

func (f *Factory) Configure(providerType models.ProviderType, cfg *Config) {
	f.configs[providerType] = cfg
}

func (f *Factory) Register(provider Provider) {
	f.providers[provider.Name()] = provider
}

func (f *Factory) Get(providerType models.ProviderType) (Provider, error) {
	provider, ok := f.providers[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerType)
	}
	return provider, nil
}

func (f *Factory) GetForModel(model string) (Provider, error) {
	cap, ok := f.registry.Get(model)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotSupported, model)
	}

	provider, ok := f.providers[cap.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s (required by model %s)", ErrProviderNotFound, cap.Provider, model)
	}

	return provider, nil
}

func (f *Factory) GetConfig(providerType models.ProviderType) (*Config, bool) {
	cfg, ok := f.configs[providerType]
	return cfg, ok
}

func (f *Factory) ListProviders() []models.ProviderType {
	types := make([]models.ProviderType, 0, len(f.providers))
	for t := range f.providers {
		types = append(types, t)
	}
	return types
}

// Edit routes the request to the provider that serves req.Model.
func (f *Factory) Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
	p, err := f.GetForModel(req.Model)
	if err != nil {
		return nil, err
	}
	return p.Edit(ctx, req)
}
