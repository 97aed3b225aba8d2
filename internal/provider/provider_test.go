package provider

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/manash/hairtry/pkg/models"
)

type mockProvider struct {
	name            models.ProviderType
	supportedModels []string
	editFunc        func(ctx context.Context, req *models.EditRequest) (*models.Response, error)
}

func (m *mockProvider) Name() models.ProviderType {
	return m.name
}

func (m *mockProvider) Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
	if m.editFunc != nil {
		return m.editFunc(ctx, req)
	}
	return &models.Response{}, nil
}

func (m *mockProvider) SupportsModel(model string) bool {
	for _, m := range m.supportedModels {
		if m == model {
			return true
		}
	}
	return false
}

func (m *mockProvider) ListModels() []string {
	return m.supportedModels
}

func TestBuildInstruction_NoReference(t *testing.T) {
	got := BuildInstruction("Give them a short bob.", false)

	if !strings.HasPrefix(got, "Give them a short bob. ") {
		t.Errorf("instruction should start with the style prompt, got %q", got)
	}
	if !strings.Contains(got, "exact same aspect ratio as the original input image") {
		t.Errorf("instruction missing dimension directive: %q", got)
	}
	if strings.Contains(got, "SECOND image") {
		t.Errorf("single-image instruction should not mention a second image: %q", got)
	}
}

func TestBuildInstruction_WithReference(t *testing.T) {
	got := BuildInstruction(models.CustomStylePrompt, true)

	if !strings.HasPrefix(got, models.CustomStylePrompt) {
		t.Errorf("instruction should start with the style prompt, got %q", got)
	}
	for _, want := range []string{"FIRST image", "aspect ratio", "Ignore the composition", "SECOND image"} {
		if !strings.Contains(got, want) {
			t.Errorf("instruction missing %q: %q", want, got)
		}
	}
}

func TestBuildInstruction_TrimsPrompt(t *testing.T) {
	got := BuildInstruction("  bob  ", false)
	if !strings.HasPrefix(got, "bob IMPORTANT") {
		t.Errorf("BuildInstruction() = %q", got)
	}
}

func TestNewFactory(t *testing.T) {
	registry := models.NewModelRegistry()
	factory := NewFactory(registry)

	if factory == nil {
		t.Fatal("NewFactory() returned nil")
	}
	if factory.registry != registry {
		t.Error("NewFactory() registry not set correctly")
	}
	if factory.configs == nil {
		t.Error("NewFactory() configs map is nil")
	}
	if factory.providers == nil {
		t.Error("NewFactory() providers map is nil")
	}
}

func TestFactory_Configure(t *testing.T) {
	factory := NewFactory(models.NewModelRegistry())
	cfg := &Config{
		APIKey:     "test-key",
		BaseURL:    "https://test.api.com",
		TimeoutSec: 30,
	}

	factory.Configure(models.ProviderGemini, cfg)

	got, ok := factory.GetConfig(models.ProviderGemini)
	if !ok {
		t.Fatal("GetConfig() returned false after Configure()")
	}
	if got.APIKey != cfg.APIKey {
		t.Errorf("GetConfig() APIKey = %v, want %v", got.APIKey, cfg.APIKey)
	}
	if got.TimeoutSec != cfg.TimeoutSec {
		t.Errorf("GetConfig() TimeoutSec = %v, want %v", got.TimeoutSec, cfg.TimeoutSec)
	}

	if _, ok := factory.GetConfig(models.ProviderOpenAI); ok {
		t.Error("GetConfig() returned true for unconfigured provider")
	}
}

func TestFactory_RegisterAndGet(t *testing.T) {
	factory := NewFactory(models.NewModelRegistry())
	factory.Register(&mockProvider{name: models.ProviderGemini})

	got, err := factory.Get(models.ProviderGemini)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name() != models.ProviderGemini {
		t.Errorf("Get() provider name = %v", got.Name())
	}

	if _, err := factory.Get(models.ProviderOpenAI); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Get() error = %v, want ErrProviderNotFound", err)
	}
}

func TestFactory_GetForModel(t *testing.T) {
	factory := NewFactory(models.DefaultRegistry())
	factory.Register(&mockProvider{name: models.ProviderGemini})

	tests := []struct {
		name    string
		model   string
		want    models.ProviderType
		wantErr error
	}{
		{"gemini model", "gemini-2.5-flash-image", models.ProviderGemini, nil},
		{"unknown model", "dall-e-9", "", ErrModelNotSupported},
		{"provider not registered", "gpt-image-1", "", ErrProviderNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := factory.GetForModel(tt.model)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetForModel() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetForModel() error = %v", err)
			}
			if p.Name() != tt.want {
				t.Errorf("GetForModel() = %v, want %v", p.Name(), tt.want)
			}
		})
	}
}

func TestFactory_ListProviders(t *testing.T) {
	factory := NewFactory(models.DefaultRegistry())
	factory.Register(&mockProvider{name: models.ProviderGemini})
	factory.Register(&mockProvider{name: models.ProviderOpenAI})

	if got := factory.ListProviders(); len(got) != 2 {
		t.Errorf("ListProviders() = %v, want 2 entries", got)
	}
}

func TestFactory_Edit_Routes(t *testing.T) {
	factory := NewFactory(models.DefaultRegistry())
	var got string
	factory.Register(&mockProvider{
		name: models.ProviderOpenAI,
		editFunc: func(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
			got = req.Model
			return &models.Response{Image: "data:image/png;base64,eA=="}, nil
		},
	})

	resp, err := factory.Edit(context.Background(), &models.EditRequest{Model: "gpt-image-1"})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if got != "gpt-image-1" || !resp.HasImage() {
		t.Errorf("Edit() routed to %q, resp = %+v", got, resp)
	}

	if _, err := factory.Edit(context.Background(), &models.EditRequest{Model: "gemini-2.5-flash-image"}); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Edit() error = %v, want ErrProviderNotFound", err)
	}
}
