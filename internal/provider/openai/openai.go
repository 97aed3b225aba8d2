package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/manash/hairtry/internal/cost"
	"github.com/manash/hairtry/internal/provider"
	"github.com/manash/hairtry/internal/security"
	"github.com/manash/hairtry/pkg/models"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
	defaultQuality = "medium"
)

type apiResponse struct {
	Created int64       `json:"created"`
	Data    []imageData `json:"data"`
	Error   *apiError   `json:"error,omitempty"`
}

type imageData struct {
	URL           string `json:"url,omitempty"`
	B64JSON       string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	registry   *models.ModelRegistry
	calculator *cost.Calculator
	urls       *security.URLValidator
	verbose    bool
	log        zerolog.Logger
}

func New(cfg *provider.Config, registry *models.ModelRegistry) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, provider.ErrAPIKeyRequired
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := defaultTimeout
	if cfg.TimeoutSec > 0 {
		timeout = time.Duration(cfg.TimeoutSec) * time.Second
	}

	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		registry:   registry,
		calculator: cost.NewCalculator(),
		urls:       security.NewURLValidator(security.OpenAIImageHosts...),
		verbose:    cfg.Verbose,
		log:        cfg.Logger.With().Str("provider", string(models.ProviderOpenAI)).Logger(),
	}, nil
}

func (p *Provider) Name() models.ProviderType {
	return models.ProviderOpenAI
}

func (p *Provider) SupportsModel(model string) bool {
	cap, ok := p.registry.Get(model)
	if !ok {
		return false
	}
	return cap.Provider == models.ProviderOpenAI
}

func (p *Provider) ListModels() []string {
	return p.registry.ListByProvider(models.ProviderOpenAI)
}

// DownloadImage fetches an image returned by URL instead of inline.
// Only hosts accepted by the provider's URL validator are fetched.
func (p *Provider) DownloadImage(ctx context.Context, url string) ([]byte, error) {
	if err := p.urls.Validate(url); err != nil {
		return nil, fmt.Errorf("refusing to download %s: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (p *Provider) logRequest(url string, req *models.EditRequest, photoBytes, refBytes int) {
	if !p.verbose {
		return
	}
	p.log.Debug().
		Str("url", url).
		Str("model", req.Model).
		Str("prompt", req.Prompt).
		Int("image_bytes", photoBytes).
		Int("reference_bytes", refBytes).
		Msg("edit request")
}

func (p *Provider) logResponse(statusCode int, body []byte) {
	if !p.verbose {
		return
	}
	p.log.Debug().
		Int("status", statusCode).
		RawJSON("body", compactJSON(truncateBase64InJSON(body))).
		Msg("edit response")
}

func compactJSON(body []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		quoted, _ := json.Marshal(string(body))
		return quoted
	}
	return buf.Bytes()
}

func truncateBase64InJSON(body []byte) []byte {
	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	truncateBase64Fields(data)

	result, err := json.Marshal(data)
	if err != nil {
		return body
	}
	return result
}

func truncateBase64Fields(data map[string]interface{}) {
	for key, value := range data {
		switch v := value.(type) {
		case string:
			if key == "b64_json" && len(v) > 100 {
				data[key] = v[:100] + "... [truncated]"
			}
		case map[string]interface{}:
			truncateBase64Fields(v)
		case []interface{}:
			for _, item := range v {
				if m, ok := item.(map[string]interface{}); ok {
					truncateBase64Fields(m)
				}
			}
		}
	}
}
