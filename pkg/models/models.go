package models

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	ErrEmptyPrompt           = errors.New("prompt cannot be empty")
	ErrNoImageData           = errors.New("image data is required for editing")
	ErrInvalidGender         = errors.New("invalid gender")
	ErrInvalidFilter         = errors.New("invalid gender filter")
	ErrReferenceNotSupported = errors.New("reference images not supported by model")
)

// CustomIDPrefix is reserved for styles built from an uploaded reference image.
const CustomIDPrefix = "custom-"

const (
	CustomStyleName   = "Your Style"
	CustomStylePrompt = "Apply the hairstyle from the second image (the style reference) to the person in the first image. " +
		"Preserve the person's facial features and the original background. The only change should be the hairstyle."
)

type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOpenAI ProviderType = "openai"
)

func ValidProviders() []ProviderType {
	return []ProviderType{ProviderGemini, ProviderOpenAI}
}

func (p ProviderType) IsValid() bool {
	return slices.Contains(ValidProviders(), p)
}

type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
	GenderUnisex Gender = "unisex"
)

func (g Gender) IsValid() bool {
	return g == GenderFemale || g == GenderMale || g == GenderUnisex
}

type GenderFilter string

const (
	FilterAll    GenderFilter = "all"
	FilterFemale GenderFilter = "female"
	FilterMale   GenderFilter = "male"
)

func ValidFilters() []GenderFilter {
	return []GenderFilter{FilterAll, FilterFemale, FilterMale}
}

func ParseGenderFilter(s string) (GenderFilter, error) {
	f := GenderFilter(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(ValidFilters(), f) {
		return "", fmt.Errorf("%w: %q not in %v", ErrInvalidFilter, s, ValidFilters())
	}
	return f, nil
}

// Shows reports whether a style of gender g is visible under the filter.
func (f GenderFilter) Shows(g Gender) bool {
	return f == FilterAll || string(f) == string(g) || g == GenderUnisex
}

type Hairstyle struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	PreviewImage string `json:"previewImage" yaml:"preview"`
	Prompt       string `json:"prompt" yaml:"prompt"`
	Gender       Gender `json:"gender" yaml:"gender"`
}

type StyleKind int

const (
	KindCatalog StyleKind = iota
	KindCustom
)

func (k StyleKind) String() string {
	if k == KindCustom {
		return "custom"
	}
	return "catalog"
}

// Style is a hairstyle tagged with where it came from.
type Style struct {
	Kind      StyleKind
	Hairstyle Hairstyle
}

func CatalogStyle(h Hairstyle) Style {
	return Style{Kind: KindCatalog, Hairstyle: h}
}

// CustomStyle builds the style synthesized from an uploaded reference image.
func CustomStyle(id, referenceImage string) Style {
	return Style{
		Kind: KindCustom,
		Hairstyle: Hairstyle{
			ID:           CustomIDPrefix + id,
			Name:         CustomStyleName,
			PreviewImage: referenceImage,
			Prompt:       CustomStylePrompt,
			Gender:       GenderUnisex,
		},
	}
}

func (s Style) ID() string     { return s.Hairstyle.ID }
func (s Style) Name() string   { return s.Hairstyle.Name }
func (s Style) Prompt() string { return s.Hairstyle.Prompt }
func (s Style) IsCustom() bool { return s.Kind == KindCustom }

// ReferenceImage returns the image sent alongside the photo, or "" for catalog styles.
func (s Style) ReferenceImage() string {
	if s.Kind != KindCustom {
		return ""
	}
	return s.Hairstyle.PreviewImage
}

// VisibleUnder reports whether the style stays visible under f.
// Custom styles are always visible.
func (s Style) VisibleUnder(f GenderFilter) bool {
	return s.Kind == KindCustom || f.Shows(s.Hairstyle.Gender)
}

type HistoryItem struct {
	ID             string    `json:"id"`
	GeneratedImage string    `json:"generatedImage"`
	Style          Style     `json:"-"`
	Model          string    `json:"model,omitempty"`
	Cost           float64   `json:"cost,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// EditRequest carries encoded image references, not raw bytes.
type EditRequest struct {
	Image     string
	Reference string
	Prompt    string
	Model     string
}

func NewEditRequest(image, prompt string) *EditRequest {
	return &EditRequest{
		Image:  image,
		Prompt: prompt,
	}
}

func (r *EditRequest) HasReference() bool {
	return r.Reference != ""
}

func (r *EditRequest) Validate() error {
	if r.Image == "" {
		return ErrNoImageData
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

type Response struct {
	// Image is the encoded result, empty when the service returned none.
	Image string
	Text  string
	Model string
	Cost  *CostInfo
}

func (r *Response) HasImage() bool {
	return r != nil && r.Image != ""
}

type CostInfo struct {
	PerImage float64
	Total    float64
	Currency string
}

type ModelCapabilities struct {
	Name               string
	Provider           ProviderType
	SupportsReference  bool
	MaxReferenceImages int
	Description        string
}

func (c *ModelCapabilities) Validate(req *EditRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if req.HasReference() && !c.SupportsReference {
		return fmt.Errorf("%w: %s", ErrReferenceNotSupported, c.Name)
	}
	return nil
}

type ModelRegistry struct {
	models map[string]*ModelCapabilities
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{
		models: make(map[string]*ModelCapabilities),
	}
}

func (r *ModelRegistry) Register(cap *ModelCapabilities) {
	r.models[cap.Name] = cap
}

func (r *ModelRegistry) Get(name string) (*ModelCapabilities, bool) {
	cap, ok := r.models[name]
	return cap, ok
}

func (r *ModelRegistry) List() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *ModelRegistry) ListByProvider(provider ProviderType) []string {
	var names []string
	for name, cap := range r.models {
		if cap.Provider == provider {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

const DefaultModel = "gemini-2.5-flash-image"

// DefaultModelFor returns the model used when none is configured for a provider.
func DefaultModelFor(p ProviderType) string {
	if p == ProviderOpenAI {
		return "gpt-image-1"
	}
	return DefaultModel
}

func DefaultRegistry() *ModelRegistry {
	r := NewModelRegistry()
	r.Register(&ModelCapabilities{
		Name:               "gemini-2.5-flash-image",
		Provider:           ProviderGemini,
		SupportsReference:  true,
		MaxReferenceImages: 3,
		Description:        "Gemini 2.5 Flash Image",
	})
	r.Register(&ModelCapabilities{
		Name:               "gemini-2.5-flash-image-preview",
		Provider:           ProviderGemini,
		SupportsReference:  true,
		MaxReferenceImages: 3,
		Description:        "Gemini 2.5 Flash Image (preview)",
	})
	r.Register(&ModelCapabilities{
		Name:               "gemini-3-pro-image-preview",
		Provider:           ProviderGemini,
		SupportsReference:  true,
		MaxReferenceImages: 14,
		Description:        "Gemini 3 Pro Image (preview)",
	})
	r.Register(&ModelCapabilities{
		Name:               "gpt-image-1",
		Provider:           ProviderOpenAI,
		SupportsReference:  true,
		MaxReferenceImages: 15,
		Description:        "OpenAI GPT Image 1 edits",
	})
	return r
}
