// Package catalog holds the preset hairstyles offered alongside custom uploads.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/manash/hairtry/pkg/models"
)

var (
	ErrStyleNotFound = errors.New("hairstyle not found")
	ErrEmptyCatalog  = errors.New("catalog has no styles")
	ErrInvalidStyle  = errors.New("invalid hairstyle")
)

//go:embed catalog.yaml
var embedded []byte

type file struct {
	Styles []models.Hairstyle `yaml:"styles"`
}

type Catalog struct {
	styles []models.Hairstyle
	byID   map[string]int
}

// Default returns the embedded preset catalog.
func Default() *Catalog {
	c, err := Parse(strings.NewReader(string(embedded)))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func Parse(r io.Reader) (*Catalog, error) {
	var doc file
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyCatalog
		}
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(doc.Styles)
}

func New(styles []models.Hairstyle) (*Catalog, error) {
	if len(styles) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		styles: make([]models.Hairstyle, 0, len(styles)),
		byID:   make(map[string]int, len(styles)),
	}
	for i, s := range styles {
		if err := validate(s); err != nil {
			return nil, fmt.Errorf("style %d: %w", i+1, err)
		}
		if _, dup := c.byID[s.ID]; dup {
			return nil, fmt.Errorf("style %d: %w: duplicate id %q", i+1, ErrInvalidStyle, s.ID)
		}
		c.byID[s.ID] = len(c.styles)
		c.styles = append(c.styles, s)
	}
	return c, nil
}

func validate(s models.Hairstyle) error {
	switch {
	case strings.TrimSpace(s.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidStyle)
	case strings.HasPrefix(s.ID, models.CustomIDPrefix):
		return fmt.Errorf("%w: id %q uses the reserved %q prefix", ErrInvalidStyle, s.ID, models.CustomIDPrefix)
	case strings.TrimSpace(s.Name) == "":
		return fmt.Errorf("%w: %s has no name", ErrInvalidStyle, s.ID)
	case strings.TrimSpace(s.Prompt) == "":
		return fmt.Errorf("%w: %s has no prompt", ErrInvalidStyle, s.ID)
	case !s.Gender.IsValid():
		return fmt.Errorf("%w: %s: %w %q", ErrInvalidStyle, s.ID, models.ErrInvalidGender, s.Gender)
	}
	return nil
}

// WithPreviewBase returns a copy whose relative preview paths are joined onto base.
func (c *Catalog) WithPreviewBase(base string) (*Catalog, error) {
	if base == "" {
		return c, nil
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid preview base URL: %w", err)
	}

	styles := c.All()
	for i := range styles {
		p := styles[i].PreviewImage
		if p == "" || isAbsolute(p) {
			continue
		}
		u := *baseURL
		u.Path = path.Join(baseURL.Path, p)
		styles[i].PreviewImage = u.String()
	}
	return New(styles)
}

func isAbsolute(p string) bool {
	return strings.HasPrefix(p, "data:") || strings.Contains(p, "://") || strings.HasPrefix(p, "/")
}

func (c *Catalog) All() []models.Hairstyle {
	out := make([]models.Hairstyle, len(c.styles))
	copy(out, c.styles)
	return out
}

func (c *Catalog) Len() int {
	return len(c.styles)
}

func (c *Catalog) Get(id string) (models.Hairstyle, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Hairstyle{}, fmt.Errorf("%w: %s", ErrStyleNotFound, id)
	}
	return c.styles[i], nil
}

// Filter returns the styles visible under f, in catalog order.
func (c *Catalog) Filter(f models.GenderFilter) []models.Hairstyle {
	var out []models.Hairstyle
	for _, s := range c.styles {
		if f.Shows(s.Gender) {
			out = append(out, s)
		}
	}
	return out
}
