package batch

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// refPrefix marks a text line naming a reference image instead of a catalog id.
const refPrefix = "ref:"

var ErrNoItems = errors.New("no styles found in file")

// Item is one look: a catalog style id or a reference image path, and an
// optional model override.
type Item struct {
	Index     int
	StyleID   string
	Reference string
	Model     string
}

// Label names the look in output files and messages.
func (i Item) Label() string {
	if i.StyleID != "" {
		return i.StyleID
	}
	return "custom-" + strings.TrimSuffix(filepath.Base(i.Reference), filepath.Ext(i.Reference))
}

type fileItem struct {
	Style     string `json:"style,omitempty" yaml:"style,omitempty"`
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
}

// ParseFile reads a lookbook in text, JSON or YAML form. Relative
// reference paths resolve against the file's directory.
func ParseFile(path string) ([]Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var items []Item
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		items, err = ParseJSON(file)
	case ".yaml", ".yml":
		items, err = ParseYAML(file)
	case ".txt", "":
		items, err = ParseText(file)
	default:
		return nil, fmt.Errorf("unsupported file format %q: use .txt, .json or .yaml", ext)
	}
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for i := range items {
		if ref := items[i].Reference; ref != "" && !filepath.IsAbs(ref) {
			items[i].Reference = filepath.Join(dir, ref)
		}
	}
	return items, nil
}

// ParseText reads one look per line: a style id or ref:<path>, optionally
// followed by a model name. Blank lines and # comments are skipped.
func ParseText(r io.Reader) ([]Item, error) {
	var items []Item
	scanner := bufio.NewScanner(r)
	index := 0
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) > 2 {
			return nil, fmt.Errorf("line %d: expected '<style> [model]', got %q", lineNo, line)
		}

		index++
		item := Item{Index: index}
		if ref, ok := strings.CutPrefix(fields[0], refPrefix); ok {
			if ref == "" {
				return nil, fmt.Errorf("line %d: empty reference path", lineNo)
			}
			item.Reference = ref
		} else {
			item.StyleID = fields[0]
		}
		if len(fields) == 2 {
			item.Model = fields[1]
		}
		items = append(items, item)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if len(items) == 0 {
		return nil, ErrNoItems
	}

	return items, nil
}

func ParseJSON(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var raw []fileItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return fromFileItems(raw)
}

func ParseYAML(r io.Reader) ([]Item, error) {
	var raw []fileItem
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoItems
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return fromFileItems(raw)
}

func fromFileItems(raw []fileItem) ([]Item, error) {
	if len(raw) == 0 {
		return nil, ErrNoItems
	}

	items := make([]Item, len(raw))
	for i, fi := range raw {
		style := strings.TrimSpace(fi.Style)
		ref := strings.TrimSpace(fi.Reference)
		switch {
		case style == "" && ref == "":
			return nil, fmt.Errorf("item %d needs a style or a reference", i+1)
		case style != "" && ref != "":
			return nil, fmt.Errorf("item %d has both a style and a reference", i+1)
		}
		items[i] = Item{
			Index:     i + 1,
			StyleID:   style,
			Reference: ref,
			Model:     strings.TrimSpace(fi.Model),
		}
	}

	return items, nil
}
