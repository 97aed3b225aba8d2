package image

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Saver struct {
	now func() time.Time
}

func NewSaver() *Saver {
	return &Saver{now: time.Now}
}

// Save writes an encoded image to path and returns the path written.
// An empty path picks a timestamped name in the current directory.
func (s *Saver) Save(ctx context.Context, ref, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	enc, err := Decode(ref)
	if err != nil {
		return "", err
	}
	data, err := enc.Bytes()
	if err != nil {
		return "", err
	}

	if path == "" {
		path = GenerateFilenameWithTime("hairstyle", enc.Extension(), s.now())
	}

	if err := s.ensureDir(path); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path, nil
}

// SaveInDir writes ref into dir using a name derived from label.
func (s *Saver) SaveInDir(ctx context.Context, ref, dir, label string) (string, error) {
	enc, err := Decode(ref)
	if err != nil {
		return "", err
	}
	name := GenerateFilenameWithTime(label, enc.Extension(), s.now())
	return s.Save(ctx, ref, filepath.Join(dir, name))
}

func (s *Saver) ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

func GenerateFilenameWithTime(label, ext string, t time.Time) string {
	timestamp := t.Format("20060102-150405")
	label = slug(label)
	if label == "" {
		label = "hairstyle"
	}
	return fmt.Sprintf("%s-%s.%s", label, timestamp, ext)
}

func slug(s string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash && b.Len() > 0:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
