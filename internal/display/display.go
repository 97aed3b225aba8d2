// Package display renders images inline in terminals that speak the kitty graphics protocol.
package display

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdimage "image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/manash/hairtry/internal/image"
	"github.com/manash/hairtry/internal/security"
	_ "golang.org/x/image/webp"
	"golang.org/x/term"
)

const defaultTimeout = 60 * time.Second

var ErrUnsupported = errors.New("image format cannot be displayed")

type Displayer struct {
	out        io.Writer
	httpClient *http.Client
	urls       *security.URLValidator
}

type Option func(*Displayer)

// WithURLValidator restricts which remote previews may be fetched.
func WithURLValidator(v *security.URLValidator) Option {
	return func(d *Displayer) {
		d.urls = v
	}
}

func New(out io.Writer, opts ...Option) *Displayer {
	d := &Displayer{
		out: out,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		urls: security.NewURLValidator(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Show draws ref, which is an encoded image reference, an http(s) URL or a file path.
func (d *Displayer) Show(ctx context.Context, ref string) error {
	return d.show(ctx, ref, 0)
}

// Thumbnail draws ref scaled to ThumbnailColumns cells wide.
func (d *Displayer) Thumbnail(ctx context.Context, ref string) error {
	return d.show(ctx, ref, ThumbnailColumns)
}

func (d *Displayer) show(ctx context.Context, ref string, columns int) error {
	data, err := d.load(ctx, ref)
	if err != nil {
		return err
	}

	pngData, err := toPNG(data)
	if err != nil {
		return err
	}

	enc := NewKittyEncoder(d.out).Columns(columns)
	if err := enc.Encode(pngData); err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}

	fmt.Fprintln(d.out)
	return nil
}

func (d *Displayer) load(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case ref == "":
		return nil, fmt.Errorf("nothing to display")
	case image.IsDataURL(ref):
		data, _, err := image.DecodeBytes(ref)
		return data, err
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		if err := d.urls.Validate(ref); err != nil {
			return nil, fmt.Errorf("refusing to fetch %s: %w", ref, err)
		}
		return d.download(ctx, ref)
	default:
		data, err := os.ReadFile(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return data, nil
	}
}

func (d *Displayer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// toPNG converts data to PNG, the only format sent with f=100.
func toPNG(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")) {
		return data, nil
	}

	img, format, err := stdimage.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to convert %s to png: %w", format, err)
	}
	return buf.Bytes(), nil
}

// Supported reports whether images written to out will render.
func Supported(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}
	return IsTerminalSupported()
}

func IsTerminalSupported() bool {
	termProgram := strings.ToLower(os.Getenv("TERM_PROGRAM"))
	supportedPrograms := []string{"kitty", "ghostty", "iterm.app", "wezterm"}

	for _, prog := range supportedPrograms {
		if termProgram == prog {
			return true
		}
	}

	if os.Getenv("KITTY_WINDOW_ID") != "" {
		return true
	}

	if os.Getenv("ITERM_SESSION_ID") != "" {
		return true
	}

	term := strings.ToLower(os.Getenv("TERM"))
	return strings.Contains(term, "kitty") || strings.Contains(term, "ghostty")
}
