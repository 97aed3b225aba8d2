// Package batch renders a lookbook: one photo tried with a list of styles.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/manash/hairtry/internal/catalog"
	"github.com/manash/hairtry/internal/image"
	"github.com/manash/hairtry/internal/security"
	"github.com/manash/hairtry/pkg/models"
	"github.com/rs/zerolog"
)

var ErrNoImage = errors.New("model returned no image")

// Generator performs one edit.
type Generator interface {
	Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error)
}

type Result struct {
	Index    int
	Label    string
	Path     string
	Cost     float64
	Error    error
	Duration time.Duration
}

type Options struct {
	OutputDir    string
	DefaultModel string
	Parallel     int
	StopOnError  bool
	DelayMs      int
}

type Processor struct {
	gen      Generator
	catalog  *catalog.Catalog
	registry *models.ModelRegistry
	saver    *image.Saver
	out      io.Writer
	err      io.Writer
	outMu    sync.Mutex
	log      zerolog.Logger
}

func NewProcessor(gen Generator, cat *catalog.Catalog, registry *models.ModelRegistry, saver *image.Saver, out, errOut io.Writer, log zerolog.Logger) *Processor {
	return &Processor{
		gen:      gen,
		catalog:  cat,
		registry: registry,
		saver:    saver,
		out:      out,
		err:      errOut,
		log:      log,
	}
}

func (p *Processor) printf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.out, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) errorf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.err, format, args...)
	p.outMu.Unlock()
}

// Process applies every item to photo, an encoded image reference.
// Looks are independent, so Parallel > 1 runs them concurrently.
func (p *Processor) Process(ctx context.Context, photo string, items []Item, opts *Options) ([]Result, error) {
	if _, err := image.Decode(photo); err != nil {
		return nil, fmt.Errorf("invalid photo: %w", err)
	}
	if opts.Parallel <= 1 {
		return p.processSequential(ctx, photo, items, opts)
	}
	return p.processParallel(ctx, photo, items, opts)
}

func (p *Processor) processSequential(ctx context.Context, photo string, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	for i, item := range items {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result := p.processItem(ctx, photo, item, opts, i+1, total)
		results[i] = result

		if result.Error != nil && opts.StopOnError {
			return results, fmt.Errorf("stopped at item %d: %w", i+1, result.Error)
		}

		if opts.DelayMs > 0 && i < len(items)-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(time.Duration(opts.DelayMs) * time.Millisecond):
			}
		}
	}

	return results, nil
}

func (p *Processor) processParallel(ctx context.Context, photo string, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	type job struct {
		index int
		item  Item
	}

	jobs := make(chan job, len(items))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	stopped := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return opts.StopOnError && firstErr != nil
	}

	workers := min(opts.Parallel, len(items))

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil || stopped() {
					return
				}

				result := p.processItem(ctx, photo, j.item, opts, j.index+1, total)

				mu.Lock()
				results[j.index] = result
				if result.Error != nil && opts.StopOnError && firstErr == nil {
					firstErr = result.Error
				}
				mu.Unlock()
			}
		}()
	}

	for i, item := range items {
		jobs <- job{index: i, item: item}
	}
	close(jobs)

	wg.Wait()

	if firstErr != nil {
		return results, fmt.Errorf("lookbook stopped due to error: %w", firstErr)
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}

	return results, nil
}

// resolve turns an item into the style to apply.
func (p *Processor) resolve(item Item) (models.Style, error) {
	if item.Reference != "" {
		ref, err := image.ReadFile(item.Reference)
		if err != nil {
			return models.Style{}, err
		}
		id, err := uuid.NewV7()
		if err != nil {
			return models.Style{}, err
		}
		return models.CustomStyle(id.String(), ref), nil
	}

	h, err := p.catalog.Get(item.StyleID)
	if err != nil {
		return models.Style{}, err
	}
	return models.CatalogStyle(h), nil
}

func (p *Processor) processItem(ctx context.Context, photo string, item Item, opts *Options, current, total int) Result {
	start := time.Now()
	result := Result{
		Index: item.Index,
		Label: item.Label(),
	}
	fail := func(err error) Result {
		result.Error = err
		result.Duration = time.Since(start)
		p.errorf("       Error: %v\n", err)
		p.log.Warn().Err(err).Str("look", result.Label).Msg("look failed")
		return result
	}

	p.printf("[%d/%d] Trying: %s...\n", current, total, result.Label)

	style, err := p.resolve(item)
	if err != nil {
		return fail(err)
	}

	model := item.Model
	if model == "" {
		model = opts.DefaultModel
	}

	req := models.NewEditRequest(photo, style.Prompt())
	req.Reference = style.ReferenceImage()
	req.Model = model

	caps, ok := p.registry.Get(model)
	if !ok {
		return fail(fmt.Errorf("unknown model: %s", model))
	}
	if err := caps.Validate(req); err != nil {
		return fail(fmt.Errorf("validation failed: %w", err))
	}

	resp, err := p.gen.Edit(ctx, req)
	if err != nil {
		return fail(fmt.Errorf("generation failed: %w", err))
	}
	if !resp.HasImage() {
		return fail(ErrNoImage)
	}

	enc, err := image.Decode(resp.Image)
	if err != nil {
		return fail(err)
	}
	outputPath := filepath.Join(opts.OutputDir, generateFilename(item.Index, result.Label, enc.Extension()))

	path, err := p.saver.Save(ctx, resp.Image, outputPath)
	if err != nil {
		return fail(fmt.Errorf("save failed: %w", err))
	}

	result.Path = path
	result.Duration = time.Since(start)

	if resp.Cost != nil {
		result.Cost = resp.Cost.Total
		p.printf("       Saved: %s ($%.4f)\n", result.Path, result.Cost)
	} else {
		p.printf("       Saved: %s\n", result.Path)
	}
	p.log.Info().Str("look", result.Label).Str("model", model).Dur("elapsed", result.Duration).Msg("look saved")

	return result
}

func generateFilename(index int, label, ext string) string {
	return fmt.Sprintf("%03d-%s.%s", index, sanitizeLabel(label), ext)
}

var unsafeLabelChars = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)

func sanitizeLabel(label string) string {
	sanitized := unsafeLabelChars.ReplaceAllString(label, "")
	sanitized = strings.ToLower(sanitized)
	sanitized = strings.Join(strings.Fields(sanitized), "-")
	sanitized = strings.TrimLeft(sanitized, "-")

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	sanitized = strings.TrimSuffix(sanitized, "-")

	if sanitized == "" {
		sanitized = "look"
	}

	return security.SanitizeFilename(sanitized)
}

func (p *Processor) PrintSummary(results []Result) {
	var successful, failed int
	var totalCost float64
	var errs []Result

	for _, r := range results {
		if r.Error != nil {
			failed++
			errs = append(errs, r)
		} else if r.Path != "" {
			successful++
			totalCost += r.Cost
		}
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Summary:")
	fmt.Fprintf(p.out, "  Successful: %d/%d looks\n", successful, len(results))
	if failed > 0 {
		fmt.Fprintf(p.out, "  Failed: %d (see errors below)\n", failed)
	}
	fmt.Fprintf(p.out, "  Total cost: $%.4f\n", totalCost)

	if len(errs) > 0 {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "Errors:")
		for _, e := range errs {
			fmt.Fprintf(p.out, "  [%d] %s: %v\n", e.Index, e.Label, e.Error)
		}
	}
}
