package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/manash/hairtry/internal/camera"
	"github.com/manash/hairtry/internal/catalog"
	"github.com/manash/hairtry/internal/image"
	"github.com/manash/hairtry/pkg/models"
	"github.com/rs/zerolog"
)

// Generator performs the image edit. provider.Provider and provider.Factory satisfy it.
type Generator interface {
	Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error)
}

type Controller struct {
	mu    sync.Mutex
	state State
	model string

	gen     Generator
	catalog *catalog.Catalog
	newID   func() string
	now     func() time.Time
	log     zerolog.Logger
}

type Option func(*Controller)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Controller) {
		c.log = log
	}
}

func WithHistoryLimit(limit int) Option {
	return func(c *Controller) {
		c.state = Initial(limit)
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		c.newID = fn
	}
}

func WithClock(fn func() time.Time) Option {
	return func(c *Controller) {
		c.now = fn
	}
}

func New(gen Generator, cat *catalog.Catalog, model string, opts ...Option) *Controller {
	if model == "" {
		model = models.DefaultModel
	}
	c := &Controller{
		state:   Initial(0),
		model:   model,
		gen:     gen,
		catalog: cat,
		newID:   newUUID,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newUUID returns a time-ordered id, unique even within one millisecond.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (c *Controller) dispatch(a Action) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, a)
	return c.state.clone()
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

func (c *Controller) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// SetModel changes the model used by later generations.
func (c *Controller) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
}

func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

// LoadPhoto sets the photo from an encoded image reference.
func (c *Controller) LoadPhoto(ref string) error {
	if _, err := image.Decode(ref); err != nil {
		c.dispatch(FormatFailed{Err: err})
		return err
	}
	c.dispatch(LoadPhoto{Image: ref})
	c.log.Debug().Int("bytes", len(ref)).Msg("photo loaded")
	return nil
}

// IsFormatError reports whether err is about the content of a file rather than
// reading it. I/O failures leave the session untouched.
func IsFormatError(err error) bool {
	return errors.Is(err, image.ErrNotImage) || errors.Is(err, image.ErrEmptyFile) || errors.Is(err, image.ErrInvalidFormat)
}

// LoadPhotoFile reads a photo from disk.
func (c *Controller) LoadPhotoFile(path string) error {
	ref, err := image.ReadFile(path)
	if err != nil {
		if IsFormatError(err) {
			c.dispatch(FormatFailed{Err: err})
		}
		return err
	}
	return c.LoadPhoto(ref)
}

// CapturePhoto takes a still from the camera. The device is released
// before this returns, whether or not a frame was captured.
func (c *Controller) CapturePhoto(ctx context.Context, dev camera.Device) error {
	ref, err := camera.Capture(ctx, dev)
	if err != nil {
		if errors.Is(err, camera.ErrAccess) {
			c.log.Warn().Err(err).Msg("camera unavailable")
			c.dispatch(DeviceFailed{Err: err})
		}
		return err
	}
	return c.LoadPhoto(ref)
}

// SelectStyle selects the pending custom style or a catalog style by id.
func (c *Controller) SelectStyle(id string) (models.Style, error) {
	c.mu.Lock()
	custom := c.state.Custom
	c.mu.Unlock()

	var style models.Style
	if custom != nil && custom.ID() == id {
		style = *custom
	} else {
		h, err := c.catalog.Get(id)
		if err != nil {
			return models.Style{}, err
		}
		style = models.CatalogStyle(h)
	}

	c.dispatch(SelectStyle{Style: style})
	return style, nil
}

// UploadCustomStyle builds a style from a reference image and selects it.
func (c *Controller) UploadCustomStyle(ref string) (models.Style, error) {
	if _, err := image.Decode(ref); err != nil {
		c.dispatch(FormatFailed{Err: err})
		return models.Style{}, err
	}
	s := c.dispatch(UploadCustomStyle{ID: c.newID(), Image: ref})
	c.log.Debug().Str("style_id", s.Custom.ID()).Msg("custom style uploaded")
	return *s.Custom, nil
}

func (c *Controller) UploadCustomStyleFile(path string) (models.Style, error) {
	ref, err := image.ReadFile(path)
	if err != nil {
		if IsFormatError(err) {
			c.dispatch(FormatFailed{Err: err})
		}
		return models.Style{}, err
	}
	return c.UploadCustomStyle(ref)
}

// SetFilter changes the gender facet, clearing a catalog selection it hides.
func (c *Controller) SetFilter(f models.GenderFilter) State {
	return c.dispatch(ChangeFilter{Filter: f})
}

// DisplayedStyles is the filtered catalog with the pending custom style first.
func (c *Controller) DisplayedStyles() []models.Style {
	s := c.State()
	return DisplayedStyles(c.catalog.All(), s)
}

// Generate asks the generator to apply the selected style to the photo.
// Only one generation runs at a time; a second call returns ErrBusy and
// leaves the session untouched. The lock is released while the call runs.
func (c *Controller) Generate(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.state.Loading {
		c.mu.Unlock()
		return c.State(), ErrBusy
	}
	c.state = Reduce(c.state, RequestGeneration{})
	if !c.state.Loading {
		s := c.state.clone()
		c.mu.Unlock()
		return s, ErrMissingInput
	}
	epoch := c.state.epoch
	style := *c.state.Selected
	req := models.NewEditRequest(c.state.Original, style.Prompt())
	req.Reference = style.ReferenceImage()
	req.Model = c.model
	c.mu.Unlock()

	log := c.log.With().
		Str("style_id", style.ID()).
		Str("style_kind", style.Kind.String()).
		Str("model", req.Model).
		Logger()
	log.Info().Bool("reference", req.HasReference()).Msg("generation started")

	started := c.now()
	resp, err := c.gen.Edit(ctx, req)
	elapsed := c.now().Sub(started)

	switch {
	case err != nil:
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("generation failed")
		return c.dispatch(GenerationFailed{Epoch: epoch, Err: err}), fmt.Errorf("generate %s: %w", style.ID(), err)

	case !resp.HasImage():
		log.Warn().Str("text", resp.Text).Dur("elapsed", elapsed).Msg("generation returned no image")
		return c.dispatch(GenerationEmpty{Epoch: epoch}), ErrNoImage

	default:
		var total float64
		if resp.Cost != nil {
			total = resp.Cost.Total
		}
		model := resp.Model
		if model == "" {
			model = req.Model
		}
		s := c.dispatch(GenerationSucceeded{
			Epoch:     epoch,
			HistoryID: c.newID(),
			Image:     resp.Image,
			Style:     style,
			Model:     model,
			Cost:      total,
			CreatedAt: c.now(),
		})
		log.Info().Dur("elapsed", elapsed).Float64("cost", total).Msg("generation finished")
		return s, nil
	}
}

// Regenerate runs the current photo and selection again.
func (c *Controller) Regenerate(ctx context.Context) (State, error) {
	return c.Generate(ctx)
}

// SelectHistory shows a past result and its style without a new request.
func (c *Controller) SelectHistory(id string) (State, error) {
	s := c.dispatch(SelectHistory{ID: id})
	if _, err := s.History.Find(id); err != nil {
		return s, err
	}
	return s, nil
}

// SelectHistoryAt selects by 1-based position, newest first.
func (c *Controller) SelectHistoryAt(pos int) (State, error) {
	item, err := c.State().History.At(pos)
	if err != nil {
		return c.State(), err
	}
	return c.SelectHistory(item.ID)
}

func (c *Controller) ClearHistory() State {
	return c.dispatch(ClearHistory{})
}

// Reset returns the session to its initial state. A generation still in
// flight finishes, but its outcome is discarded.
func (c *Controller) Reset() State {
	c.log.Debug().Msg("session reset")
	return c.dispatch(Reset{})
}

// ReportDeviceError records a camera failure raised outside CapturePhoto.
func (c *Controller) ReportDeviceError(err error) State {
	return c.dispatch(DeviceFailed{Err: err})
}
