package workflow

import (
	"time"

	"github.com/manash/hairtry/pkg/models"
)

// Action is one discrete user or service event.
type Action interface {
	isAction()
}

type LoadPhoto struct {
	Image string
}

type SelectStyle struct {
	Style models.Style
}

// UploadCustomStyle carries an id generated by the caller so Reduce stays pure.
type UploadCustomStyle struct {
	ID    string
	Image string
}

type ChangeFilter struct {
	Filter models.GenderFilter
}

type RequestGeneration struct{}

type GenerationSucceeded struct {
	Epoch     uint64
	HistoryID string
	Image     string
	Style     models.Style
	Model     string
	Cost      float64
	CreatedAt time.Time
}

// GenerationEmpty is a completed call that returned no image.
type GenerationEmpty struct {
	Epoch uint64
}

type GenerationFailed struct {
	Epoch uint64
	Err   error
}

type SelectHistory struct {
	ID string
}

type ClearHistory struct{}

type Reset struct{}

type DeviceFailed struct {
	Err error
}

type FormatFailed struct {
	Err error
}

func (LoadPhoto) isAction()           {}
func (SelectStyle) isAction()         {}
func (UploadCustomStyle) isAction()   {}
func (ChangeFilter) isAction()        {}
func (RequestGeneration) isAction()   {}
func (GenerationSucceeded) isAction() {}
func (GenerationEmpty) isAction()     {}
func (GenerationFailed) isAction()    {}
func (SelectHistory) isAction()       {}
func (ClearHistory) isAction()        {}
func (Reset) isAction()               {}
func (DeviceFailed) isAction()        {}
func (FormatFailed) isAction()        {}

// Reduce returns the state that follows s after a. It never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoadPhoto:
		s.Original = a.Image
		s.Result = ""
		s.Err = nil

	case SelectStyle:
		style := a.Style
		s.Selected = &style
		s.Err = nil

	case UploadCustomStyle:
		style := models.CustomStyle(a.ID, a.Image)
		s.Custom = &style
		selected := style
		s.Selected = &selected
		s.Err = nil

	case ChangeFilter:
		s.Filter = a.Filter
		if s.Selected != nil && !s.Selected.VisibleUnder(a.Filter) {
			s.Selected = nil
		}

	case RequestGeneration:
		if !s.Ready() {
			s.Err = newError(KindValidation, MsgMissingInput)
			return s
		}
		s.Loading = true
		s.Err = nil

	case GenerationSucceeded:
		if a.Epoch != s.epoch {
			return s
		}
		style := a.Style
		s.Loading = false
		s.Result = a.Image
		s.History = s.History.Prepend(models.HistoryItem{
			ID:             a.HistoryID,
			GeneratedImage: a.Image,
			Style:          style,
			Model:          a.Model,
			Cost:           a.Cost,
			CreatedAt:      a.CreatedAt,
		})

	case GenerationEmpty:
		if a.Epoch != s.epoch {
			return s
		}
		s.Loading = false
		s.Err = newError(KindNoImage, MsgNoImage)

	case GenerationFailed:
		if a.Epoch != s.epoch {
			return s
		}
		s.Loading = false
		s.Err = newError(KindGeneration, MsgGenerationError)

	case SelectHistory:
		item, err := s.History.Find(a.ID)
		if err != nil {
			s.Err = newError(KindValidation, MsgUnknownHistory)
			return s
		}
		style := item.Style
		s.Result = item.GeneratedImage
		s.Selected = &style
		s.Err = nil

	case ClearHistory:
		s.History = s.History.Clear()

	case Reset:
		next := Initial(s.History.Limit())
		next.epoch = s.epoch + 1
		return next

	case DeviceFailed:
		s.Err = newError(KindDevice, MsgDeviceError)

	case FormatFailed:
		s.Err = newError(KindFormat, MsgFormatError)
	}
	return s
}

// DisplayedStyles is the catalog filtered by f with the pending custom style first.
func DisplayedStyles(catalog []models.Hairstyle, s State) []models.Style {
	out := make([]models.Style, 0, len(catalog)+1)
	if s.Custom != nil {
		out = append(out, *s.Custom)
	}
	for _, h := range catalog {
		style := models.CatalogStyle(h)
		if style.VisibleUnder(s.Filter) {
			out = append(out, style)
		}
	}
	return out
}
