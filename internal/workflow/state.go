// Package workflow holds the try-on session: the photo, the chosen style,
// the latest result, the history, and the transitions between them.
//
// Every user action is a value passed to Reduce, which returns the next
// State without side effects. Controller owns one State, serializes
// actions, and performs the single external call (the edit request).
package workflow

import (
	"errors"

	"github.com/manash/hairtry/internal/history"
	"github.com/manash/hairtry/pkg/models"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNoImage    ErrorKind = "no_image"
	KindGeneration ErrorKind = "generation"
	KindFormat     ErrorKind = "format"
	KindDevice     ErrorKind = "device"
)

const (
	MsgMissingInput    = "Please upload an image and select a hairstyle first."
	MsgNoImage         = "Could not generate the new hairstyle. The model may not have returned an image."
	MsgGenerationError = "An error occurred while generating the hairstyle. Please try again."
	MsgDeviceError     = "Could not access the camera. Please check your permissions."
	MsgFormatError     = "The selected file is not a supported image."
	MsgUnknownHistory  = "That history entry no longer exists."
)

var (
	ErrBusy         = errors.New("a generation is already in progress")
	ErrMissingInput = errors.New("photo and hairstyle are required")
	ErrNoImage      = errors.New("no image returned")
)

// Error is the single user-visible message of a session.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

type State struct {
	Original string
	Result   string
	Selected *models.Style
	Custom   *models.Style
	Loading  bool
	Err      *Error
	Filter   models.GenderFilter
	History  history.Log

	// epoch changes on Reset; outcomes from an older epoch are dropped.
	epoch uint64
}

// Initial returns an empty session. historyLimit 0 keeps every generation.
func Initial(historyLimit int) State {
	return State{
		Filter:  models.FilterAll,
		History: history.New(historyLimit),
	}
}

func (s State) Epoch() uint64 {
	return s.epoch
}

func (s State) HasPhoto() bool {
	return s.Original != ""
}

func (s State) HasResult() bool {
	return s.Result != ""
}

// Ready reports whether a generation request would pass validation.
func (s State) Ready() bool {
	return s.Original != "" && s.Selected != nil
}

// clone copies the pointer fields so callers cannot reach into shared state.
func (s State) clone() State {
	if s.Selected != nil {
		sel := *s.Selected
		s.Selected = &sel
	}
	if s.Custom != nil {
		c := *s.Custom
		s.Custom = &c
	}
	if s.Err != nil {
		e := *s.Err
		s.Err = &e
	}
	return s
}
