package server

import (
	"time"

	"github.com/manash/hairtry/internal/workflow"
	"github.com/manash/hairtry/pkg/models"
)

type styleView struct {
	ID           string `json:"id"`
	Kind         string `json:"kind"`
	Name         string `json:"name"`
	PreviewImage string `json:"previewImage"`
	Gender       string `json:"gender"`
}

func newStyleView(s models.Style) styleView {
	return styleView{
		ID:           s.ID(),
		Kind:         s.Kind.String(),
		Name:         s.Name(),
		PreviewImage: s.Hairstyle.PreviewImage,
		Gender:       string(s.Hairstyle.Gender),
	}
}

func optionalStyle(s *models.Style) *styleView {
	if s == nil {
		return nil
	}
	v := newStyleView(*s)
	return &v
}

type historyView struct {
	ID             string    `json:"id"`
	GeneratedImage string    `json:"generatedImage"`
	Style          styleView `json:"style"`
	Model          string    `json:"model,omitempty"`
	Cost           float64   `json:"cost,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type errorView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type sessionView struct {
	OriginalImage string        `json:"originalImage,omitempty"`
	ResultImage   string        `json:"resultImage,omitempty"`
	Selected      *styleView    `json:"selectedStyle"`
	Custom        *styleView    `json:"customStyle"`
	Loading       bool          `json:"isLoading"`
	Error         *errorView    `json:"error"`
	Filter        string        `json:"genderFilter"`
	Model         string        `json:"model"`
	History       []historyView `json:"history"`
	TotalCost     float64       `json:"totalCost"`
}

func newSessionView(s workflow.State, model string) sessionView {
	v := sessionView{
		OriginalImage: s.Original,
		ResultImage:   s.Result,
		Selected:      optionalStyle(s.Selected),
		Custom:        optionalStyle(s.Custom),
		Loading:       s.Loading,
		Filter:        string(s.Filter),
		Model:         model,
		History:       []historyView{},
		TotalCost:     s.History.TotalCost(),
	}
	if s.Err != nil {
		v.Error = &errorView{Kind: string(s.Err.Kind), Message: s.Err.Message}
	}
	for _, it := range s.History.Items() {
		v.History = append(v.History, historyView{
			ID:             it.ID,
			GeneratedImage: it.GeneratedImage,
			Style:          newStyleView(it.Style),
			Model:          it.Model,
			Cost:           it.Cost,
			CreatedAt:      it.CreatedAt,
		})
	}
	return v
}

type modelView struct {
	Name              string `json:"name"`
	Provider          string `json:"provider"`
	SupportsReference bool   `json:"supportsReference"`
	Description       string `json:"description"`
	Current           bool   `json:"current"`
}
