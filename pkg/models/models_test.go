package models

import (
	"errors"
	"strings"
	"testing"
)

func TestGenderFilter_Shows(t *testing.T) {
	genders := []Gender{GenderFemale, GenderMale, GenderUnisex}

	for _, f := range ValidFilters() {
		for _, g := range genders {
			want := f == FilterAll || string(f) == string(g) || g == GenderUnisex
			if got := f.Shows(g); got != want {
				t.Errorf("GenderFilter(%s).Shows(%s) = %v, want %v", f, g, got, want)
			}
		}
	}
}

func TestGenderFilter_ShowsExamples(t *testing.T) {
	tests := []struct {
		name   string
		filter GenderFilter
		gender Gender
		want   bool
	}{
		{"all shows female", FilterAll, GenderFemale, true},
		{"male hides female", FilterMale, GenderFemale, false},
		{"female hides male", FilterFemale, GenderMale, false},
		{"male shows unisex", FilterMale, GenderUnisex, true},
		{"female shows female", FilterFemale, GenderFemale, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Shows(tt.gender); got != tt.want {
				t.Errorf("Shows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseGenderFilter(t *testing.T) {
	tests := []struct {
		input   string
		want    GenderFilter
		wantErr bool
	}{
		{"all", FilterAll, false},
		{"Female", FilterFemale, false},
		{" male ", FilterMale, false},
		{"unisex", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseGenderFilter(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFilter) {
					t.Fatalf("ParseGenderFilter() error = %v, want ErrInvalidFilter", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseGenderFilter() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCustomStyle(t *testing.T) {
	ref := "data:image/png;base64,AAAA"
	s := CustomStyle("abc", ref)

	if !s.IsCustom() {
		t.Error("CustomStyle() should be custom")
	}
	if s.ID() != "custom-abc" {
		t.Errorf("ID() = %q, want %q", s.ID(), "custom-abc")
	}
	if s.Name() != CustomStyleName {
		t.Errorf("Name() = %q", s.Name())
	}
	if s.ReferenceImage() != ref {
		t.Errorf("ReferenceImage() = %q, want %q", s.ReferenceImage(), ref)
	}
	if s.Hairstyle.Gender != GenderUnisex {
		t.Errorf("Gender = %q, want unisex", s.Hairstyle.Gender)
	}
	if !strings.Contains(s.Prompt(), "second image") {
		t.Errorf("Prompt() = %q, should mention the reference image", s.Prompt())
	}
}

func TestCatalogStyle_NoReference(t *testing.T) {
	s := CatalogStyle(Hairstyle{ID: "short-bob", PreviewImage: "previews/short-bob.jpg", Gender: GenderFemale})

	if s.IsCustom() {
		t.Error("CatalogStyle() should not be custom")
	}
	if s.ReferenceImage() != "" {
		t.Errorf("ReferenceImage() = %q, want empty", s.ReferenceImage())
	}
}

func TestStyle_VisibleUnder(t *testing.T) {
	bob := CatalogStyle(Hairstyle{ID: "short-bob", Gender: GenderFemale})
	custom := CustomStyle("1", "data:image/png;base64,AA")

	if bob.VisibleUnder(FilterMale) {
		t.Error("female catalog style should be hidden under male filter")
	}
	if !bob.VisibleUnder(FilterFemale) {
		t.Error("female catalog style should be visible under female filter")
	}
	for _, f := range ValidFilters() {
		if !custom.VisibleUnder(f) {
			t.Errorf("custom style should be visible under %s", f)
		}
	}
}

func TestEditRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     *EditRequest
		wantErr error
	}{
		{"valid", NewEditRequest("data:image/png;base64,AA", "bob"), nil},
		{"no image", NewEditRequest("", "bob"), ErrNoImageData},
		{"blank prompt", NewEditRequest("data:image/png;base64,AA", "  "), ErrEmptyPrompt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestModelCapabilities_Validate(t *testing.T) {
	caps := &ModelCapabilities{Name: "text-only", SupportsReference: false}
	req := NewEditRequest("data:image/png;base64,AA", "bob")
	req.Reference = "data:image/png;base64,BB"

	if err := caps.Validate(req); !errors.Is(err, ErrReferenceNotSupported) {
		t.Errorf("Validate() error = %v, want ErrReferenceNotSupported", err)
	}

	req.Reference = ""
	if err := caps.Validate(req); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestResponse_HasImage(t *testing.T) {
	var nilResp *Response
	if nilResp.HasImage() {
		t.Error("nil response should not have image")
	}
	if (&Response{}).HasImage() {
		t.Error("empty response should not have image")
	}
	if !(&Response{Image: "data:image/png;base64,AA"}).HasImage() {
		t.Error("response with image should report it")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	caps, ok := r.Get(DefaultModel)
	if !ok {
		t.Fatalf("default model %s not registered", DefaultModel)
	}
	if caps.Provider != ProviderGemini {
		t.Errorf("default model provider = %s, want gemini", caps.Provider)
	}

	openai := r.ListByProvider(ProviderOpenAI)
	if len(openai) != 1 || openai[0] != "gpt-image-1" {
		t.Errorf("ListByProvider(openai) = %v", openai)
	}

	for _, name := range r.List() {
		c, _ := r.Get(name)
		if !c.SupportsReference {
			t.Errorf("model %s should accept a reference image", name)
		}
	}
}

func TestDefaultModelFor(t *testing.T) {
	if got := DefaultModelFor(ProviderOpenAI); got != "gpt-image-1" {
		t.Errorf("DefaultModelFor(openai) = %s", got)
	}
	if got := DefaultModelFor(ProviderGemini); got != DefaultModel {
		t.Errorf("DefaultModelFor(gemini) = %s", got)
	}
}

func TestProviderType_IsValid(t *testing.T) {
	if !ProviderGemini.IsValid() || !ProviderOpenAI.IsValid() {
		t.Error("known providers should be valid")
	}
	if ProviderType("stability").IsValid() {
		t.Error("unknown provider should be invalid")
	}
}
