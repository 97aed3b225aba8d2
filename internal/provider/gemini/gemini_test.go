package gemini

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/manash/hairtry/internal/image"
	"github.com/manash/hairtry/internal/provider"
	"github.com/manash/hairtry/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	resp     *genai.GenerateContentResponse
	err      error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.resp, f.err
}

func replyWith(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts, Role: "model"}}},
	}
}

func newTestProvider(gen contentGenerator) *Provider {
	return newWithGenerator(gen, &provider.Config{APIKey: "k"}, models.DefaultRegistry())
}

var (
	photoBytes = []byte("\x89PNG\r\n\x1a\nphoto")
	refBytes   = []byte("\xff\xd8\xffreference")
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), &provider.Config{}, models.DefaultRegistry())
	assert.ErrorIs(t, err, provider.ErrAPIKeyRequired)
}

func TestNew_BuildsClient(t *testing.T) {
	p, err := New(context.Background(), &provider.Config{APIKey: "k", BaseURL: "http://localhost:1"}, models.DefaultRegistry())
	require.NoError(t, err)
	assert.Equal(t, models.ProviderGemini, p.Name())
}

func TestProvider_SupportsModel(t *testing.T) {
	p := newTestProvider(&fakeGenerator{})

	assert.True(t, p.SupportsModel("gemini-2.5-flash-image"))
	assert.True(t, p.SupportsModel("gemini-3-pro-image-preview"))
	assert.False(t, p.SupportsModel("gpt-image-1"))
	assert.False(t, p.SupportsModel("unknown"))
	assert.Equal(t, []string{
		"gemini-2.5-flash-image",
		"gemini-2.5-flash-image-preview",
		"gemini-3-pro-image-preview",
	}, p.ListModels())
}

func TestProvider_Edit_PhotoOnly(t *testing.T) {
	gen := &fakeGenerator{resp: replyWith(
		genai.NewPartFromText("Here is the new look."),
		genai.NewPartFromBytes([]byte("result"), "image/png"),
	)}
	p := newTestProvider(gen)

	req := &models.EditRequest{
		Model:  "gemini-2.5-flash-image",
		Prompt: "Give them a short bob.",
		Image:  image.Encode(photoBytes, "image/png"),
	}
	resp, err := p.Edit(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-flash-image", gen.model)
	require.Len(t, gen.contents, 1)
	parts := gen.contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, photoBytes, parts[0].InlineData.Data)
	assert.Equal(t, "image/png", parts[0].InlineData.MIMEType)
	assert.Contains(t, parts[1].Text, "Give them a short bob.")
	assert.Contains(t, parts[1].Text, "exact same aspect ratio")
	assert.Equal(t, []string{"IMAGE", "TEXT"}, gen.config.ResponseModalities)

	assert.Equal(t, image.Encode([]byte("result"), "image/png"), resp.Image)
	assert.Equal(t, "Here is the new look.", resp.Text)
	require.NotNil(t, resp.Cost)
	assert.InDelta(t, 0.039, resp.Cost.Total, 1e-9)
}

func TestProvider_Edit_WithReference(t *testing.T) {
	gen := &fakeGenerator{resp: replyWith(genai.NewPartFromBytes([]byte("result"), "image/jpeg"))}
	p := newTestProvider(gen)

	req := &models.EditRequest{
		Model:     "gemini-2.5-flash-image",
		Prompt:    models.CustomStylePrompt,
		Image:     image.Encode(photoBytes, "image/png"),
		Reference: image.Encode(refBytes, "image/jpeg"),
	}
	resp, err := p.Edit(context.Background(), req)
	require.NoError(t, err)

	parts := gen.contents[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, photoBytes, parts[0].InlineData.Data, "photo must be the first image")
	assert.Equal(t, refBytes, parts[1].InlineData.Data, "reference must be the second image")
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
	assert.Contains(t, parts[2].Text, "SECOND image")

	assert.True(t, resp.HasImage())
	assert.Contains(t, resp.Image, "data:image/jpeg;base64,")
}

func TestProvider_Edit_FirstImageWins(t *testing.T) {
	gen := &fakeGenerator{resp: replyWith(
		genai.NewPartFromBytes([]byte("first"), "image/png"),
		genai.NewPartFromBytes([]byte("second"), "image/png"),
	)}
	p := newTestProvider(gen)

	resp, err := p.Edit(context.Background(), &models.EditRequest{
		Model: "gemini-2.5-flash-image", Prompt: "bob", Image: image.Encode(photoBytes, "image/png"),
	})
	require.NoError(t, err)
	assert.Equal(t, image.Encode([]byte("first"), "image/png"), resp.Image)
}

func TestProvider_Edit_ImageInLaterCandidate(t *testing.T) {
	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{genai.NewPartFromText("sorry")}, Role: "model"}},
			{Content: &genai.Content{Parts: []*genai.Part{genai.NewPartFromBytes([]byte("img"), "image/png")}, Role: "model"}},
		},
	}}
	p := newTestProvider(gen)

	resp, err := p.Edit(context.Background(), &models.EditRequest{
		Model: "gemini-2.5-flash-image", Prompt: "bob", Image: image.Encode(photoBytes, "image/png"),
	})
	require.NoError(t, err)
	require.True(t, resp.HasImage())
	assert.Equal(t, image.Encode([]byte("img"), "image/png"), resp.Image)
	assert.Equal(t, "sorry", resp.Text)
	assert.NotNil(t, resp.Cost)
}

func TestProvider_Edit_NoImage(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
	}{
		{"text only", replyWith(genai.NewPartFromText("I can't do that."))},
		{"no candidates", &genai.GenerateContentResponse{}},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}},
		{"empty inline data", replyWith(&genai.Part{InlineData: &genai.Blob{MIMEType: "image/png"}})},
		{"nil response", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(&fakeGenerator{resp: tt.resp})
			resp, err := p.Edit(context.Background(), &models.EditRequest{
				Model: "gemini-2.5-flash-image", Prompt: "bob", Image: image.Encode(photoBytes, "image/png"),
			})
			require.NoError(t, err)
			assert.False(t, resp.HasImage())
			assert.Nil(t, resp.Cost)
		})
	}
}

func TestProvider_Edit_ServiceError(t *testing.T) {
	boom := errors.New("quota exceeded")
	p := newTestProvider(&fakeGenerator{err: boom})

	_, err := p.Edit(context.Background(), &models.EditRequest{
		Model: "gemini-2.5-flash-image", Prompt: "bob", Image: image.Encode(photoBytes, "image/png"),
	})
	assert.ErrorIs(t, err, provider.ErrEditFailed)
	assert.ErrorIs(t, err, boom)
}

func TestProvider_Edit_Validation(t *testing.T) {
	photo := image.Encode(photoBytes, "image/png")

	tests := []struct {
		name    string
		req     *models.EditRequest
		wantErr error
	}{
		{"missing photo", &models.EditRequest{Model: "gemini-2.5-flash-image", Prompt: "bob"}, models.ErrNoImageData},
		{"blank prompt", &models.EditRequest{Model: "gemini-2.5-flash-image", Prompt: "  ", Image: photo}, models.ErrEmptyPrompt},
		{"openai model", &models.EditRequest{Model: "gpt-image-1", Prompt: "bob", Image: photo}, provider.ErrModelNotSupported},
		{"malformed photo", &models.EditRequest{Model: "gemini-2.5-flash-image", Prompt: "bob", Image: "data:text/plain,hi"}, image.ErrInvalidFormat},
		{"malformed reference", &models.EditRequest{Model: "gemini-2.5-flash-image", Prompt: "bob", Image: photo, Reference: "nope"}, image.ErrInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			_, err := newTestProvider(gen).Edit(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, gen.model, "service must not be called")
		})
	}
}

func TestProvider_VerboseLogging(t *testing.T) {
	var buf bytes.Buffer
	gen := &fakeGenerator{resp: replyWith(genai.NewPartFromBytes([]byte("result"), "image/png"))}
	p := newWithGenerator(gen, &provider.Config{
		APIKey:  "secret",
		Verbose: true,
		Logger:  zerolog.New(&buf).Level(zerolog.DebugLevel),
	}, models.DefaultRegistry())

	_, err := p.Edit(context.Background(), &models.EditRequest{
		Model: "gemini-2.5-flash-image", Prompt: "bob", Image: image.Encode(photoBytes, "image/png"),
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "generate content request")
	assert.Contains(t, out, `"has_image":true`)
	assert.Contains(t, out, `"provider":"gemini"`)
	assert.NotContains(t, out, "secret")
}
