package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/manash/hairtry/internal/image"
	"github.com/manash/hairtry/internal/provider"
	"github.com/manash/hairtry/pkg/models"
)

// Edit sends the photo, and the reference when present, to /images/edits.
// The first image[] part is always the photo.
func (p *Provider) Edit(ctx context.Context, req *models.EditRequest) (*models.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cap, ok := p.registry.Get(req.Model)
	if !ok || cap.Provider != models.ProviderOpenAI {
		return nil, fmt.Errorf("%w: %s", provider.ErrModelNotSupported, req.Model)
	}
	if err := cap.Validate(req); err != nil {
		return nil, err
	}

	photo, photoMIME, err := image.DecodeBytes(req.Image)
	if err != nil {
		return nil, fmt.Errorf("photo: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if err := writeImagePart(writer, "photo", photo, photoMIME); err != nil {
		return nil, err
	}

	refBytes := 0
	if req.HasReference() {
		ref, refMIME, err := image.DecodeBytes(req.Reference)
		if err != nil {
			return nil, fmt.Errorf("reference: %w", err)
		}
		if err := writeImagePart(writer, "reference", ref, refMIME); err != nil {
			return nil, err
		}
		refBytes = len(ref)
	}

	instruction := provider.BuildInstruction(req.Prompt, req.HasReference())
	if err := writer.WriteField("prompt", instruction); err != nil {
		return nil, fmt.Errorf("failed to write prompt: %w", err)
	}

	if err := writer.WriteField("model", req.Model); err != nil {
		return nil, fmt.Errorf("failed to write model: %w", err)
	}

	if err := writer.WriteField("quality", defaultQuality); err != nil {
		return nil, fmt.Errorf("failed to write quality: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	url := p.baseURL + "/images/edits"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	p.logRequest(url, req, len(photo), refBytes)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	p.logResponse(resp.StatusCode, bodyBytes)

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("%w: %s", provider.ErrEditFailed, apiResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", provider.ErrEditFailed, resp.StatusCode)
	}

	return p.buildResponse(ctx, req.Model, apiResp)
}

func writeImagePart(w *multipart.Writer, name string, data []byte, mimeType string) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="image[]"; filename="%s.%s"`, name, image.ExtensionFor(mimeType)))
	h.Set("Content-Type", mimeType)

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", name, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// buildResponse keeps the first returned image. An empty data list is not
// an error: the caller decides how to report a response without an image.
func (p *Provider) buildResponse(ctx context.Context, model string, apiResp apiResponse) (*models.Response, error) {
	response := &models.Response{
		Model: model,
		Cost:  p.calculator.Calculate(models.ProviderOpenAI, model, defaultQuality, 1),
	}

	for _, data := range apiResp.Data {
		if data.RevisedPrompt != "" && response.Text == "" {
			response.Text = data.RevisedPrompt
		}

		switch {
		case data.B64JSON != "":
			raw, err := base64.StdEncoding.DecodeString(data.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("failed to decode image: %w", err)
			}
			ref, err := image.FromBytes(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", provider.ErrEditFailed, err)
			}
			response.Image = ref
		case data.URL != "":
			raw, err := p.DownloadImage(ctx, data.URL)
			if err != nil {
				return nil, err
			}
			ref, err := image.FromBytes(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", provider.ErrEditFailed, err)
			}
			response.Image = ref
		}

		if response.HasImage() {
			break
		}
	}

	if !response.HasImage() {
		response.Cost = nil
	}
	return response, nil
}
