package image

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrInvalidFormat = errors.New("invalid data URL format")
	ErrNotImage      = errors.New("file is not a supported image")
	ErrEmptyFile     = errors.New("file is empty")
)

var dataURLPattern = regexp.MustCompile(`^data:(image/\w+);base64,(.*)$`)

var supportedMIMEs = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/heic": "heic",
}

// Encoded is a decoded image reference: a format tag plus base64 payload.
type Encoded struct {
	MIMEType string
	Payload  string
}

// Decode splits a data URL into its format tag and payload.
func Decode(ref string) (*Encoded, error) {
	match := dataURLPattern.FindStringSubmatch(ref)
	if match == nil {
		return nil, ErrInvalidFormat
	}
	return &Encoded{MIMEType: match[1], Payload: match[2]}, nil
}

// String reassembles the data URL.
func (e *Encoded) String() string {
	return "data:" + e.MIMEType + ";base64," + e.Payload
}

func (e *Encoded) Bytes() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return data, nil
}

func (e *Encoded) Extension() string {
	return ExtensionFor(e.MIMEType)
}

// Encode builds a data URL from raw bytes.
func Encode(data []byte, mimeType string) string {
	enc := &Encoded{MIMEType: mimeType, Payload: base64.StdEncoding.EncodeToString(data)}
	return enc.String()
}

// DecodeBytes decodes a data URL straight to its raw bytes and MIME type.
func DecodeBytes(ref string) ([]byte, string, error) {
	enc, err := Decode(ref)
	if err != nil {
		return nil, "", err
	}
	data, err := enc.Bytes()
	if err != nil {
		return nil, "", err
	}
	return data, enc.MIMEType, nil
}

func IsDataURL(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

func ExtensionFor(mimeType string) string {
	if ext, ok := supportedMIMEs[mimeType]; ok {
		return ext
	}
	return "png"
}

// FromBytes sniffs the content type and encodes supported images.
func FromBytes(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	mt := mimetype.Detect(data)
	mimeType := mt.String()
	if _, ok := supportedMIMEs[mimeType]; !ok {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mimeType)
	}
	return Encode(data, mimeType), nil
}

// ReadFile reads an image file into an encoded reference.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	ref, err := FromBytes(data)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return ref, nil
}
