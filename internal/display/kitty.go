package display

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"
)

const (
	escapeStart = "\x1b_G"
	escapeEnd   = "\x1b\\"
	chunkSize   = 4096

	// ThumbnailColumns is the width, in cells, of catalog preview images.
	ThumbnailColumns = 24
)

// KittyEncoder writes PNG data as kitty graphics escape sequences.
type KittyEncoder struct {
	out     io.Writer
	columns int
}

func NewKittyEncoder(out io.Writer) *KittyEncoder {
	return &KittyEncoder{out: out}
}

// Columns scales the image to n terminal cells wide; 0 keeps its natural size.
func (e *KittyEncoder) Columns(n int) *KittyEncoder {
	e.columns = n
	return e
}

func (e *KittyEncoder) Encode(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	chunks := splitIntoChunks(base64.StdEncoding.EncodeToString(data), chunkSize)

	for i, chunk := range chunks {
		params := e.chunkParams(i, len(chunks))
		if _, err := fmt.Fprintf(e.out, "%s%s;%s%s", escapeStart, params, chunk, escapeEnd); err != nil {
			return err
		}
	}

	return nil
}

// chunkParams returns the control data for chunk i of n. Only the first
// chunk carries the transmit parameters.
func (e *KittyEncoder) chunkParams(i, n int) string {
	var params []string
	if i == 0 {
		params = append(params, "a=T", "f=100", "q=2")
		if e.columns > 0 {
			params = append(params, fmt.Sprintf("c=%d", e.columns))
		}
	}
	if n > 1 {
		if i == n-1 {
			params = append(params, "m=0")
		} else {
			params = append(params, "m=1")
		}
	}
	return strings.Join(params, ",")
}

func splitIntoChunks(s string, size int) []string {
	var chunks []string
	for len(s) > 0 {
		if len(s) < size {
			size = len(s)
		}
		chunks = append(chunks, s[:size])
		s = s[size:]
	}
	return chunks
}
