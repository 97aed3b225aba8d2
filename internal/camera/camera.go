// Package camera captures still photos from a local video device.
package camera

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrAccess = errors.New("camera unavailable")
	ErrClosed = errors.New("camera stream closed")
)

// Device grants access to a camera.
type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open camera. It is not safe for concurrent Snapshot calls.
type Stream interface {
	// Snapshot returns the current frame as an encoded image reference.
	// A cancelled Snapshot closes the stream.
	Snapshot(ctx context.Context) (string, error)
	// Close releases the device. It is safe to call more than once.
	Close() error
}

// Capture opens d, takes one snapshot and always releases the device,
// whether or not a frame was captured.
func Capture(ctx context.Context, d Device) (ref string, err error) {
	s, err := d.Open(ctx)
	if err != nil {
		return "", asAccessError(err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to release camera: %w", cerr)
		}
	}()

	return s.Snapshot(ctx)
}

func asAccessError(err error) error {
	if errors.Is(err, ErrAccess) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrAccess, err)
}
