package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/manash/hairtry/internal/image"
	"github.com/rs/zerolog"
)

const (
	defaultBinary       = "ffmpeg"
	defaultWarmupFrames = 3
	maxFrameBytes       = 16 << 20
)

var errFrameTooLarge = errors.New("frame exceeds size limit")

// Process is a running capture command streaming MJPEG on stdout.
type Process interface {
	Stdout() io.Reader
	Stop() error
}

// Starter launches the capture command.
type Starter func(name string, args ...string) (Process, error)

// FFmpeg captures from a webcam through an ffmpeg child process
// (v4l2 on Linux, avfoundation on macOS, dshow on Windows).
type FFmpeg struct {
	Binary       string
	Device       string
	Platform     string
	WarmupFrames int

	start Starter
	log   zerolog.Logger
}

func NewFFmpeg(binary, device string, log zerolog.Logger) *FFmpeg {
	if binary == "" {
		binary = defaultBinary
	}
	return &FFmpeg{
		Binary:       binary,
		Device:       device,
		Platform:     runtime.GOOS,
		WarmupFrames: defaultWarmupFrames,
		start:        execStart,
		log:          log.With().Str("component", "camera").Logger(),
	}
}

// InputArgs returns the ffmpeg input flags for the configured platform.
func (f *FFmpeg) InputArgs() ([]string, error) {
	switch f.Platform {
	case "linux":
		dev := f.Device
		if dev == "" {
			dev = "/dev/video0"
		}
		return []string{"-f", "v4l2", "-i", dev}, nil
	case "darwin":
		dev := f.Device
		if dev == "" {
			dev = "0"
		}
		return []string{"-f", "avfoundation", "-framerate", "30", "-i", dev}, nil
	case "windows":
		if f.Device == "" {
			return nil, fmt.Errorf("%w: a dshow device name is required on windows", ErrAccess)
		}
		return []string{"-f", "dshow", "-i", "video=" + f.Device}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported platform %s", ErrAccess, f.Platform)
	}
}

func (f *FFmpeg) Args() ([]string, error) {
	input, err := f.InputArgs()
	if err != nil {
		return nil, err
	}
	args := []string{"-hide_banner", "-loglevel", "error"}
	args = append(args, input...)
	args = append(args, "-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "3", "-")
	return args, nil
}

func (f *FFmpeg) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	args, err := f.Args()
	if err != nil {
		return nil, err
	}

	proc, err := f.start(f.Binary, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAccess, err)
	}

	f.log.Debug().Str("binary", f.Binary).Strs("args", args).Msg("camera opened")

	return &ffmpegStream{
		proc:   proc,
		frames: bufio.NewReader(proc.Stdout()),
		warmup: f.WarmupFrames,
		log:    f.log,
	}, nil
}

type ffmpegStream struct {
	proc   Process
	frames *bufio.Reader
	warmup int
	log    zerolog.Logger

	mu     sync.Mutex
	closed bool
}

type frameResult struct {
	data []byte
	err  error
}

func (s *ffmpegStream) Snapshot(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	skip := s.warmup
	s.warmup = 0
	s.mu.Unlock()

	done := make(chan frameResult, 1)
	go func() {
		var res frameResult
		for i := 0; i <= skip; i++ {
			res.data, res.err = readFrame(s.frames)
			if res.err != nil {
				break
			}
		}
		done <- res
	}()

	select {
	case <-ctx.Done():
		// The reader may still be blocked mid-frame; stopping the process
		// unblocks it and nothing else may read the pipe afterwards.
		if err := s.Close(); err != nil {
			s.log.Warn().Err(err).Msg("failed to release camera after cancel")
		}
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			if errors.Is(res.err, io.EOF) || errors.Is(res.err, io.ErrUnexpectedEOF) {
				return "", fmt.Errorf("%w: capture ended before a frame was read", ErrAccess)
			}
			return "", res.err
		}
		return image.Encode(res.data, "image/jpeg"), nil
	}
}

func (s *ffmpegStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.log.Debug().Msg("camera released")
	return s.proc.Stop()
}

// readFrame returns the next JPEG image (SOI through EOI) from an MJPEG stream.
func readFrame(r *bufio.Reader) ([]byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != 0xFF {
			continue
		}
		next, err := r.Peek(1)
		if err != nil {
			return nil, err
		}
		if next[0] == 0xD8 {
			r.ReadByte()
			break
		}
	}

	frame := bytes.NewBuffer([]byte{0xFF, 0xD8})
	for {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		frame.WriteByte(b)
		if frame.Len() > maxFrameBytes {
			return nil, errFrameTooLarge
		}
		if b != 0xFF {
			continue
		}
		next, err := r.Peek(1)
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if next[0] == 0xD9 {
			r.ReadByte()
			frame.WriteByte(0xD9)
			return frame.Bytes(), nil
		}
	}
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
}

func execStart(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, stdout: stdout}, nil
}

func (p *execProcess) Stdout() io.Reader {
	return p.stdout
}

// Stop kills the capture command and waits for it so the device is freed.
func (p *execProcess) Stop() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	p.cmd.Wait()
	return nil
}
