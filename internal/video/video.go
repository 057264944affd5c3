package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"golang.org/x/image/draw"

	"github.com/ivlev/seqscroll/internal/source"
)

var ErrFrameSize = errors.New("frame size does not match the stream")

// Params describes one preview output.
type Params struct {
	Width   int
	Height  int
	FPS     int
	Output  string
	Encoder string // ffmpeg codec name, e.g. libx264
	Quality int
}

// FrameWriter consumes rendered frames in order.
type FrameWriter interface {
	WriteFrame(img *image.RGBA) error
	Close() error
}

type Encoder interface {
	Open(ctx context.Context, params Params) (FrameWriter, error)
}

// FFmpegEncoder streams raw RGBA frames into an ffmpeg process over stdin.
type FFmpegEncoder struct {
	Binary string // defaults to "ffmpeg"
}

func (e *FFmpegEncoder) Open(ctx context.Context, params Params) (FrameWriter, error) {
	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, bin, BuildArgs(params)...)
	s := &ffmpegStream{cmd: cmd, size: image.Pt(params.Width, params.Height)}
	cmd.Stdout = &s.out
	cmd.Stderr = &s.out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	s.stdin = stdin

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return s, nil
}

// BuildArgs is the ffmpeg command line for a raw RGBA stream of
// params.Width x params.Height frames at params.FPS.
func BuildArgs(params Params) []string {
	encoder := params.Encoder
	if encoder == "" {
		encoder = "libx264"
	}

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"-framerate", fmt.Sprintf("%d", params.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", encoder,
	}
	args = append(args, QualityArgs(encoder, params.Quality)...)
	args = append(args, params.Output)
	return args
}

// QualityArgs maps one quality number onto each encoder's own knob.
func QualityArgs(encoder string, quality int) []string {
	switch encoder {
	case "h264_videotoolbox":
		// кбит/с: 75 -> 7.5 Мбит/с
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

type ffmpegStream struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	out   bytes.Buffer
	size  image.Point
}

func (s *ffmpegStream) WriteFrame(img *image.RGBA) error {
	if img.Rect.Size() != s.size {
		return fmt.Errorf("%w: got %v, want %v", ErrFrameSize, img.Rect.Size(), s.size)
	}
	if err := writeRawRGBA(s.stdin, img); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	return nil
}

func (s *ffmpegStream) Close() error {
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w, output: %s", err, s.out.String())
	}
	return nil
}

func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	rgba := img
	if rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Rect, img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}

// PNGWriter writes every frame as a numbered PNG file. The names follow
// the same naming scheme the player reads, so the output can be played
// back as a sequence.
type PNGWriter struct {
	Naming source.Naming
	next   int
}

func NewPNGWriter(dir, base string) (*PNGWriter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &PNGWriter{Naming: source.Naming{Dir: dir, Base: base, Pad: 4, Start: 1}}, nil
}

func (w *PNGWriter) WriteFrame(img *image.RGBA) error {
	path := w.Naming.Stem(w.next) + ".png"
	w.next++

	f, err := os.Create(filepath.FromSlash(path))
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// Written is the number of frames written so far.
func (w *PNGWriter) Written() int { return w.next }

func (w *PNGWriter) Close() error { return nil }
