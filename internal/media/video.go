package media

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// VideoSource delivers frames on demand. Close releases the underlying
// tracks; Frame fails with ErrClosed afterwards.
type VideoSource interface {
	Name() string
	Size() (int, int)
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// Device describes a configured video input.
type Device struct {
	ID   string `mapstructure:"id" yaml:"id" json:"id"`
	Name string `mapstructure:"name" yaml:"name" json:"name"`
	// Kind is "gif", "frames" (a directory of images) or "image".
	Kind string `mapstructure:"kind" yaml:"kind" json:"kind"`
	Path string `mapstructure:"path" yaml:"path" json:"path"`
}

// Devices returns the configured inputs, naming unnamed ones "Camera N".
func Devices(configured []Device) []Device {
	out := make([]Device, len(configured))
	for i, d := range configured {
		if d.ID == "" {
			d.ID = d.Path
		}
		if d.Name == "" {
			d.Name = fmt.Sprintf("Camera %d", i+1)
		}
		out[i] = d
	}
	return out
}

// Select returns the device with the given id, falling back to the device at
// index. An empty list is ErrNoDevice.
func Select(devices []Device, id string, index int) (Device, error) {
	if len(devices) == 0 {
		return Device{}, &AcquisitionError{Source: "camera", Message: "Requested device not found", Err: ErrNoDevice}
	}
	if id != "" {
		for _, d := range devices {
			if d.ID == id {
				return d, nil
			}
		}
	}
	if index < 0 || index >= len(devices) {
		index = 0
	}
	return devices[index], nil
}

// Open opens the device as a video source.
func Open(d Device) (VideoSource, error) {
	kind := d.Kind
	if kind == "" {
		kind = guessKind(d.Path)
	}
	switch kind {
	case "gif":
		return OpenGIF(d.Path)
	case "frames":
		return OpenFrameDir(d.Path)
	case "image":
		img, err := LoadFile(d.Path)
		if err != nil {
			return nil, err
		}
		return NewStill(d.Path, img), nil
	default:
		return nil, acquisition(d.Path, fmt.Errorf("%w: kind %q", ErrUnsupported, kind))
	}
}

func guessKind(path string) string {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return "frames"
	}
	if strings.EqualFold(filepath.Ext(path), ".gif") {
		return "gif"
	}
	return "image"
}

// base tracks the closed state shared by all sources.
type base struct {
	name   string
	mu     sync.Mutex
	closed bool
}

func (b *base) Name() string { return b.name }

func (b *base) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *base) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Still repeats one image forever.
type Still struct {
	base
	img image.Image
}

// NewStill wraps img as a video source.
func NewStill(name string, img image.Image) *Still {
	return &Still{base: base{name: name}, img: img}
}

func (s *Still) Size() (int, int) { return s.img.Bounds().Dx(), s.img.Bounds().Dy() }

func (s *Still) Frame(ctx context.Context) (image.Image, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	return s.img, nil
}

// GIF plays the frames of an animated GIF in a loop.
type GIF struct {
	base
	frames []*image.RGBA
	next   int
}

// OpenGIF decodes every frame of the file, composited onto a full canvas.
func OpenGIF(path string) (*GIF, error) {
	f, err := os.Open(path) //nolint:gosec // G304: user-selected input
	if err != nil {
		return nil, acquisition(path, err)
	}
	defer func() { _ = f.Close() }()

	cfg, err := gif.DecodeConfig(f)
	if err != nil {
		return nil, acquisition(path, err)
	}
	if err := utils.CheckPixels(cfg.Width, cfg.Height); err != nil {
		return nil, acquisition(path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, acquisition(path, err)
	}
	g, err := gif.DecodeAll(f)
	if err != nil {
		return nil, acquisition(path, err)
	}
	if len(g.Image) == 0 {
		return nil, acquisition(path, ErrNoFrames)
	}

	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() {
		bounds = g.Image[0].Bounds()
	}
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, image.White, image.Point{}, draw.Src)

	frames := make([]*image.RGBA, 0, len(g.Image))
	for i, pal := range g.Image {
		prev := image.NewRGBA(bounds)
		copy(prev.Pix, canvas.Pix)
		draw.Draw(canvas, pal.Bounds(), pal, pal.Bounds().Min, draw.Over)

		frame := image.NewRGBA(bounds)
		copy(frame.Pix, canvas.Pix)
		frames = append(frames, frame)

		if i < len(g.Disposal) {
			switch g.Disposal[i] {
			case gif.DisposalBackground:
				draw.Draw(canvas, pal.Bounds(), image.White, image.Point{}, draw.Src)
			case gif.DisposalPrevious:
				canvas = prev
			}
		}
	}
	return &GIF{base: base{name: path}, frames: frames}, nil
}

func (g *GIF) Size() (int, int) {
	b := g.frames[0].Bounds()
	return b.Dx(), b.Dy()
}

func (g *GIF) Frame(ctx context.Context) (image.Image, error) {
	if err := g.check(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.frames[g.next]
	g.next = (g.next + 1) % len(g.frames)
	return f, nil
}

// FrameDir plays the image files of a directory in name order, looping.
type FrameDir struct {
	base
	paths []string
	next  int
	w, h  int
}

// OpenFrameDir lists the supported images in dir.
func OpenFrameDir(dir string) (*FrameDir, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, acquisition(dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && utils.IsSupportedImage(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, acquisition(dir, ErrNoFrames)
	}
	sort.Strings(paths)

	_, meta, err := utils.LoadImage(paths[0])
	if err != nil {
		return nil, acquisition(paths[0], err)
	}
	return &FrameDir{base: base{name: dir}, paths: paths, w: meta.Width, h: meta.Height}, nil
}

func (d *FrameDir) Size() (int, int) { return d.w, d.h }

func (d *FrameDir) Frame(ctx context.Context) (image.Image, error) {
	if err := d.check(ctx); err != nil {
		return nil, err
	}
	d.mu.Lock()
	p := d.paths[d.next]
	d.next = (d.next + 1) % len(d.paths)
	d.mu.Unlock()

	img, err := LoadFile(p)
	if err != nil {
		return nil, err
	}
	return img, nil
}
