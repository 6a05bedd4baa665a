package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Defaults for asset photos.
const (
	DefaultMaxDimension = 1024
	DefaultQuality      = 85
	DefaultMaxBytes     = 10 << 20
	maxPixels           = 50_000_000
)

var (
	// ErrUnsupported is returned for input that is not a JPEG, PNG or WebP image.
	ErrUnsupported = errors.New("unsupported image format")
	// ErrTooLarge is returned for input over the byte or pixel limit.
	ErrTooLarge = errors.New("image too large")
)

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Options control photo normalisation. Zero fields take the defaults.
type Options struct {
	MaxDimension int
	Quality      int
	MaxBytes     int64
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = DefaultMaxBytes
	}
	return o
}

// Photo is a normalised asset photo.
type Photo struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Process normalises an uploaded asset photo: the format is sniffed from
// the bytes, the image is shrunk to fit MaxDimension and re-encoded as JPEG.
func Process(r io.Reader, opts Options) (*Photo, error) {
	opts = opts.withDefaults()

	data, err := io.ReadAll(io.LimitReader(r, opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if int64(len(data)) > opts.MaxBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrTooLarge, opts.MaxBytes)
	}

	if detected := http.DetectContentType(data); !accepted[detected] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, detected)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	if cfg.Width*cfg.Height > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	img = fit(img, opts.MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	b := img.Bounds()
	return &Photo{Data: buf.Bytes(), MIME: "image/jpeg", Width: b.Dx(), Height: b.Dy()}, nil
}

// fit scales img down so its longer side is maxDim, keeping the aspect
// ratio. Smaller images are returned as is.
func fit(img image.Image, maxDim int) image.Image {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	if w >= h {
		h = max(1, h*maxDim/w)
		w = maxDim
	} else {
		w = max(1, w*maxDim/h)
		h = maxDim
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	return dst
}
