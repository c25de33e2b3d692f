// Package imaging normalizes uploads before they are stored. Images are
// bounded in size and re-encoded as JPEG. Identity documents may also be
// PDFs, which are kept as they are.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// MaxDimension is the maximum width or height of a stored document photo.
// Large enough to keep ID text legible.
const MaxDimension = 2000

// JPEGQuality is the compression quality for JPEG output.
const JPEGQuality = 88

// MIME types accepted for identity documents.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEPDF  = "application/pdf"
)

// ErrUnsupported is returned for uploads in a format the caller does not accept.
var ErrUnsupported = errors.New("unsupported document format")

// Document is a normalized upload ready for storage.
type Document struct {
	Data []byte
	MIME string
}

// NormalizeDocument reads an upload and validates the format by sniffing
// bytes. Images are downscaled if larger than MaxDimension and re-encoded as
// JPEG; PDFs pass through unchanged.
func NormalizeDocument(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	// Sniff actual MIME type from bytes (not trusting client headers).
	detected := http.DetectContentType(data)
	switch detected {
	case MIMEPDF:
		return &Document{Data: data, MIME: MIMEPDF}, nil
	case MIMEJPEG, MIMEPNG:
		return reencode(data)
	default:
		return nil, fmt.Errorf("%w: %s (JPEG, PNG or PDF accepted)", ErrUnsupported, detected)
	}
}

// NormalizePhoto is NormalizeDocument for listing photos: only JPEG and
// PNG are accepted.
func NormalizePhoto(r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	detected := http.DetectContentType(data)
	if detected != MIMEJPEG && detected != MIMEPNG {
		return nil, fmt.Errorf("%w: %s (JPEG or PNG accepted)", ErrUnsupported, detected)
	}
	return reencode(data)
}

func reencode(data []byte) (*Document, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}

	return &Document{Data: buf.Bytes(), MIME: MIMEJPEG}, nil
}

// downscale resizes the image so neither dimension exceeds maxDim,
// preserving aspect ratio. Returns the original image if already within
// bounds.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func init() {
	image.RegisterFormat("jpeg", "\xff\xd8", jpeg.Decode, jpeg.DecodeConfig)
	image.RegisterFormat("png", "\x89PNG", png.Decode, png.DecodeConfig)
}
