package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func createTestJPEG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	var buf bytes.Buffer
	jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	return buf.Bytes()
}

func createTestPNG(w, h int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestNormalizePNGBecomesJPEG(t *testing.T) {
	doc, err := NormalizeDocument(bytes.NewReader(createTestPNG(100, 60)))
	if err != nil {
		t.Fatalf("NormalizeDocument: %v", err)
	}
	if doc.MIME != MIMEJPEG {
		t.Errorf("expected %s, got %s", MIMEJPEG, doc.MIME)
	}
	if w, h := decodeSize(t, doc.Data); w != 100 || h != 60 {
		t.Errorf("small image should keep its size: got %dx%d", w, h)
	}
}

func TestNormalizeDownscalesLargePhoto(t *testing.T) {
	doc, err := NormalizeDocument(bytes.NewReader(createTestJPEG(3000, 1500)))
	if err != nil {
		t.Fatalf("NormalizeDocument: %v", err)
	}

	w, h := decodeSize(t, doc.Data)
	if w != MaxDimension || h != MaxDimension/2 {
		t.Errorf("expected %dx%d, got %dx%d", MaxDimension, MaxDimension/2, w, h)
	}
}

func TestNormalizePDFPassesThrough(t *testing.T) {
	pdf := []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n%%EOF")
	doc, err := NormalizeDocument(bytes.NewReader(pdf))
	if err != nil {
		t.Fatalf("NormalizeDocument: %v", err)
	}
	if doc.MIME != MIMEPDF || !bytes.Equal(doc.Data, pdf) {
		t.Errorf("expected PDF unchanged, got %s", doc.MIME)
	}
}

func TestNormalizeRejectsOtherFormats(t *testing.T) {
	for name, data := range map[string][]byte{
		"text": []byte("not an image"),
		"gif":  []byte("GIF89a..."),
	} {
		_, err := NormalizeDocument(bytes.NewReader(data))
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("%s: expected ErrUnsupported, got %v", name, err)
		}
	}
}

func TestDownscalePortrait(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 500, 4000))
	got := downscale(img, 1000)
	if got.Bounds().Dx() != 125 || got.Bounds().Dy() != 1000 {
		t.Errorf("expected 125x1000, got %dx%d", got.Bounds().Dx(), got.Bounds().Dy())
	}
}

func TestNormalizePhoto(t *testing.T) {
	doc, err := NormalizePhoto(bytes.NewReader(createTestPNG(40, 30)))
	if err != nil {
		t.Fatalf("NormalizePhoto: %v", err)
	}
	if doc.MIME != MIMEJPEG {
		t.Errorf("expected %s, got %s", MIMEJPEG, doc.MIME)
	}

	pdf := []byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n%%EOF")
	if _, err := NormalizePhoto(bytes.NewReader(pdf)); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected PDF to be refused as a photo, got %v", err)
	}
}
