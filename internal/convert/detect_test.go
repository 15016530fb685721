package convert

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
)

// testImage returns a small image split into two solid halves, enough
// structure for every encoder and the tracer.
func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < w/2 {
				img.Set(x, y, color.RGBA{0, 0, 0, 255})
			} else {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding fixture png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding fixture jpeg: %v", err)
	}
	return buf.Bytes()
}

func encodeWEBP(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		t.Fatalf("encoding fixture webp: %v", err)
	}
	return buf.Bytes()
}

func TestDetectFormat_MagicBytes(t *testing.T) {
	t.Parallel()

	img := testImage(8, 8)
	cases := []struct {
		name string
		data []byte
		want Format
	}{
		{"png", encodePNG(t, img), FormatPNG},
		{"jpeg", encodeJPEG(t, img), FormatJPG},
		{"webp", encodeWEBP(t, img), FormatWEBP},
		{"pdf", []byte("%PDF-1.4\n%%EOF\n"), FormatPDF},
	}

	for _, tc := range cases {
		// deliberately misleading filename: content signature must win
		got, err := DetectFormat(tc.data, "upload.bin")
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestDetectFormat_ExtensionFallback(t *testing.T) {
	t.Parallel()

	// a TIFF header without vendor markers: extension decides the RAW variant
	tiffHeader := []byte{0x49, 0x49, 0x2a, 0x00, 0x08, 0x00, 0x00, 0x00}

	cases := []struct {
		filename string
		want     Format
	}{
		{"shot.CR2", FormatCR2},
		{"shot.nef", FormatNEF},
		{"shot.arw", FormatARW},
		{"shot.dng", FormatDNG},
		{"shot.raw", FormatRAW},
	}
	for _, tc := range cases {
		got, err := DetectFormat(tiffHeader, tc.filename)
		if err != nil {
			// mimetype may classify the header as TIFF outright, which is
			// also a valid outcome for the container
			t.Errorf("%s: unexpected error: %v", tc.filename, err)
			continue
		}
		if got != tc.want && got != FormatTIFF {
			t.Errorf("%s: got %s, want %s", tc.filename, got, tc.want)
		}
	}
}

func TestDetectFormat_SVGTextSniff(t *testing.T) {
	t.Parallel()

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"></svg>`)
	got, err := DetectFormat(svg, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != FormatSVG {
		t.Fatalf("got %s, want svg", got)
	}

	withDecl := []byte("  <?xml version=\"1.0\"?>\n<svg></svg>")
	got, err = DetectFormat(withDecl, "picture")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != FormatSVG {
		t.Fatalf("got %s, want svg", got)
	}
}

func TestDetectFormat_Unknown(t *testing.T) {
	t.Parallel()

	_, err := DetectFormat([]byte{0x00, 0x01, 0x02, 0x03, 0xff, 0xfe}, "mystery.xyz")
	if err == nil {
		t.Fatal("expected an error for unrecognized bytes")
	}
	if KindOf(err) != KindUnsupportedFormat {
		t.Fatalf("got kind %s, want %s", KindOf(err), KindUnsupportedFormat)
	}
}
