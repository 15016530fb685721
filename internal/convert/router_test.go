package convert

import (
	"errors"
	"testing"
)

type stubRaster struct{ calls int }

func (s *stubRaster) Convert(input []byte, in, out Format, opts Options) (*Result, error) {
	s.calls++
	return &Result{Format: out.Normalized()}, nil
}

type stubPDF struct{ calls int }

func (s *stubPDF) Convert(input []byte, out Format, opts Options) (*Result, error) {
	s.calls++
	return &Result{Format: out.Normalized()}, nil
}

type stubTracer struct{ calls int }

func (s *stubTracer) Trace(input []byte, in Format, opts Options) (*Result, error) {
	s.calls++
	return &Result{Format: FormatSVG}, nil
}

func stubConverter() (*Converter, *stubRaster, *stubPDF, *stubTracer) {
	r := &stubRaster{}
	p := &stubPDF{}
	tr := &stubTracer{}
	return &Converter{raster: r, pdf: p, tracer: tr}, r, p, tr
}

func TestConvert_DispatchRaster(t *testing.T) {
	t.Parallel()

	c, r, p, tr := stubConverter()
	data := encodePNG(t, testImage(8, 8))

	if _, err := c.Convert(data, FormatWEBP, Options{}, "in.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.calls != 1 || p.calls != 0 || tr.calls != 0 {
		t.Fatalf("expected raster dispatch, got raster=%d pdf=%d tracer=%d", r.calls, p.calls, tr.calls)
	}
}

func TestConvert_DispatchPDF(t *testing.T) {
	t.Parallel()

	c, r, p, tr := stubConverter()
	data := []byte("%PDF-1.4\n%%EOF\n")

	if _, err := c.Convert(data, FormatPNG, Options{}, "doc.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.calls != 1 || r.calls != 0 || tr.calls != 0 {
		t.Fatalf("expected pdf dispatch, got raster=%d pdf=%d tracer=%d", r.calls, p.calls, tr.calls)
	}
}

func TestConvert_DispatchTracer(t *testing.T) {
	t.Parallel()

	c, r, p, tr := stubConverter()
	data := encodePNG(t, testImage(8, 8))

	if _, err := c.Convert(data, FormatSVG, Options{}, "in.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.calls != 1 || r.calls != 0 || p.calls != 0 {
		t.Fatalf("expected tracer dispatch, got raster=%d pdf=%d tracer=%d", r.calls, p.calls, tr.calls)
	}
}

func TestConvert_RejectsUnsupportedPair(t *testing.T) {
	t.Parallel()

	c, r, p, tr := stubConverter()
	data := encodeWEBP(t, testImage(8, 8))

	_, err := c.Convert(data, FormatSVG, Options{}, "in.webp")
	if err == nil {
		t.Fatal("webp -> svg must be rejected")
	}
	if KindOf(err) != KindUnsupportedConversion {
		t.Fatalf("got kind %s, want %s", KindOf(err), KindUnsupportedConversion)
	}

	var ce *Error
	if !errors.As(err, &ce) {
		t.Fatal("expected a classified error")
	}
	if len(ce.Allowed) == 0 {
		t.Fatal("rejection must carry the allowed outputs")
	}
	for _, f := range ce.Allowed {
		if f == FormatSVG {
			t.Fatal("svg must not appear in the allowed outputs for webp")
		}
	}

	if r.calls+p.calls+tr.calls != 0 {
		t.Fatal("no backend may run for a rejected pair")
	}
}

func TestConvert_FileTooLargeBeforeDetection(t *testing.T) {
	t.Parallel()

	c, r, p, tr := stubConverter()
	// garbage bytes: the size gate must fire before detection can object
	data := make([]byte, MaxFileSize+1)

	_, err := c.Convert(data, FormatPNG, Options{}, "huge.bin")
	if err == nil {
		t.Fatal("oversize input must be rejected")
	}
	if KindOf(err) != KindFileTooLarge {
		t.Fatalf("got kind %s, want %s", KindOf(err), KindFileTooLarge)
	}
	if r.calls+p.calls+tr.calls != 0 {
		t.Fatal("no backend may run for oversize input")
	}
}

func TestConvert_UnknownInput(t *testing.T) {
	t.Parallel()

	c, _, _, _ := stubConverter()
	_, err := c.Convert([]byte{0xde, 0xad, 0xbe, 0xef}, FormatPNG, Options{}, "blob.xyz")
	if err == nil {
		t.Fatal("undetectable input must be rejected")
	}
	if KindOf(err) != KindUnsupportedFormat {
		t.Fatalf("got kind %s, want %s", KindOf(err), KindUnsupportedFormat)
	}
}
