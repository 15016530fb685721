package convert

// Backend contracts, split per converter so tests can observe dispatch.
type rasterBackend interface {
	Convert(input []byte, in, out Format, opts Options) (*Result, error)
}

type pdfBackend interface {
	Convert(input []byte, out Format, opts Options) (*Result, error)
}

type traceBackend interface {
	Trace(input []byte, in Format, opts Options) (*Result, error)
}

// Converter is the conversion entry point: size check, format detection,
// compatibility validation, then dispatch to exactly one backend.
type Converter struct {
	raster rasterBackend
	pdf    pdfBackend
	tracer traceBackend
}

func NewConverter() *Converter {
	raster := NewRasterConverter()
	return &Converter{
		raster: raster,
		pdf:    NewPDFConverter(raster),
		tracer: NewTracer(raster),
	}
}

// Convert runs one conversion. Dispatch precedence: SVG output is always a
// tracing operation regardless of input; PDF input always rasterizes a page
// first; everything else is a plain raster conversion.
func (c *Converter) Convert(input []byte, out Format, opts Options, filename string) (*Result, error) {
	if len(input) > MaxFileSize {
		return nil, errFileTooLarge(len(input))
	}

	in, err := DetectFormat(input, filename)
	if err != nil {
		return nil, err
	}

	allowed, ok := AllowedOutputs(in)
	if !ok {
		return nil, errUnsupportedFormat()
	}
	if !formatIn(out, allowed) {
		return nil, errUnsupportedConversion(in, out, allowed)
	}

	switch {
	case out.Normalized() == FormatSVG:
		return c.tracer.Trace(input, in, opts)
	case in == FormatPDF:
		return c.pdf.Convert(input, out, opts)
	default:
		return c.raster.Convert(input, in, out, opts)
	}
}

func formatIn(f Format, set []Format) bool {
	for _, s := range set {
		if s == f {
			return true
		}
	}
	return false
}
