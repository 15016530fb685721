package convert

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/dennwc/gotrace"
	"github.com/ericpauley/go-quantize/quantize"
)

// traceParams is the tuned tracer configuration derived from Options.
type traceParams struct {
	colors    int
	tolerance float64
	turdSize  int
}

// tuneTracer maps the 1-100 quality knob onto tracer fidelity. The mapping
// is two-tier: above 50, a larger palette and tighter curve tolerance.
func tuneTracer(opts Options) traceParams {
	p := traceParams{colors: 16, tolerance: 0.4, turdSize: 8}
	if opts.Quality > 50 {
		p.colors = 32
		p.tolerance = 0.2
	}
	return p
}

// Tracer converts raster input to SVG by quantizing the image to a small
// palette and tracing each color layer to vector paths.
type Tracer struct {
	raster *RasterConverter
}

func NewTracer(raster *RasterConverter) *Tracer {
	return &Tracer{raster: raster}
}

func (t *Tracer) Trace(input []byte, in Format, opts Options) (*Result, error) {
	img, err := t.raster.Decode(input, in)
	if err != nil {
		return nil, err
	}

	params := tuneTracer(opts)
	svg, w, h, err := traceImage(img, params)
	if err != nil {
		return nil, err
	}

	buf := []byte(svg)
	return &Result{
		Buffer: buf,
		Format: FormatSVG,
		Width:  w,
		Height: h,
		Size:   len(buf),
	}, nil
}

func traceImage(img image.Image, params traceParams) (string, int, int, error) {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w == 0 || h == 0 {
		return "", 0, 0, conversionErr("trace", fmt.Errorf("empty image %dx%d", w, h))
	}

	q := quantize.MedianCutQuantizer{}
	palette := q.Quantize(make(color.Palette, 0, params.colors), img)
	if len(palette) == 0 {
		return "", 0, 0, conversionErr("trace", fmt.Errorf("could not derive a palette"))
	}

	// Assign every pixel to its nearest palette entry once; the per-layer
	// bitmaps below are lookups into this index map.
	index := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			index[y*w+x] = palette.Index(img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, w, h, w, h)
	sb.WriteByte('\n')

	traceOpts := &gotrace.Params{
		TurdSize:     params.turdSize,
		TurnPolicy:   gotrace.TurnMinority,
		AlphaMax:     1.0,
		OptiCurve:    true,
		OptTolerance: params.tolerance,
	}

	for ci, entry := range palette {
		layer := ci
		bm := gotrace.NewBitmapFromImage(img, func(x, y int, _ color.Color) bool {
			return index[y*w+x] == layer
		})
		paths, err := gotrace.Trace(bm, traceOpts)
		if err != nil {
			return "", 0, 0, conversionErr("trace layer", err)
		}
		if len(paths) == 0 {
			continue
		}
		d := pathsToSVG(paths)
		if d == "" {
			continue
		}
		fmt.Fprintf(&sb, `<path fill="%s" fill-rule="evenodd" d="%s"/>`, hexColor(entry), d)
		sb.WriteByte('\n')
	}

	sb.WriteString("</svg>\n")
	return sb.String(), w, h, nil
}

// pathsToSVG renders traced curves as one path element per color layer;
// holes are handled by the even-odd fill rule.
func pathsToSVG(paths []gotrace.Path) string {
	var sb strings.Builder
	for _, p := range paths {
		if len(p.Curve) == 0 {
			continue
		}
		start := p.Curve[len(p.Curve)-1].Pnt[2]
		fmt.Fprintf(&sb, "M%s %s", coord(start.X), coord(start.Y))
		for _, seg := range p.Curve {
			switch seg.Type {
			case gotrace.TypeBezier:
				fmt.Fprintf(&sb, "C%s %s %s %s %s %s",
					coord(seg.Pnt[0].X), coord(seg.Pnt[0].Y),
					coord(seg.Pnt[1].X), coord(seg.Pnt[1].Y),
					coord(seg.Pnt[2].X), coord(seg.Pnt[2].Y))
			default:
				fmt.Fprintf(&sb, "L%s %sL%s %s",
					coord(seg.Pnt[1].X), coord(seg.Pnt[1].Y),
					coord(seg.Pnt[2].X), coord(seg.Pnt[2].Y))
			}
		}
		sb.WriteString("Z")
	}
	return sb.String()
}

func coord(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}
