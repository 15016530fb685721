package convert

import (
	"bytes"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// PDFConverter rasterizes a single PDF page and hands the pixels to the
// raster encoder, so one encoder owns all quality and format logic.
type PDFConverter struct {
	raster *RasterConverter
}

func NewPDFConverter(raster *RasterConverter) *PDFConverter {
	return &PDFConverter{raster: raster}
}

func (p *PDFConverter) Convert(input []byte, out Format, opts Options) (*Result, error) {
	page := opts.Page
	if page == 0 {
		page = DefaultPage
	}
	dpi := opts.DPI
	if dpi == 0 {
		dpi = DefaultDPI
	}

	count, err := api.PageCount(bytes.NewReader(input), nil)
	if err != nil {
		return nil, conversionErr("parse pdf", err)
	}
	if page < 1 || page > count {
		return nil, errPageOutOfRange(page, count)
	}

	doc, err := fitz.NewFromMemory(input)
	if err != nil {
		return nil, conversionErr("open pdf", err)
	}
	defer doc.Close()

	// PDF's native unit is 72 DPI; the requested density sets the scale.
	img, err := doc.ImageDPI(page-1, float64(dpi))
	if err != nil {
		return nil, conversionErr("render pdf page", err)
	}

	return p.raster.FromImage(img, out, opts)
}
