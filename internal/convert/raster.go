package convert

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/tiff"
)

// RasterConverter handles every raster-decodable input: PNG/JPG/WEBP,
// HEIC/HEIF, TIFF and the TIFF-container RAW variants, and SVG rasterized
// as input. It owns all resize and encoder logic; the PDF converter and the
// tracer delegate to it rather than duplicating quality handling.
type RasterConverter struct{}

func NewRasterConverter() *RasterConverter {
	return &RasterConverter{}
}

func (rc *RasterConverter) Convert(input []byte, in, out Format, opts Options) (*Result, error) {
	img, err := rc.Decode(input, in)
	if err != nil {
		return nil, err
	}
	return rc.FromImage(img, out, opts)
}

// FromImage resizes and encodes an already-decoded image. Dimensions in the
// result are re-derived from the produced buffer.
func (rc *RasterConverter) FromImage(img image.Image, out Format, opts Options) (*Result, error) {
	img = resizeImage(img, opts)

	buf, err := encodeImage(img, out, opts)
	if err != nil {
		return nil, err
	}

	w, h, err := decodeDimensions(buf, out)
	if err != nil {
		return nil, conversionErr("read output dimensions", err)
	}

	return &Result{
		Buffer: buf,
		Format: out.Normalized(),
		Width:  w,
		Height: h,
		Size:   len(buf),
	}, nil
}

// Decode normalizes any supported raster input to an image.Image.
func (rc *RasterConverter) Decode(input []byte, in Format) (image.Image, error) {
	r := bytes.NewReader(input)

	switch {
	case in.Normalized() == FormatWEBP:
		img, err := webp.Decode(r)
		if err != nil {
			return nil, conversionErr("decode webp", err)
		}
		return img, nil
	case in == FormatHEIC || in == FormatHEIF:
		img, err := goheif.Decode(r)
		if err != nil {
			return nil, conversionErr("decode heif", err)
		}
		return img, nil
	case in == FormatTIFF || in.isRawVariant():
		// RAW camera files are TIFF containers; the primary IFD decodes
		// without demosaicing.
		img, err := tiff.Decode(r)
		if err != nil {
			return nil, conversionErr("decode tiff", err)
		}
		return img, nil
	case in == FormatSVG:
		return rasterizeSVG(input)
	default:
		img, _, err := image.Decode(r)
		if err != nil {
			return nil, conversionErr("decode image", err)
		}
		return img, nil
	}
}

func rasterizeSVG(input []byte) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(input))
	if err != nil {
		return nil, conversionErr("parse svg", err)
	}
	w := int(math.Ceil(icon.ViewBox.W))
	h := int(math.Ceil(icon.ViewBox.H))
	if w <= 0 || h <= 0 {
		w, h = 512, 512
	}
	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return rgba, nil
}

// resizeImage applies the requested fit mode, never upscaling beyond the
// source dimensions.
func resizeImage(img image.Image, opts Options) image.Image {
	if opts.Width == 0 && opts.Height == 0 {
		return img
	}
	sw := img.Bounds().Dx()
	sh := img.Bounds().Dy()

	w := opts.Width
	h := opts.Height
	if w > sw {
		w = sw
	}
	if h > sh {
		h = sh
	}

	// Single-dimension resize keeps aspect; the clamp above guarantees the
	// scale factor is <= 1.
	if w == 0 {
		return imaging.Resize(img, 0, h, imaging.Lanczos)
	}
	if h == 0 {
		return imaging.Resize(img, w, 0, imaging.Lanczos)
	}

	switch opts.Fit {
	case FitCover:
		return imaging.Fill(img, w, h, imaging.Center, imaging.Lanczos)
	case FitFill:
		return imaging.Resize(img, w, h, imaging.Lanczos)
	case FitOutside:
		scale := math.Max(float64(w)/float64(sw), float64(h)/float64(sh))
		tw := int(math.Round(float64(sw) * scale))
		th := int(math.Round(float64(sh) * scale))
		return imaging.Resize(img, tw, th, imaging.Lanczos)
	default: // contain, inside
		return imaging.Fit(img, w, h, imaging.Lanczos)
	}
}

func encodeImage(img image.Image, out Format, opts Options) ([]byte, error) {
	var buf bytes.Buffer

	switch out.Normalized() {
	case FormatWEBP:
		quality := opts.Quality
		if quality == 0 {
			quality = DefaultWebPQuality
		}
		err := webp.Encode(&buf, img, &webp.Options{
			Lossless: opts.Lossless,
			Quality:  float32(quality),
		})
		if err != nil {
			return nil, conversionErr("encode webp", err)
		}
	case FormatPNG:
		enc := png.Encoder{CompressionLevel: png.DefaultCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, conversionErr("encode png", err)
		}
	case FormatJPG:
		quality := opts.Quality
		if quality == 0 {
			quality = DefaultJPEGQuality
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, conversionErr("encode jpeg", err)
		}
	default:
		return nil, errUnsupportedConversion("", out, nil)
	}

	return buf.Bytes(), nil
}

func decodeDimensions(data []byte, out Format) (int, int, error) {
	r := bytes.NewReader(data)
	var cfg image.Config
	var err error

	switch out.Normalized() {
	case FormatWEBP:
		cfg, err = webp.DecodeConfig(r)
	case FormatPNG:
		cfg, err = png.DecodeConfig(r)
	case FormatJPG:
		cfg, err = jpeg.DecodeConfig(r)
	default:
		cfg, _, err = image.DecodeConfig(r)
	}
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
