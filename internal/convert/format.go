package convert

// Format is the closed set of image formats the pipeline understands.
// "jpg" and "jpeg" are the same codec; Normalized collapses them to "jpg",
// which is also the canonical tag used in storage keys and filenames.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPG  Format = "jpg"
	FormatJPEG Format = "jpeg"
	FormatWEBP Format = "webp"
	FormatHEIC Format = "heic"
	FormatHEIF Format = "heif"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
	FormatTIFF Format = "tiff"
	FormatRAW  Format = "raw"
	FormatCR2  Format = "cr2"
	FormatNEF  Format = "nef"
	FormatARW  Format = "arw"
	FormatDNG  Format = "dng"
)

// MaxFileSize is the input byte ceiling, enforced before format detection.
const MaxFileSize = 50 * 1024 * 1024

func (f Format) Normalized() Format {
	if f == FormatJPEG {
		return FormatJPG
	}
	return f
}

// Ext returns the file extension tag for a format (no leading dot).
func (f Format) Ext() string {
	return string(f.Normalized())
}

func (f Format) ContentType() string {
	switch f.Normalized() {
	case FormatPNG:
		return "image/png"
	case FormatJPG:
		return "image/jpeg"
	case FormatWEBP:
		return "image/webp"
	case FormatSVG:
		return "image/svg+xml"
	case FormatHEIC:
		return "image/heic"
	case FormatHEIF:
		return "image/heif"
	case FormatTIFF:
		return "image/tiff"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// isRawVariant covers the TIFF-container camera formats.
func (f Format) isRawVariant() bool {
	switch f {
	case FormatRAW, FormatCR2, FormatNEF, FormatARW, FormatDNG:
		return true
	}
	return false
}

// supportedConversions is the authoritative input -> allowed outputs table.
var supportedConversions = map[Format][]Format{
	FormatPNG:  {FormatWEBP, FormatJPG, FormatJPEG, FormatSVG},
	FormatJPG:  {FormatWEBP, FormatPNG, FormatSVG},
	FormatJPEG: {FormatWEBP, FormatPNG, FormatSVG},
	FormatWEBP: {FormatPNG, FormatJPG, FormatJPEG},
	FormatHEIC: {FormatJPG, FormatJPEG, FormatPNG, FormatWEBP},
	FormatHEIF: {FormatJPG, FormatJPEG, FormatPNG, FormatWEBP},
	FormatSVG:  {FormatPNG, FormatJPG, FormatJPEG, FormatWEBP},
	FormatPDF:  {FormatPNG, FormatJPG, FormatJPEG, FormatWEBP},
	FormatTIFF: {FormatPNG, FormatJPG, FormatJPEG, FormatWEBP},
	FormatRAW:  {FormatJPG, FormatJPEG, FormatPNG, FormatWEBP},
	FormatCR2:  {FormatJPG, FormatJPEG, FormatPNG, FormatWEBP},
	FormatNEF:  {FormatJPG, FormatJPEG, FormatPNG, FormatWEBP},
	FormatARW:  {FormatJPG, FormatJPEG, FormatPNG, FormatWEBP},
	FormatDNG:  {FormatJPG, FormatJPEG, FormatPNG, FormatWEBP},
}

// InputFormats returns every format accepted as conversion input.
func InputFormats() []Format {
	formats := make([]Format, 0, len(supportedConversions))
	for f := range supportedConversions {
		formats = append(formats, f)
	}
	return formats
}

// AllowedOutputs returns the permitted output formats for an input format.
func AllowedOutputs(in Format) ([]Format, bool) {
	outs, ok := supportedConversions[in]
	return outs, ok
}

// ParseOutputFormat validates a client-supplied output format tag.
func ParseOutputFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatPNG, FormatJPG, FormatJPEG, FormatWEBP, FormatSVG:
		return Format(s), true
	}
	return "", false
}
