package convert

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// mimeToFormat maps detected MIME types to internal format tags.
var mimeToFormat = map[string]Format{
	"image/png":        FormatPNG,
	"image/jpeg":       FormatJPG,
	"image/webp":       FormatWEBP,
	"image/heic":       FormatHEIC,
	"image/heif":       FormatHEIF,
	"image/tiff":       FormatTIFF,
	"image/svg+xml":    FormatSVG,
	"application/pdf":  FormatPDF,
	"image/x-canon-cr2": FormatCR2,
	"image/x-nikon-nef": FormatNEF,
	"image/x-sony-arw":  FormatARW,
	"image/x-adobe-dng": FormatDNG,
}

// extToFormat is the fallback for formats without a reliable content
// signature (SVG is plain text, several RAW containers look like TIFF).
var extToFormat = map[string]Format{
	".svg":  FormatSVG,
	".pdf":  FormatPDF,
	".cr2":  FormatCR2,
	".nef":  FormatNEF,
	".arw":  FormatARW,
	".dng":  FormatDNG,
	".raw":  FormatRAW,
	".heic": FormatHEIC,
	".heif": FormatHEIF,
}

// DetectFormat determines the input format of a byte buffer. Content
// signature wins, extension is the fallback, and a trailing text sniff
// catches SVG documents without an .svg name.
func DetectFormat(data []byte, filename string) (Format, error) {
	if mt := mimetype.Detect(data); mt != nil {
		for m := mt; m != nil; m = m.Parent() {
			if f, ok := mimeToFormat[m.String()]; ok {
				return f, nil
			}
		}
	}

	if filename != "" {
		ext := strings.ToLower(filepath.Ext(filename))
		if f, ok := extToFormat[ext]; ok {
			return f, nil
		}
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	text := strings.TrimSpace(string(head))
	if strings.HasPrefix(text, "<") && (strings.Contains(text, "<svg") || strings.Contains(text, "<?xml")) {
		return FormatSVG, nil
	}

	return "", errUnsupportedFormat()
}
