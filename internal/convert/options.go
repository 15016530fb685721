package convert

// FitMode controls how an image is mapped onto the requested width/height.
type FitMode string

const (
	FitCover   FitMode = "cover"
	FitContain FitMode = "contain"
	FitFill    FitMode = "fill"
	FitInside  FitMode = "inside"
	FitOutside FitMode = "outside"
)

const (
	DefaultWebPQuality = 80
	DefaultJPEGQuality = 85
	DefaultDPI         = 150
	DefaultPage        = 1
)

// Options is the per-job conversion tuning. Zero values mean "use the
// format-dependent default"; the struct is never mutated by the backends.
type Options struct {
	Quality  int     `json:"quality,omitempty" validate:"omitempty,min=1,max=100"`
	Width    int     `json:"width,omitempty" validate:"omitempty,min=1"`
	Height   int     `json:"height,omitempty" validate:"omitempty,min=1"`
	Fit      FitMode `json:"fit,omitempty" validate:"omitempty,oneof=cover contain fill inside outside"`
	DPI      int     `json:"dpi,omitempty" validate:"omitempty,min=18,max=600"`
	Page     int     `json:"page,omitempty" validate:"omitempty,min=1"`
	Lossless bool    `json:"lossless,omitempty"`
}

// Result is the transient outcome of one conversion attempt. Width and
// height are re-derived from the produced buffer, not the input.
type Result struct {
	Buffer []byte
	Format Format
	Width  int
	Height int
	Size   int
}
