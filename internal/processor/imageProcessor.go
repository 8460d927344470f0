package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrDecode       = errors.New("failed to decode image")
	ErrInvalidImage = errors.New("invalid image")
)

// JPEGQuality is used for every re-encode that ends up as JPEG.
const JPEGQuality = 90

// DefaultMaxPixels rejects images whose decoded bitmap would not fit a sane
// memory budget. Same bound as Pillow's decompression bomb error.
const DefaultMaxPixels = 178956970

// Format is the round-trippable family an image belongs to. Anything that is
// not PNG or GIF is re-encoded as JPEG.
type Format int

const (
	FormatOther Format = iota
	FormatPNG
	FormatGIF
)

func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatGIF:
		return "gif"
	default:
		return "jpeg"
	}
}

func formatFromName(name string) Format {
	switch name {
	case "png":
		return FormatPNG
	case "gif":
		return FormatGIF
	default:
		return FormatOther
	}
}

type ColorMode int

const (
	ModeOther ColorMode = iota
	ModeRGB
	ModeRGBA
	ModePalette
	ModeGray
	ModeCMYK
)

func (m ColorMode) String() string {
	switch m {
	case ModeRGB:
		return "RGB"
	case ModeRGBA:
		return "RGBA"
	case ModePalette:
		return "P"
	case ModeGray:
		return "L"
	case ModeCMYK:
		return "CMYK"
	default:
		return "other"
	}
}

func modeOf(img image.Image) ColorMode {
	switch img.(type) {
	case *image.YCbCr:
		return ModeRGB
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.NYCbCrA:
		return ModeRGBA
	case *image.Paletted:
		return ModePalette
	case *image.Gray, *image.Gray16:
		return ModeGray
	case *image.CMYK:
		return ModeCMYK
	default:
		return ModeOther
	}
}

type encoder func(w io.Writer, img image.Image) error

// formatRule decides, per format, which colour modes can reach the encoder
// untouched and what everything else is converted to.
type formatRule struct {
	keep   func(ColorMode) bool
	target ColorMode
	encode encoder
}

var rules = map[Format]formatRule{
	FormatPNG: {
		keep:   func(m ColorMode) bool { return m == ModeRGB || m == ModeRGBA },
		target: ModeRGBA,
		encode: func(w io.Writer, img image.Image) error {
			enc := png.Encoder{CompressionLevel: png.BestCompression}
			return enc.Encode(w, img)
		},
	},
	FormatGIF: {
		keep:   func(m ColorMode) bool { return m == ModeRGB || m == ModeRGBA },
		target: ModeRGBA,
		encode: func(w io.Writer, img image.Image) error {
			return gif.Encode(w, adaptivePaletted(img, 256), nil)
		},
	},
	FormatOther: {
		keep:   func(m ColorMode) bool { return m != ModePalette && m != ModeRGBA },
		target: ModeRGB,
		encode: func(w io.Writer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: JPEGQuality})
		},
	},
}

// ImageBuffer holds one decoded image for the duration of a resize.
type ImageBuffer struct {
	img    image.Image
	format Format
	mode   ColorMode
}

// Decode reads the image and decides its format and colour mode once. Images
// larger than DefaultMaxPixels are rejected before the bitmap is allocated.
func Decode(data []byte) (*ImageBuffer, error) {
	return DecodeLimited(data, DefaultMaxPixels)
}

// DecodeLimited is Decode with an explicit pixel cap. A cap <= 0 means
// DefaultMaxPixels.
func DecodeLimited(data []byte, maxPixels int64) (*ImageBuffer, error) {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	isWebP := mimetype.Detect(data).Is("image/webp")

	var (
		cfg image.Config
		err error
	)
	if isWebP {
		cfg, err = webp.DecodeConfig(bytes.NewReader(data))
	} else {
		cfg, _, err = image.DecodeConfig(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, maxPixels)
	}

	var (
		img  image.Image
		name string
	)
	if isWebP {
		img, err = webp.Decode(bytes.NewReader(data))
		name = "webp"
	} else {
		img, name, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	return &ImageBuffer{img: img, format: formatFromName(name), mode: modeOf(img)}, nil
}

func (b *ImageBuffer) Format() Format { return b.format }

func (b *ImageBuffer) Mode() ColorMode { return b.mode }

func (b *ImageBuffer) Image() image.Image { return b.img }

func (b *ImageBuffer) GetBounds() (int, int) {
	return b.img.Bounds().Dx(), b.img.Bounds().Dy()
}

// Normalize converts the colour mode into one the target encoder accepts.
func (b *ImageBuffer) Normalize() {
	rule := rules[b.format]
	if rule.keep(b.mode) {
		return
	}

	switch rule.target {
	case ModeRGBA:
		b.img = imaging.Clone(b.img)
	case ModeRGB:
		b.img = dropAlpha(b.img)
	}
	b.mode = rule.target
}

func (b *ImageBuffer) Resize(width, height int) {
	b.img = imaging.Resize(b.img, width, height, imaging.Lanczos)
}

func (b *ImageBuffer) Encode() ([]byte, error) {
	img := b.img
	if b.format == FormatOther && b.mode == ModeGray {
		img = toGray(img)
	}

	buf := new(bytes.Buffer)
	if err := rules[b.format].encode(buf, img); err != nil {
		return nil, fmt.Errorf("encode %s: %w", b.format, err)
	}
	return buf.Bytes(), nil
}

// dropAlpha discards the alpha channel, keeping the straight colour values.
func dropAlpha(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			dst.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return dst
}
