package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// PreprocessOptions tune the image cleanup done before Tesseract.
type PreprocessOptions struct {
	// MinHeight triggers an upscale to TargetHeight for small images.
	MinHeight    int
	TargetHeight int
	Contrast     float64
	Sharpen      float64
	// Threshold binarizes the image when non-zero.
	Threshold uint8
	// Invert swaps light and dark, for light text on a dark card.
	Invert bool
}

// DefaultPreprocess mirrors what works on photographed recharge cards:
// grayscale, upscale, extra contrast and a light sharpen.
var DefaultPreprocess = PreprocessOptions{
	MinHeight:    900,
	TargetHeight: 1300,
	Contrast:     15,
	Sharpen:      0.7,
}

// DecodeImage decodes PNG, JPEG, GIF or WebP bytes, honoring EXIF orientation.
func DecodeImage(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Preprocess prepares img for Tesseract.
func Preprocess(img image.Image, o PreprocessOptions) image.Image {
	var out image.Image = imaging.Grayscale(img)
	if o.MinHeight > 0 && o.TargetHeight > 0 && out.Bounds().Dy() < o.MinHeight {
		out = imaging.Resize(out, 0, o.TargetHeight, imaging.Lanczos)
	}
	if o.Contrast != 0 {
		out = imaging.AdjustContrast(out, o.Contrast)
	}
	if o.Sharpen > 0 {
		out = imaging.Sharpen(out, o.Sharpen)
	}
	if o.Threshold > 0 {
		out = segment.Threshold(out, o.Threshold)
	}
	if o.Invert {
		out = imaging.Invert(out)
	}
	return out
}

// PreprocessBytes decodes data, runs Preprocess and re-encodes the result as PNG.
func PreprocessBytes(data []byte, o PreprocessOptions) ([]byte, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return encodePNG(Preprocess(img, o))
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}
