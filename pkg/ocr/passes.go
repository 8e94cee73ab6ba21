//go:build cgo

package ocr

import (
	"fmt"
	"log"

	"github.com/otiai10/gosseract/v2"
)

// tessPass is one Tesseract attempt: a preprocessing variant and a page
// segmentation mode.
type tessPass struct {
	name string
	prep PreprocessOptions
	psm  gosseract.PageSegMode
}

// defaultPasses are tried in order until one yields a code-like line.
var defaultPasses = []tessPass{
	{name: "base", prep: DefaultPreprocess, psm: gosseract.PSM_AUTO},
	{name: "binary", prep: withThreshold(DefaultPreprocess, 160), psm: gosseract.PSM_AUTO},
	{name: "inverted", prep: withInvert(DefaultPreprocess), psm: gosseract.PSM_AUTO},
	{name: "sparse", prep: DefaultPreprocess, psm: gosseract.PSM_SPARSE_TEXT},
	{name: "block", prep: DefaultPreprocess, psm: gosseract.PSM_SINGLE_BLOCK},
}

func withThreshold(o PreprocessOptions, level uint8) PreprocessOptions {
	o.Threshold = level
	return o
}

func withInvert(o PreprocessOptions) PreprocessOptions {
	o.Invert = true
	return o
}

// runPasses decodes data once and runs the passes against it in memory. It
// stops at the first pass whose text scores above zero, otherwise it returns
// the best text seen.
func runPasses(data []byte, lang string, passes []tessPass, verbose bool) (string, error) {
	img, err := DecodeImage(data)
	if err != nil {
		return "", &DelegateError{Provider: "Tesseract", Message: err.Error()}
	}
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(lang); err != nil {
		return "", fmt.Errorf("tesseract language: %w", err)
	}
	if err := client.SetWhitelist(codeWhitelist); err != nil {
		return "", fmt.Errorf("tesseract whitelist: %w", err)
	}

	var texts []string
	for _, p := range passes {
		png, err := encodePNG(Preprocess(img, p.prep))
		if err != nil {
			return "", err
		}
		if err := client.SetPageSegMode(p.psm); err != nil {
			return "", fmt.Errorf("tesseract psm: %w", err)
		}
		if err := client.SetImageFromBytes(png); err != nil {
			return "", &DelegateError{Provider: "Tesseract", Message: err.Error()}
		}
		text, err := client.Text()
		if err != nil {
			return "", &DelegateError{Provider: "Tesseract", Message: err.Error()}
		}
		score := scoreText(text)
		if verbose {
			log.Printf("tesseract pass %s score=%d", p.name, score)
		}
		if score > 0 {
			return text, nil
		}
		texts = append(texts, text)
	}
	return bestText(texts), nil
}
