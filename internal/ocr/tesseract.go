package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"certverify/pkg/logger"
)

// shortText is the length below which a first pass is retried on a
// preprocessed image with other page segmentation modes.
const shortText = 50

var retryModes = []gosseract.PageSegMode{
	gosseract.PSM_SINGLE_BLOCK,
	gosseract.PSM_AUTO,
	gosseract.PSM_SINGLE_COLUMN,
}

type TesseractEngine struct {
	clientFactory func() *gosseract.Client
	languages     []string
	log           *logger.Logger
}

func NewTesseractEngine(languages []string, l *logger.Logger) *TesseractEngine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &TesseractEngine{
		clientFactory: gosseract.NewClient,
		languages:     languages,
		log:           logger.OrNop(l),
	}
}

// Recognize runs a plain pass first. When it yields almost nothing the image
// is preprocessed and the longest result of the retry modes wins.
func (e *TesseractEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	text, err := e.recognize(image, nil)
	if err != nil {
		return "", err
	}
	if len(strings.TrimSpace(text)) >= shortText {
		return text, nil
	}

	e.log.Infof("short ocr result (%d chars), retrying with preprocessing", len(strings.TrimSpace(text)))
	pre, err := Preprocess(image)
	if err != nil {
		e.log.Warnf("image preprocessing failed: %v", err)
		return text, nil
	}
	for _, mode := range retryModes {
		if ctx.Err() != nil {
			break
		}
		mode := mode
		alt, err := e.recognize(pre, &mode)
		if err != nil {
			e.log.Warnf("ocr with psm %d failed: %v", mode, err)
			continue
		}
		if len(alt) > len(text) {
			text = alt
		}
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (e *TesseractEngine) recognize(image []byte, mode *gosseract.PageSegMode) (string, error) {
	c := e.clientFactory()
	defer c.Close()

	if err := c.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if mode != nil {
		if err := c.SetPageSegMode(*mode); err != nil {
			return "", fmt.Errorf("set page segmentation mode: %w", err)
		}
	}
	if err := c.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
