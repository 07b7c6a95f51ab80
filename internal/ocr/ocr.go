// Package ocr turns certificate images into raw text.
package ocr

import (
	"context"
	"errors"
)

var ErrNoText = errors.New("ocr returned no text")

// Engine recognizes the text of an encoded image. Implementations may block
// for seconds and must be safe for concurrent use.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, image []byte) (string, error)

func (f EngineFunc) Recognize(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}
