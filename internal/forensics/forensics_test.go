package forensics

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicAnalyze(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 30, 20))))

	res, err := NewBasic().Analyze(context.Background(), buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, StatusClean, res.Status)
	assert.False(t, res.IsHighRisk)
	assert.Equal(t, []string{"png image 30x20"}, res.Details)

	res, err = NewBasic().Analyze(context.Background(), []byte("nope"))
	require.NoError(t, err)
	assert.Equal(t, StatusUnreadable, res.Status)
	assert.False(t, res.IsHighRisk)
}
