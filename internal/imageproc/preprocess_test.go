package imageproc

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ugcscan/ugcscan-go/internal/httpclient"
)

const testImageURL = "https://cdn.example.com/thumb.png"

func newTestPreprocessor(t *testing.T, size int) *Preprocessor {
	t.Helper()
	hc := httpclient.New(nil)
	httpmock.ActivateNonDefault(hc.StdClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	return NewPreprocessor(hc, size, 5*time.Second)
}

// solidPNG encodes a uniform-color image.
func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFromURL_Success(t *testing.T) {
	p := newTestPreprocessor(t, 8)

	httpmock.RegisterResponder(http.MethodGet, testImageURL,
		httpmock.NewBytesResponder(http.StatusOK, solidPNG(t, 32, 16, color.White)))

	tensor, err := p.FromURL(context.Background(), testImageURL)

	require.NoError(t, err)
	assert.Equal(t, 8, tensor.Size)
	assert.Len(t, tensor.Data, 8*8*3)
	for _, v := range tensor.Data {
		assert.InDelta(t, 1.0, v, 0.01)
	}
}

func TestFromURL_HTTPError(t *testing.T) {
	p := newTestPreprocessor(t, 8)

	httpmock.RegisterResponder(http.MethodGet, testImageURL,
		httpmock.NewStringResponder(http.StatusNotFound, "not found"))

	tensor, err := p.FromURL(context.Background(), testImageURL)

	require.Error(t, err)
	assert.Nil(t, tensor)
}

func TestFromURL_CorruptImage(t *testing.T) {
	p := newTestPreprocessor(t, 8)

	httpmock.RegisterResponder(http.MethodGet, testImageURL,
		httpmock.NewStringResponder(http.StatusOK, "definitely not an image"))

	tensor, err := p.FromURL(context.Background(), testImageURL)

	require.Error(t, err)
	assert.Nil(t, tensor)
}

func TestFromImage_NormalizesToUnitRange(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 128, A: 255})
		}
	}

	tensor := FromImage(img, 4)

	require.Len(t, tensor.Data, 4*4*3)
	// First pixel, RGB interleaved.
	assert.InDelta(t, 1.0, tensor.Data[0], 0.01)
	assert.InDelta(t, 0.0, tensor.Data[1], 0.01)
	assert.InDelta(t, 0.5, tensor.Data[2], 0.01)
}

func TestFromImage_DiscardsAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}

	tensor := FromImage(img, 2)

	require.Len(t, tensor.Data, 2*2*3)
	for _, v := range tensor.Data {
		assert.InDelta(t, 1.0, v, 0.01)
	}
}

func TestFromImage_ResizesToTarget(t *testing.T) {
	tensor := FromImage(image.NewRGBA(image.Rect(0, 0, 420, 420)), 224)

	assert.Equal(t, 224, tensor.Size)
	assert.Len(t, tensor.Data, 224*224*3)
}
