// Package imageproc turns a thumbnail URL into the normalized tensor the
// classifier consumes: download, decode, resize to the model input size and
// scale pixel values to [0, 1].
package imageproc

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"sync"
	"time"

	// Register the decoders for the formats the thumbnail service serves.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"

	"github.com/ugcscan/ugcscan-go/internal/httpclient"
	"github.com/ugcscan/ugcscan-go/internal/logging"
)

var (
	serviceLogger *slog.Logger
	loggerOnce    sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logging.ForService("imageproc")
	})
	return serviceLogger
}

// channels is the color depth of the model input; alpha is discarded.
const channels = 3

// Tensor is a model-ready image: Size×Size RGB float32 values in [0, 1],
// NHWC layout with an implicit batch dimension of 1.
type Tensor struct {
	Data []float32
	Size int
}

// Preprocessor downloads and converts thumbnail images.
type Preprocessor struct {
	http    *httpclient.Client
	size    int
	timeout time.Duration
}

// NewPreprocessor creates a preprocessor producing size×size tensors.
func NewPreprocessor(hc *httpclient.Client, size int, timeout time.Duration) *Preprocessor {
	return &Preprocessor{
		http:    hc,
		size:    size,
		timeout: timeout,
	}
}

// FromURL downloads the image and converts it to a model-ready tensor.
// Any network, status or decode failure is returned to the caller, which is
// expected to skip the item rather than abort the scan.
func (p *Preprocessor) FromURL(ctx context.Context, imageURL string) (*Tensor, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.http.Get(reqCtx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("downloading image: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			getLogger().Warn("failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	img, format, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	getLogger().Debug("image decoded",
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())

	return FromImage(img, p.size), nil
}

// FromImage converts a decoded image into a normalized tensor. The image is
// resized to size×size and the 16-bit color values returned by RGBA() are
// scaled linearly to [0, 1].
func FromImage(img image.Image, size int) *Tensor {
	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)

	data := make([]float32, size*size*channels)
	bounds := resized.Bounds()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			idx := (y*size + x) * channels
			data[idx] = float32(r) / 65535.0
			data[idx+1] = float32(g) / 65535.0
			data[idx+2] = float32(b) / 65535.0
		}
	}

	return &Tensor{Data: data, Size: size}
}
