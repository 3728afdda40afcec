// Package classifier wraps the TFLite image classifier: model and label
// loading, inference, and the flagging decision.
package classifier

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"

	tflite "github.com/tphakala/go-tflite"

	"github.com/ugcscan/ugcscan-go/internal/conf"
	"github.com/ugcscan/ugcscan-go/internal/imageproc"
	"github.com/ugcscan/ugcscan-go/internal/logging"
)

var (
	serviceLogger *slog.Logger
	loggerOnce    sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		serviceLogger = logging.ForService("classifier")
	})
	return serviceLogger
}

// Result is the outcome of one inference call: the highest-scoring output
// position, the label at that position and its confidence.
type Result struct {
	Index      int
	Label      string
	Confidence float32
}

// TFLite holds the loaded model and its interpreter. The interpreter buffers
// are allocated once at construction and live for the process lifetime.
type TFLite struct {
	interpreter   *tflite.Interpreter
	model         *tflite.Model
	labels        []string
	positiveLabel string
	threshold     float32
	mu            sync.Mutex
}

// New loads the model artifact and label file and allocates the interpreter.
// The label count must match the model's output width; a mismatch would
// silently misclassify every item, so it refuses to start instead.
func New(settings *conf.ClassifierSettings) (*TFLite, error) {
	labels, err := LoadLabels(settings.LabelPath)
	if err != nil {
		return nil, fmt.Errorf("loading labels: %w", err)
	}

	modelData, err := os.ReadFile(settings.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("reading model file %s: %w", settings.ModelPath, err)
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, fmt.Errorf("cannot load TensorFlow Lite model from %s", settings.ModelPath)
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(determineThreadCount(settings.Threads))
	options.SetErrorReporter(func(msg string, userData any) {
		getLogger().Error("TFLite error", "message", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, fmt.Errorf("cannot create interpreter")
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("tensor allocation failed")
	}

	c := &TFLite{
		interpreter:   interpreter,
		model:         model,
		labels:        labels,
		positiveLabel: settings.PositiveLabel,
		threshold:     float32(settings.Threshold),
	}

	if err := c.validateModelAndLabels(); err != nil {
		c.Close()
		return nil, err
	}

	getLogger().Info("classifier initialized",
		"model", settings.ModelPath,
		"labels", len(labels),
		"positive_label", settings.PositiveLabel,
		"threshold", settings.Threshold)
	return c, nil
}

// validateModelAndLabels checks that the label file is index-aligned with the
// model's output layer.
func (c *TFLite) validateModelAndLabels() error {
	output := c.interpreter.GetOutputTensor(0)
	if output == nil {
		return fmt.Errorf("cannot get model output tensor")
	}
	outputWidth := output.Dim(output.NumDims() - 1)
	if outputWidth != len(c.labels) {
		return fmt.Errorf("label count mismatch: model outputs %d classes, label file has %d",
			outputWidth, len(c.labels))
	}
	for _, label := range c.labels {
		if label == c.positiveLabel {
			return nil
		}
	}
	return fmt.Errorf("positive label %q not present in label file", c.positiveLabel)
}

// Labels returns the loaded label set, index-aligned with the model output.
func (c *TFLite) Labels() []string {
	return c.labels
}

// Classify runs one forward pass over the tensor and returns the top result.
// Calls are serialized; the scan is strictly sequential and the interpreter
// buffers are shared state.
func (c *TFLite) Classify(t *imageproc.Tensor) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	input := c.interpreter.GetInputTensor(0)
	if input == nil {
		return Result{}, fmt.Errorf("cannot get input tensor")
	}
	if len(input.Float32s()) != len(t.Data) {
		return Result{}, fmt.Errorf("input size mismatch: model expects %d values, tensor has %d",
			len(input.Float32s()), len(t.Data))
	}
	copy(input.Float32s(), t.Data)

	if status := c.interpreter.Invoke(); status != tflite.OK {
		return Result{}, fmt.Errorf("tensor invoke failed: %v", status)
	}

	scores := extractScores(c.interpreter.GetOutputTensor(0))
	idx, confidence := argmax(scores)
	return Result{
		Index:      idx,
		Label:      c.labels[idx],
		Confidence: confidence,
	}, nil
}

// IsPositive reports whether the result meets the flagging rule: the
// predicted label is the positive label and the confidence is strictly above
// the threshold.
func (c *TFLite) IsPositive(r Result) bool {
	return Decide(r, c.positiveLabel, c.threshold)
}

// Decide applies the flagging rule to a result. A confidence exactly equal to
// the threshold is negative.
func Decide(r Result, positiveLabel string, threshold float32) bool {
	return r.Label == positiveLabel && r.Confidence > threshold
}

// Close releases the interpreter and model. Only needed on startup failure or
// orderly shutdown; the classifier otherwise lives for the process lifetime.
func (c *TFLite) Close() {
	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
}

// extractScores copies the scores out of the output tensor.
func extractScores(tensor *tflite.Tensor) []float32 {
	size := tensor.Dim(tensor.NumDims() - 1)
	scores := make([]float32, size)
	copy(scores, tensor.Float32s())
	return scores
}

// argmax returns the index and value of the highest score.
func argmax(scores []float32) (int, float32) {
	maxIdx := 0
	maxVal := scores[0]
	for i, v := range scores {
		if v > maxVal {
			maxIdx = i
			maxVal = v
		}
	}
	return maxIdx, maxVal
}

// determineThreadCount clamps the configured interpreter thread count to the
// system CPU count; 0 means use all CPUs.
func determineThreadCount(configured int) int {
	cpus := runtime.NumCPU()
	if configured <= 0 || configured > cpus {
		return cpus
	}
	return configured
}
