package detections

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/find-the-vehicles/detection-service/logger"
	"github.com/find-the-vehicles/detection-service/models"

	ort "github.com/yalue/onnxruntime_go"
)

// namesMetadataKey is where YOLO exporters store the class table.
const namesMetadataKey = "names"

// ModelSession is a loaded ONNX detector. It is immutable after LoadModel and
// may be shared by any number of goroutines.
type ModelSession struct {
	session    *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	inputSize  int
	labels     Labels
	opts       Options
	buffers    *inputBuffers
}

// InitRuntime loads the ONNX Runtime shared library. It must be called once
// before LoadModel.
func InitRuntime(libPath string) error {
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// DestroyRuntime releases the ONNX Runtime environment.
func DestroyRuntime() {
	if err := ort.DestroyEnvironment(); err != nil {
		logger.Warn("destroy onnxruntime environment: %v", err)
	}
}

// LoadModel opens the model artifact, resolves its class table and creates
// the inference session.
func LoadModel(modelPath string, opts Options) (*ModelSession, error) {
	opts = opts.withDefaults()

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("inspect model: %w", err)
	}
	if len(inputs) != 1 || len(outputs) < 1 {
		return nil, fmt.Errorf("model must have one input and at least one output, got %d/%d", len(inputs), len(outputs))
	}
	input, output := inputs[0], outputs[0]

	inputSize, err := resolveInputSize(input.Dimensions, opts.InputSize)
	if err != nil {
		return nil, err
	}
	opts.InputSize = inputSize

	labels, err := loadModelLabels(modelPath, opts.LabelsPath)
	if err != nil {
		return nil, err
	}

	if isStatic(output.Dimensions) {
		if _, err := parseOutputShape(output.Dimensions, labels.Len()); err != nil {
			return nil, err
		}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	if opts.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(opts.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("set intra-op threads: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{input.Name},
		[]string{output.Name},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	logger.Info("Loaded model %s: input %s %v, output %s %v, %d classes",
		modelPath, input.Name, input.Dimensions, output.Name, output.Dimensions, labels.Len())

	return &ModelSession{
		session:    session,
		inputName:  input.Name,
		outputName: output.Name,
		inputSize:  inputSize,
		labels:     labels,
		opts:       opts,
		buffers:    newInputBuffers(inputSize),
	}, nil
}

func (m *ModelSession) Labels() Labels { return m.labels }

func (m *ModelSession) Destroy() {
	if m.session != nil {
		m.session.Destroy()
	}
}

// Predict letterboxes img, runs the model and returns its detections. Each
// call owns its tensors so concurrent calls need no coordination.
func (m *ModelSession) Predict(ctx context.Context, img image.Image, timings *models.ProcessingTimings) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if timings == nil {
		timings = &models.ProcessingTimings{}
	}

	letterboxStart := time.Now()
	canvas, lb := Letterbox(img, m.inputSize)
	timings.Letterbox = time.Since(letterboxStart)

	prepStart := time.Now()
	buf := m.buffers.get()
	defer m.buffers.put(buf)
	FillTensor(canvas, *buf, m.inputSize)

	size := int64(m.inputSize)
	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, size, size), *buf)
	if err != nil {
		return nil, &ProcessingError{Message: "prepare input tensor", Cause: err}
	}
	defer inputTensor.Destroy()
	timings.Preprocess = time.Since(prepStart)

	inferStart := time.Now()
	outputs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, &ProcessingError{Message: "model inference", Cause: err}
	}
	defer outputs[0].Destroy()
	timings.Inference = time.Since(inferStart)

	outputTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, &ProcessingError{Message: "model inference", Cause: errors.New("output is not a float32 tensor")}
	}

	postStart := time.Now()
	dets, err := processPredictions(outputTensor.GetData(), outputTensor.GetShape(), m.labels.Len(), m.opts, lb)
	if err != nil {
		return nil, &ProcessingError{Message: "process predictions", Cause: err}
	}
	timings.Postprocess = time.Since(postStart)

	return dets, nil
}

func loadModelLabels(modelPath, labelsPath string) (Labels, error) {
	if labelsPath != "" {
		return LoadLabels(labelsPath)
	}

	metadata, err := ort.GetModelMetadata(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	defer metadata.Destroy()

	names, ok, err := metadata.LookupCustomMetadataMap(namesMetadataKey)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	if !ok {
		return nil, errors.New("model has no class names in its metadata; set LABELS_PATH")
	}
	return ParseLabels([]byte(names))
}

// resolveInputSize checks the model takes a [1, 3, S, S] image and returns S,
// falling back to the configured size for dynamic dimensions.
func resolveInputSize(dims ort.Shape, configured int) (int, error) {
	if len(dims) != 4 || (dims[1] > 0 && dims[1] != 3) {
		return 0, fmt.Errorf("model input must be [1, 3, H, W], got %v", dims)
	}
	h, w := dims[2], dims[3]
	switch {
	case h > 0 && w > 0 && h != w:
		return 0, fmt.Errorf("model input must be square, got %v", dims)
	case h > 0:
		return int(h), nil
	case w > 0:
		return int(w), nil
	default:
		return configured, nil
	}
}

func isStatic(dims ort.Shape) bool {
	for _, d := range dims {
		if d <= 0 {
			return false
		}
	}
	return len(dims) > 0
}
