package detections

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/find-the-vehicles/detection-service/models"
)

var (
	ErrEmptyImage        = errors.New("empty image payload")
	ErrDecodeImage       = errors.New("cannot decode image")
	ErrUnknownClass      = errors.New("class index not in label table")
	ErrUnsupportedOutput = errors.New("unsupported model output shape")
)

// Model is a loaded detector. Implementations must be safe for concurrent
// use and must not change after construction.
type Model interface {
	// Predict runs the detector on an RGB image and returns its detections
	// in the order the model emits them.
	Predict(ctx context.Context, img image.Image, timings *models.ProcessingTimings) ([]models.Detection, error)
	// Labels is the class-index to name table shipped with the model.
	Labels() Labels
}

type ProcessingError struct {
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error { return e.Cause }

// Options are the default invocation parameters of the model artifact.
type Options struct {
	InputSize      int
	ConfThreshold  float32
	IouThreshold   float32
	MaxDetections  int
	IntraOpThreads int
	LabelsPath     string
}

func (o Options) withDefaults() Options {
	if o.InputSize <= 0 {
		o.InputSize = DefaultInputSize
	}
	if o.ConfThreshold <= 0 {
		o.ConfThreshold = DefaultConfThreshold
	}
	if o.IouThreshold <= 0 {
		o.IouThreshold = DefaultIouThreshold
	}
	if o.MaxDetections <= 0 {
		o.MaxDetections = DefaultMaxDetections
	}
	return o
}

// ToBoxes resolves class indices and converts raw detections into response
// boxes, keeping their order.
func ToBoxes(dets []models.Detection, labels Labels) ([]models.DetectionBox, error) {
	boxes := make([]models.DetectionBox, 0, len(dets))
	for _, d := range dets {
		label, err := labels.Name(d.ClassIndex)
		if err != nil {
			return nil, err
		}
		boxes = append(boxes, models.DetectionBox{
			Label:      label,
			Confidence: float64(d.Confidence),
			Xmin:       float64(d.BBox[0]),
			Ymin:       float64(d.BBox[1]),
			Xmax:       float64(d.BBox[2]),
			Ymax:       float64(d.BBox[3]),
		})
	}
	return boxes, nil
}
