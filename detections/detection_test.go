package detections

import (
	"errors"
	"testing"

	"github.com/find-the-vehicles/detection-service/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBoxesKeepsModelOrder(t *testing.T) {
	labels := Labels{0: "car", 1: "truck"}
	dets := []models.Detection{
		{BBox: [4]float32{1, 2, 3, 4}, Confidence: 0.5, ClassIndex: 1},
		{BBox: [4]float32{10, 20, 30, 40}, Confidence: 0.75, ClassIndex: 0},
	}

	boxes, err := ToBoxes(dets, labels)
	require.NoError(t, err)

	assert.Equal(t, []models.DetectionBox{
		{Label: "truck", Confidence: 0.5, Xmin: 1, Ymin: 2, Xmax: 3, Ymax: 4},
		{Label: "car", Confidence: 0.75, Xmin: 10, Ymin: 20, Xmax: 30, Ymax: 40},
	}, boxes)
}

func TestToBoxesEmpty(t *testing.T) {
	boxes, err := ToBoxes(nil, Labels{0: "car"})
	require.NoError(t, err)
	assert.NotNil(t, boxes)
	assert.Empty(t, boxes)
}

func TestToBoxesUnknownClass(t *testing.T) {
	_, err := ToBoxes([]models.Detection{{ClassIndex: 3}}, Labels{0: "car"})
	assert.True(t, errors.Is(err, ErrUnknownClass))
}

func TestProcessingErrorUnwraps(t *testing.T) {
	err := &ProcessingError{Message: "model inference", Cause: ErrUnsupportedOutput}
	assert.Equal(t, "model inference: "+ErrUnsupportedOutput.Error(), err.Error())
	assert.True(t, errors.Is(err, ErrUnsupportedOutput))
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{IouThreshold: 0.6}.withDefaults()
	assert.Equal(t, DefaultInputSize, opts.InputSize)
	assert.Equal(t, float32(DefaultConfThreshold), opts.ConfThreshold)
	assert.Equal(t, float32(0.6), opts.IouThreshold)
	assert.Equal(t, DefaultMaxDetections, opts.MaxDetections)
}
