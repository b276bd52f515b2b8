package detections

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLabelsMetadataDict(t *testing.T) {
	labels, err := ParseLabels([]byte(`{0: 'car', 1: 'truck', 2: "driver's cab", 3: 'traffic light'}`))
	require.NoError(t, err)

	assert.Equal(t, 4, labels.Len())
	assert.Equal(t, Labels{0: "car", 1: "truck", 2: "driver's cab", 3: "traffic light"}, labels)
}

func TestParseLabelsDataYAML(t *testing.T) {
	list := "train: images/train\nnc: 3\nnames: ['bus', 'car', 'motorcycle']\n"
	labels, err := ParseLabels([]byte(list))
	require.NoError(t, err)
	assert.Equal(t, Labels{0: "bus", 1: "car", 2: "motorcycle"}, labels)

	mapping := "path: ../datasets\nnames:\n  0: bus\n  1: car\n"
	labels, err = ParseLabels([]byte(mapping))
	require.NoError(t, err)
	assert.Equal(t, Labels{0: "bus", 1: "car"}, labels)
}

func TestParseLabelsPlainLines(t *testing.T) {
	labels, err := ParseLabels([]byte("person\nbicycle\n\ncar\n"))
	require.NoError(t, err)
	assert.Equal(t, Labels{0: "person", 1: "bicycle", 2: "car"}, labels)
}

func TestParseLabelsErrors(t *testing.T) {
	_, err := ParseLabels([]byte(""))
	assert.Error(t, err)

	_, err = ParseLabels([]byte("{a: car}"))
	assert.Error(t, err)

	_, err = ParseLabels([]byte("names: []"))
	assert.Error(t, err)
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte("names: [car, van]\n"), 0o644))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, Labels{0: "car", 1: "van"}, labels)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLabelsName(t *testing.T) {
	labels := Labels{0: "car"}

	name, err := labels.Name(0)
	require.NoError(t, err)
	assert.Equal(t, "car", name)

	_, err = labels.Name(7)
	assert.True(t, errors.Is(err, ErrUnknownClass))
}
