package detections

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Labels maps class indices to class names.
type Labels map[int]string

func (l Labels) Name(idx int) (string, error) {
	name, ok := l[idx]
	if !ok {
		return "", fmt.Errorf("%w: %d", ErrUnknownClass, idx)
	}
	return name, nil
}

func (l Labels) Len() int { return len(l) }

// ParseLabels reads a class table. Accepted forms are the Python dict literal
// YOLO exporters store in ONNX metadata ({0: 'car', 1: 'truck'}), a YOLO
// data.yaml with a names list or map, a bare YAML list, or one name per line.
func ParseLabels(data []byte) (Labels, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("parse labels: empty document")
	}

	node := root.Content[0]
	if node.Kind == yaml.MappingNode {
		if names := mappingValue(node, "names"); names != nil {
			node = names
		}
	}

	labels := Labels{}
	switch node.Kind {
	case yaml.SequenceNode:
		for i, item := range node.Content {
			labels[i] = item.Value
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			idx, err := strconv.Atoi(node.Content[i].Value)
			if err != nil {
				return nil, fmt.Errorf("parse labels: class index %q is not an integer", node.Content[i].Value)
			}
			labels[idx] = node.Content[i+1].Value
		}
	case yaml.ScalarNode:
		for _, line := range strings.Split(string(data), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				labels[len(labels)] = line
			}
		}
	default:
		return nil, fmt.Errorf("parse labels: unexpected yaml node kind %d", node.Kind)
	}

	if len(labels) == 0 {
		return nil, errors.New("parse labels: no class names found")
	}
	return labels, nil
}

// LoadLabels reads a class table from a file.
func LoadLabels(path string) (Labels, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}
	return ParseLabels(data)
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}
