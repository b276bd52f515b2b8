package models

import "time"

// DetectionBox is one labeled box returned by /predict/.
type DetectionBox struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Xmin       float64 `json:"xmin"`
	Ymin       float64 `json:"ymin"`
	Xmax       float64 `json:"xmax"`
	Ymax       float64 `json:"ymax"`
}

// Detection is a raw model detection in the decoded image's pixel space.
type Detection struct {
	BBox       [4]float32 // xmin, ymin, xmax, ymax
	Confidence float32
	ClassIndex int
}

type ProcessingTimings struct {
	RequestID   string
	ImageDecode time.Duration
	Letterbox   time.Duration
	Preprocess  time.Duration
	Inference   time.Duration
	Postprocess time.Duration
	Total       time.Duration
}
