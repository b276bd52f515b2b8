package detections

const (
	DefaultInputSize     = 640
	DefaultConfThreshold = 0.25
	DefaultIouThreshold  = 0.45
	DefaultMaxDetections = 1000

	// MaxCandidates caps the boxes fed into NMS.
	MaxCandidates = 30000

	// DefaultMaxImagePixels bounds the decoded size of an upload.
	DefaultMaxImagePixels = 50_000_000

	PadValue = 114
)
