package detections

import (
	"fmt"
	"sort"

	"github.com/find-the-vehicles/detection-service/models"
)

type outputLayout int

const (
	// layoutAnchorRows is [1, N, 5+nc]: cx, cy, w, h, objectness, class scores.
	layoutAnchorRows outputLayout = iota
	// layoutChannelRows is [1, 4+nc, N]: cx, cy, w, h, class scores.
	layoutChannelRows
)

type outputSpec struct {
	layout     outputLayout
	numBoxes   int
	numClasses int
}

// parseOutputShape works out the layout of a YOLO output tensor. numClasses
// of 0 means the class count is not known in advance.
func parseOutputShape(shape []int64, numClasses int) (outputSpec, error) {
	if len(shape) != 3 || shape[0] != 1 || shape[1] <= 0 || shape[2] <= 0 {
		return outputSpec{}, fmt.Errorf("%w: %v", ErrUnsupportedOutput, shape)
	}
	a, b := int(shape[1]), int(shape[2])

	anchor := outputSpec{layout: layoutAnchorRows, numBoxes: a, numClasses: b - 5}
	channel := outputSpec{layout: layoutChannelRows, numBoxes: b, numClasses: a - 4}

	// YOLO heads emit far more boxes than classes; the class count breaks
	// the tie for small outputs when it is known.
	spec := channel
	if a > b {
		spec = anchor
	}
	if numClasses > 0 {
		switch {
		case spec.numClasses == numClasses:
		case anchor.numClasses == numClasses:
			spec = anchor
		case channel.numClasses == numClasses:
			spec = channel
		}
	}
	if spec.numClasses <= 0 {
		return outputSpec{}, fmt.Errorf("%w: %v", ErrUnsupportedOutput, shape)
	}
	if numClasses > 0 && spec.numClasses != numClasses {
		return outputSpec{}, fmt.Errorf("%w: %v carries %d classes, label table has %d",
			ErrUnsupportedOutput, shape, spec.numClasses, numClasses)
	}
	return spec, nil
}

type candidate struct {
	box   [4]float32
	score float32
	class int
}

// processPredictions turns a raw output tensor into detections in the
// original image's coordinates.
func processPredictions(data []float32, shape []int64, numClasses int, opts Options, lb LetterboxInfo) ([]models.Detection, error) {
	spec, err := parseOutputShape(shape, numClasses)
	if err != nil {
		return nil, err
	}
	stride := spec.numClasses + 4
	if spec.layout == layoutAnchorRows {
		stride++
	}
	if len(data) != spec.numBoxes*stride {
		return nil, fmt.Errorf("unexpected predictions length: got %d, want %d", len(data), spec.numBoxes*stride)
	}

	var candidates []candidate
	switch spec.layout {
	case layoutAnchorRows:
		candidates = anchorRowCandidates(data, spec, opts.ConfThreshold)
	case layoutChannelRows:
		candidates = channelRowCandidates(data, spec, opts.ConfThreshold)
	}

	kept := nonMaxSuppression(candidates, opts.IouThreshold, opts.MaxDetections)

	dets := make([]models.Detection, 0, len(kept))
	for _, c := range kept {
		dets = append(dets, models.Detection{
			BBox:       scaleBox(c.box, lb),
			Confidence: c.score,
			ClassIndex: c.class,
		})
	}
	return dets, nil
}

func anchorRowCandidates(data []float32, spec outputSpec, conf float32) []candidate {
	stride := spec.numClasses + 5
	var out []candidate
	for i := 0; i < spec.numBoxes; i++ {
		row := data[i*stride : (i+1)*stride]
		obj := row[4]
		if obj <= conf {
			continue
		}
		best, bestScore := 0, row[5]*obj
		for k := 1; k < spec.numClasses; k++ {
			if s := row[5+k] * obj; s > bestScore {
				best, bestScore = k, s
			}
		}
		if bestScore > conf {
			out = append(out, candidate{box: xywhToXyxy(row[0], row[1], row[2], row[3]), score: bestScore, class: best})
		}
	}
	return out
}

func channelRowCandidates(data []float32, spec outputSpec, conf float32) []candidate {
	n := spec.numBoxes
	var out []candidate
	for i := 0; i < n; i++ {
		best, bestScore := 0, data[4*n+i]
		for k := 1; k < spec.numClasses; k++ {
			if s := data[(4+k)*n+i]; s > bestScore {
				best, bestScore = k, s
			}
		}
		if bestScore > conf {
			out = append(out, candidate{
				box:   xywhToXyxy(data[i], data[n+i], data[2*n+i], data[3*n+i]),
				score: bestScore,
				class: best,
			})
		}
	}
	return out
}

// nonMaxSuppression keeps the highest scoring box of every overlapping group
// of the same class. The result is ordered by descending score.
func nonMaxSuppression(candidates []candidate, iouThreshold float32, maxDetections int) []candidate {
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}

	kept := make([]candidate, 0, min(len(candidates), maxDetections))
	for _, c := range candidates {
		suppressed := false
		for _, k := range kept {
			if k.class == c.class && calculateIOU(k.box, c.box) > iouThreshold {
				suppressed = true
				break
			}
		}
		if suppressed {
			continue
		}
		kept = append(kept, c)
		if len(kept) == maxDetections {
			break
		}
	}
	return kept
}

func xywhToXyxy(cx, cy, w, h float32) [4]float32 {
	return [4]float32{cx - w/2, cy - h/2, cx + w/2, cy + h/2}
}

// scaleBox maps a box from letterboxed input space back to the source image.
func scaleBox(box [4]float32, lb LetterboxInfo) [4]float32 {
	srcW, srcH := float32(lb.SrcW), float32(lb.SrcH)
	return [4]float32{
		clamp((box[0]-lb.PadX)/lb.Gain, 0, srcW),
		clamp((box[1]-lb.PadY)/lb.Gain, 0, srcH),
		clamp((box[2]-lb.PadX)/lb.Gain, 0, srcW),
		clamp((box[3]-lb.PadY)/lb.Gain, 0, srcH),
	}
}

func calculateIOU(box1, box2 [4]float32) float32 {
	x1 := max(box1[0], box2[0])
	y1 := max(box1[1], box2[1])
	x2 := min(box1[2], box2[2])
	y2 := min(box1[3], box2[3])

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	area1 := (box1[2] - box1[0]) * (box1[3] - box1[1])
	area2 := (box2[2] - box2[0]) * (box2[3] - box2[1])
	union := area1 + area2 - intersection
	if union <= 0 {
		return 0
	}

	return intersection / union
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}
