package detections

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestLetterboxWide(t *testing.T) {
	red := color.NRGBA{R: 255, A: 255}
	canvas, lb := Letterbox(solid(1280, 720, red), 640)

	assert.Equal(t, image.Rect(0, 0, 640, 640), canvas.Bounds())
	assert.InDelta(t, 0.5, lb.Gain, 1e-6)
	assert.InDelta(t, 0, lb.PadX, 1e-6)
	assert.InDelta(t, 140, lb.PadY, 1e-6)
	assert.Equal(t, 1280, lb.SrcW)
	assert.Equal(t, 720, lb.SrcH)

	grey := color.NRGBA{R: PadValue, G: PadValue, B: PadValue, A: 255}
	assert.Equal(t, grey, canvas.NRGBAAt(320, 10))
	assert.Equal(t, grey, canvas.NRGBAAt(320, 630))
	assert.Equal(t, red, canvas.NRGBAAt(320, 320))
	assert.Equal(t, red, canvas.NRGBAAt(0, 140))
}

func TestLetterboxExactSize(t *testing.T) {
	blue := color.NRGBA{B: 255, A: 255}
	canvas, lb := Letterbox(solid(64, 64, blue), 64)

	assert.InDelta(t, 1, lb.Gain, 1e-6)
	assert.Zero(t, lb.PadX)
	assert.Zero(t, lb.PadY)
	assert.Equal(t, blue, canvas.NRGBAAt(0, 0))
	assert.Equal(t, blue, canvas.NRGBAAt(63, 63))
}

func TestLetterboxTall(t *testing.T) {
	_, lb := Letterbox(solid(100, 400, color.NRGBA{A: 255}), 640)

	assert.InDelta(t, 1.6, lb.Gain, 1e-6)
	assert.InDelta(t, 240, lb.PadX, 1e-4)
	assert.Zero(t, lb.PadY)
}

func TestFillTensor(t *testing.T) {
	const size = 5
	img := solid(size, size, color.NRGBA{R: 255, G: 51, B: 0, A: 255})
	img.SetNRGBA(2, 3, color.NRGBA{R: 0, G: 255, B: 102, A: 255})

	dst := make([]float32, 3*size*size)
	FillTensor(img, dst, size)

	channel := size * size
	assert.InDelta(t, 1.0, dst[0], 1e-6)
	assert.InDelta(t, 0.2, dst[channel], 1e-6)
	assert.InDelta(t, 0.0, dst[2*channel], 1e-6)

	i := 3*size + 2
	assert.InDelta(t, 0.0, dst[i], 1e-6)
	assert.InDelta(t, 1.0, dst[channel+i], 1e-6)
	assert.InDelta(t, 0.4, dst[2*channel+i], 1e-6)
}

func TestInputBuffersReuse(t *testing.T) {
	b := newInputBuffers(4)
	buf := b.get()
	require.Len(t, *buf, 3*4*4)
	b.put(buf)
}
