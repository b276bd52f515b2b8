package detections

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"
)

// LetterboxInfo records how an image was fitted into the square model input,
// so boxes can be mapped back to the original pixels.
type LetterboxInfo struct {
	Gain       float32
	PadX, PadY float32
	SrcW, SrcH int
	InputSize  int
}

// Letterbox scales img to fit a size x size canvas keeping its aspect ratio
// and centres it on a grey background.
func Letterbox(img image.Image, size int) (*image.NRGBA, LetterboxInfo) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	gain := math.Min(float64(size)/float64(w), float64(size)/float64(h))

	newW := int(math.Round(float64(w) * gain))
	newH := int(math.Round(float64(h) * gain))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	dw := float64(size-newW) / 2
	dh := float64(size-newH) / 2
	left := int(math.Round(dw - 0.1))
	top := int(math.Round(dh - 0.1))

	resized := img
	if newW != w || newH != h {
		resized = imaging.Resize(img, newW, newH, imaging.Linear)
	}

	canvas := imaging.New(size, size, color.NRGBA{R: PadValue, G: PadValue, B: PadValue, A: 0xff})
	canvas = imaging.Paste(canvas, resized, image.Pt(left, top))

	return canvas, LetterboxInfo{
		Gain:      float32(gain),
		PadX:      float32(dw),
		PadY:      float32(dh),
		SrcW:      w,
		SrcH:      h,
		InputSize: size,
	}
}

// FillTensor writes img into dst as planar RGB scaled to [0, 1]. img must be
// size x size and dst must hold 3*size*size values.
func FillTensor(img *image.NRGBA, dst []float32, size int) {
	channelSize := size * size
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > size {
		numWorkers = size
	}
	rowsPerWorker := size / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		startRow := w * rowsPerWorker
		endRow := (w + 1) * rowsPerWorker
		if w == numWorkers-1 {
			endRow = size
		}

		go func(start, end int) {
			defer wg.Done()
			for y := start; y < end; y++ {
				src := img.Pix[y*img.Stride:]
				offset := y * size
				for x := 0; x < size; x++ {
					i := offset + x
					p := x * 4
					dst[i] = float32(src[p]) / 255.0
					dst[channelSize+i] = float32(src[p+1]) / 255.0
					dst[channelSize*2+i] = float32(src[p+2]) / 255.0
				}
			}
		}(startRow, endRow)
	}

	wg.Wait()
}

// inputBuffers recycles tensor backing slices between requests.
type inputBuffers struct {
	size int
	pool sync.Pool
}

func newInputBuffers(size int) *inputBuffers {
	b := &inputBuffers{size: size}
	b.pool.New = func() interface{} {
		buf := make([]float32, 3*size*size)
		return &buf
	}
	return b
}

func (b *inputBuffers) get() *[]float32 { return b.pool.Get().(*[]float32) }
func (b *inputBuffers) put(buf *[]float32) { b.pool.Put(buf) }
