package detect

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"sync"

	"github.com/kikiluvv/reframe/internal/crop"
	"github.com/nfnt/resize"
	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"
)

// YOLOOptions configures a YOLO ONNX model
type YOLOOptions struct {
	ModelPath     string
	InputSize     int
	Labels        []string
	MinConfidence float64
	IoUThreshold  float64
}

// letterboxFill is the padding gray used by YOLO training pipelines
var letterboxFill = color.RGBA{R: 114, G: 114, B: 114, A: 255}

var (
	envMu   sync.Mutex
	envRefs int
)

func acquireEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("failed to initialize ONNX runtime: %w", err)
		}
	}
	envRefs++
	return nil
}

func releaseEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()
	if envRefs == 0 {
		return nil
	}
	envRefs--
	if envRefs == 0 {
		return ort.DestroyEnvironment()
	}
	return nil
}

// YOLODetector runs a YOLOv8-style model whose single output has shape
// [1, 4+classes, anchors].
type YOLODetector struct {
	logger  zerolog.Logger
	opts    YOLOOptions
	anchors int
	session *ort.DynamicAdvancedSession
	mu      sync.Mutex
}

// NewYOLODetector loads the model at opts.ModelPath
func NewYOLODetector(logger zerolog.Logger, opts YOLOOptions) (*YOLODetector, error) {
	if _, err := os.Stat(opts.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", opts.ModelPath)
	}
	if opts.InputSize <= 0 || opts.InputSize%32 != 0 {
		return nil, fmt.Errorf("input size must be a positive multiple of 32, got %d", opts.InputSize)
	}
	if len(opts.Labels) == 0 {
		return nil, fmt.Errorf("no class labels for model %s", opts.ModelPath)
	}

	if err := acquireEnvironment(); err != nil {
		return nil, err
	}

	inputNames := []string{"images"}
	outputNames := []string{"output0"}

	sess, err := ort.NewDynamicAdvancedSession(opts.ModelPath, inputNames, outputNames, nil)
	if err != nil {
		releaseEnvironment()
		return nil, fmt.Errorf("failed to create YOLO session: %w", err)
	}

	logger.Info().
		Str("model", opts.ModelPath).
		Int("input_size", opts.InputSize).
		Int("classes", len(opts.Labels)).
		Msg("YOLO model loaded")

	return &YOLODetector{
		logger:  logger.With().Str("detector", "yolo").Logger(),
		opts:    opts,
		anchors: anchorCount(opts.InputSize),
		session: sess,
	}, nil
}

// anchorCount is the number of predictions for strides 8, 16 and 32
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := size / stride
		n += side * side
	}
	return n
}

// Detect runs the model on img and returns boxes in img coordinates
func (d *YOLODetector) Detect(ctx context.Context, img image.Image) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lb := newLetterbox(img, d.opts.InputSize)
	size := int64(d.opts.InputSize)

	input, err := ort.NewTensor(ort.NewShape(1, 3, size, size), lb.pixels())
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	rows := int64(4 + len(d.opts.Labels))
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, rows, int64(d.anchors)))
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	d.mu.Lock()
	err = d.session.Run([]ort.ArbitraryTensor{input}, []ort.ArbitraryTensor{output})
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("YOLO inference failed: %w", err)
	}

	objects := decodePredictions(output.GetData(), d.opts.Labels, d.anchors, d.opts.MinConfidence, lb)
	objects = NonMaxSuppression(objects, d.opts.IoUThreshold)

	d.logger.Debug().Int("objects", len(objects)).Msg("YOLO detection complete")
	return objects, nil
}

// Close releases the session and, for the last detector, the ONNX env
func (d *YOLODetector) Close() error {
	d.logger.Info().Msg("closing YOLO model session")
	if d.session != nil {
		if err := d.session.Destroy(); err != nil {
			return err
		}
		d.session = nil
	}
	return releaseEnvironment()
}

// decodePredictions reads a [1, 4+classes, anchors] tensor laid out row
// major. Each anchor holds cx, cy, w, h then one score per class.
func decodePredictions(data []float32, labels []string, anchors int, minConfidence float64, lb letterbox) []Object {
	if len(data) < (4+len(labels))*anchors {
		return nil
	}

	at := func(row, anchor int) float64 {
		return float64(data[row*anchors+anchor])
	}

	var objects []Object
	for i := 0; i < anchors; i++ {
		best, bestScore := -1, 0.0
		for c := range labels {
			if s := at(4+c, i); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < minConfidence {
			continue
		}

		cx, cy, w, h := at(0, i), at(1, i), at(2, i), at(3, i)
		objects = append(objects, Object{
			Name:       labels[best],
			Confidence: bestScore,
			Box:        lb.toSource(cx-w/2, cy-h/2, w, h),
		})
	}
	return objects
}

// letterbox is a frame scaled to fit a square model input with gray padding
type letterbox struct {
	canvas     *image.RGBA
	scale      float64
	padX, padY float64
	srcW, srcH float64
}

func newLetterbox(img image.Image, size int) letterbox {
	b := img.Bounds()
	srcW, srcH := float64(b.Dx()), float64(b.Dy())
	scale := math.Min(float64(size)/srcW, float64(size)/srcH)

	newW := uint(math.Round(srcW * scale))
	newH := uint(math.Round(srcH * scale))
	resized := resize.Resize(newW, newH, img, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: letterboxFill}, image.Point{}, draw.Src)

	padX := (size - int(newW)) / 2
	padY := (size - int(newH)) / 2
	dst := image.Rect(padX, padY, padX+int(newW), padY+int(newH))
	draw.Draw(canvas, dst, resized, resized.Bounds().Min, draw.Src)

	return letterbox{
		canvas: canvas,
		scale:  scale,
		padX:   float64(padX),
		padY:   float64(padY),
		srcW:   srcW,
		srcH:   srcH,
	}
}

// pixels returns the canvas as float32[3,size,size] scaled to [0, 1]
func (lb letterbox) pixels() []float32 {
	b := lb.canvas.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h
	data := make([]float32, 3*plane)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := lb.canvas.PixOffset(x, y)
			idx := y*w + x
			data[idx] = float32(lb.canvas.Pix[off]) / 255.0
			data[plane+idx] = float32(lb.canvas.Pix[off+1]) / 255.0
			data[2*plane+idx] = float32(lb.canvas.Pix[off+2]) / 255.0
		}
	}
	return data
}

// toSource maps a box in model input space back to the source frame,
// clipped to its bounds.
func (lb letterbox) toSource(x, y, w, h float64) crop.Area {
	x1 := clamp((x-lb.padX)/lb.scale, 0, lb.srcW)
	y1 := clamp((y-lb.padY)/lb.scale, 0, lb.srcH)
	x2 := clamp((x+w-lb.padX)/lb.scale, 0, lb.srcW)
	y2 := clamp((y+h-lb.padY)/lb.scale, 0, lb.srcH)
	return crop.NewArea(x1, y1, x2-x1, y2-y1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
