// Package visual renders evaluation batches as overlay images: the
// ground-truth box and, where the detector fired, the predicted box for
// every region, drawn over the input image.
package visual

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/radeval/internal/geometry"
)

var (
	// TruthColor outlines ground-truth boxes.
	TruthColor = color.NRGBA{G: 200, A: 255}

	// PredictionColor outlines predicted boxes of detected regions.
	PredictionColor = color.NRGBA{R: 220, A: 255}
)

// RenderOverlay draws the per-region boxes over the image and returns an
// NRGBA copy. Ground-truth boxes with zero area are skipped; predicted
// boxes are drawn only for detected regions. A nil image yields nil.
func RenderOverlay(img image.Image, truth, pred []geometry.Box, detected []bool) *image.NRGBA {
	if img == nil {
		return nil
	}
	dst := imaging.Clone(img)

	for r := range truth {
		if truth[r].Area() > 0 {
			drawRect(dst, toRect(truth[r]), TruthColor, 2)
		}
	}
	for r := range pred {
		if r < len(detected) && detected[r] {
			drawRect(dst, toRect(pred[r]), PredictionColor, 1)
		}
	}
	return dst
}

func toRect(b geometry.Box) image.Rectangle {
	return image.Rect(int(b.X0+0.5), int(b.Y0+0.5), int(b.X1+0.5), int(b.Y1+0.5))
}

// drawRect draws an axis-aligned rectangle outline into dst.
func drawRect(dst *image.NRGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := 0; t < thickness; t++ {
		yTop := rect.Min.Y + t
		yBottom := rect.Max.Y - 1 - t
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, yTop, col)
			dst.Set(x, yBottom, col)
		}
		xLeft := rect.Min.X + t
		xRight := rect.Max.X - 1 - t
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(xLeft, y, col)
			dst.Set(xRight, y, col)
		}
	}
}
