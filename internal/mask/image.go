package mask

import (
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// FromImage converts an image to a resolution x resolution mask, using
// luminance as the mask value. The image is resampled to the target
// resolution.
func FromImage(img image.Image, resolution int, worldWidth, sizeScale float64) *Mask {
	dst := image.NewGray16(image.Rect(0, 0, resolution, resolution))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	values := make([]float64, resolution*resolution)
	for z := 0; z < resolution; z++ {
		for x := 0; x < resolution; x++ {
			g := color.Gray16Model.Convert(dst.At(x, z)).(color.Gray16)
			values[z*resolution+x] = float64(g.Y) / 0xffff
		}
	}
	return New(values, resolution, worldWidth, sizeScale)
}

// LoadImage decodes a PNG, BMP or TIFF file into a mask.
func LoadImage(path string, resolution int, worldWidth, sizeScale float64) (*Mask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mask image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode mask image %s: %w", path, err)
	}
	return FromImage(img, resolution, worldWidth, sizeScale), nil
}
