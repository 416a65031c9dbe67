package imm

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// NewTextureFromImage uploads img as a linear-filtered RGBA8 texture.
// Images that are not *image.NRGBA are converted first.
func NewTextureFromImage(b Backend, img image.Image) (TextureID, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return NoTexture, fmt.Errorf("imm: empty image %v", bounds)
	}
	nrgba, ok := img.(*image.NRGBA)
	if !ok || nrgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		nrgba = image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	}
	pix := nrgba.Pix[:4*bounds.Dx()*bounds.Dy()]
	tex, err := b.NewTexture(TextureDesc{Width: bounds.Dx(), Height: bounds.Dy()}, pix)
	if err != nil {
		return NoTexture, fmt.Errorf("imm: upload image texture: %w", err)
	}
	return tex, nil
}

// NewTextureFromImageScaled uploads img resampled to width x height with
// Catmull-Rom filtering, for sources that exceed the device limits.
func NewTextureFromImageScaled(b Backend, img image.Image, width, height int) (TextureID, error) {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return NewTextureFromImage(b, dst)
}
