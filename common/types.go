// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoTextureSource is returned by Decode when a texture has neither data nor a path.
var ErrNoTextureSource = errors.New("texture has neither data nor path")

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the RGBA pixel data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// Valid reports whether the pixel slice matches the declared dimensions.
func (s TextureStagingData) Valid() bool {
	return s.Width > 0 && s.Height > 0 && len(s.Pixels) == int(s.Width*s.Height*4)
}

// SolidTexture returns a 1x1 staging texture of the given colour.
func SolidTexture(r, g, b, a uint8) TextureStagingData {
	return TextureStagingData{Pixels: []byte{r, g, b, a}, Width: 1, Height: 1}
}

// ImportedTexture represents texture data referenced by a level file.
// Either Data holds encoded image bytes or Path names an image on disk.
type ImportedTexture struct {
	// Name is an identifier for this texture (e.g., "albedo", "normal").
	Name string

	// Path is the file path for external textures.
	Path string

	// Data contains encoded image bytes (PNG, JPEG, BMP, TIFF or WebP).
	Data []byte

	// MaxDimension downscales the decoded image so neither side exceeds it. Zero keeps the source size.
	MaxDimension int

	// Width is the texture width in pixels (populated after Decode).
	Width int

	// Height is the texture height in pixels (populated after Decode).
	Height int
}

// Decode decodes the texture to raw RGBA pixel data.
// Uses either embedded Data bytes or loads from Path on disk.
//
// Returns:
//   - TextureStagingData: RGBA pixels with their dimensions
//   - error: error if decoding fails
func (t *ImportedTexture) Decode() (TextureStagingData, error) {
	if t == nil {
		return TextureStagingData{}, fmt.Errorf("texture is nil")
	}

	var img image.Image
	var err error

	switch {
	case len(t.Data) > 0:
		img, _, err = image.Decode(bytes.NewReader(t.Data))
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode embedded image %q: %w", t.Name, err)
		}
	case t.Path != "":
		file, fileErr := os.Open(t.Path)
		if fileErr != nil {
			return TextureStagingData{}, fmt.Errorf("failed to open texture file %s: %w", t.Path, fileErr)
		}
		defer file.Close()

		img, _, err = image.Decode(file)
		if err != nil {
			return TextureStagingData{}, fmt.Errorf("failed to decode texture file %s: %w", t.Path, err)
		}
	default:
		return TextureStagingData{}, ErrNoTextureSource
	}

	bounds := img.Bounds()
	dst := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	if t.MaxDimension > 0 && (dst.Dx() > t.MaxDimension || dst.Dy() > t.MaxDimension) {
		dst = fitWithin(dst, t.MaxDimension)
	}

	rgba := image.NewRGBA(dst)
	if dst.Dx() == bounds.Dx() && dst.Dy() == bounds.Dy() {
		xdraw.Draw(rgba, dst, img, bounds.Min, xdraw.Src)
	} else {
		xdraw.ApproxBiLinear.Scale(rgba, dst, img, bounds, xdraw.Src, nil)
	}

	t.Width = dst.Dx()
	t.Height = dst.Dy()

	return TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(t.Width),
		Height: uint32(t.Height),
	}, nil
}

// fitWithin scales r down so its longest side equals limit, keeping the aspect ratio.
func fitWithin(r image.Rectangle, limit int) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	if w >= h {
		return image.Rect(0, 0, limit, max(1, h*limit/w))
	}
	return image.Rect(0, 0, max(1, w*limit/h), limit)
}
