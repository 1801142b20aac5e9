package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"

	_ "image/jpeg" // register decoders for uploaded bitmaps
)

// ErrDecode marks payloads that cannot be decoded as an image.
var ErrDecode = errors.New("decode image")

// DecodeImage decodes PNG or JPEG bytes into an in-memory bitmap.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// Preprocess flattens the image onto a white background (palette and alpha
// modes trip up a direct grayscale pass) and converts it to a single-channel
// grayscale bitmap, the input shape the recognition engine expects.
func Preprocess(img image.Image) *image.Gray {
	b := img.Bounds()

	flat := image.NewRGBA(b)
	draw.Draw(flat, b, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(flat, b, img, b.Min, draw.Over)

	gray := image.NewGray(b)
	draw.Draw(gray, b, flat, b.Min, draw.Src)
	return gray
}

// EncodePNG serializes a bitmap so it can be handed to the external engine.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
