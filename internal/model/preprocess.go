package model

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DecodeBase64 decodes a standard base64 payload. Whitespace and a data URL
// prefix ("data:image/png;base64,") are tolerated.
func DecodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		if i := strings.Index(payload, ","); i >= 0 {
			payload = payload[i+1:]
		}
	}
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		}
		return r
	}, payload)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, decodeErr("decode base64", err)
	}
	return data, nil
}

// PreprocessBase64 is Preprocess over a base64 payload.
func PreprocessBase64(payload string, width, height int) (Tensor, error) {
	data, err := DecodeBase64(payload)
	if err != nil {
		return Tensor{}, err
	}
	return Preprocess(data, width, height)
}

// Preprocess is PreprocessLimit with DefaultMaxPixels.
func Preprocess(data []byte, width, height int) (Tensor, error) {
	return PreprocessLimit(data, width, height, DefaultMaxPixels)
}

// PreprocessLimit decodes an encoded image and converts it to a (1, 3, height,
// width) tensor in channel-major order with samples scaled to [0, 1]. The
// image is stretched to the canvas; aspect ratio is not preserved. Images
// declaring more than maxPixels pixels are rejected before any pixel data is
// decoded; maxPixels <= 0 disables the check.
func PreprocessLimit(data []byte, width, height, maxPixels int) (Tensor, error) {
	if width <= 0 || height <= 0 {
		return Tensor{}, configErr("preprocess", fmt.Errorf("invalid canvas %dx%d", width, height))
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Tensor{}, decodeErr("decode image", err)
	}
	if maxPixels > 0 && int64(header.Width)*int64(header.Height) > int64(maxPixels) {
		return Tensor{}, decodeErr("decode image", fmt.Errorf("image %dx%d exceeds the %d pixel limit",
			header.Width, header.Height, maxPixels))
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Tensor{}, decodeErr("decode image", err)
	}

	resized := resize.Resize(uint(width), uint(height), premultiplied(img), resize.Bicubic)
	canvas := toRGB(resized)

	area := width * height
	inputData := make([]float32, 3*area)
	for y := 0; y < height; y++ {
		row := canvas.Pix[y*canvas.Stride:]
		for x := 0; x < width; x++ {
			p := row[x*4 : x*4+3]
			pixelIndex := y*width + x
			inputData[pixelIndex] = float32(p[0]) / 255.0
			inputData[area+pixelIndex] = float32(p[1]) / 255.0
			inputData[2*area+pixelIndex] = float32(p[2]) / 255.0
		}
	}

	return Tensor{
		Shape: []int64{1, 3, int64(height), int64(width)},
		Data:  inputData,
	}, nil
}

// premultiplied copies img into an alpha-premultiplied RGBA image so the
// resize weights transparent pixels by their coverage.
func premultiplied(img image.Image) *image.RGBA {
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}

// toRGB drops the alpha channel, keeping the straight color values, and
// expands grayscale and paletted images to three channels.
func toRGB(img image.Image) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		c.A = 0xff
		return c
	})
}
