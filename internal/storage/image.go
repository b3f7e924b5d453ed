package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"

	"campusrx/m/internal/apperr"
)

// MaxDimension bounds the width and height of stored images.
const MaxDimension = 1024

const jpegQuality = 85

// MaxUploadBytes caps the size of an image upload.
const MaxUploadBytes = 8 << 20

var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// processImage sniffs r, accepts JPEG and PNG only, downscales to MaxDimension and re-encodes as JPEG.
func processImage(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, apperr.Newf(apperr.KindValidation, "image exceeds %d bytes", MaxUploadBytes)
	}

	detected := mimetype.Detect(data)
	if !allowedMIME[detected.String()] {
		return nil, apperr.Newf(apperr.KindValidation, "unsupported image format %s (only JPEG and PNG accepted)", detected.String()).
			WithDetails(map[string]string{"content_type": detected.String()})
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "decoding image")
	}
	img = downscale(img, MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// downscale fits img within maxDim on both sides, keeping the aspect ratio.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}

	newW, newH := maxDim, maxDim
	if w > h {
		newH = max(1, h*maxDim/w)
	} else {
		newW = max(1, w*maxDim/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
