package bitmap

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // decoder only
)

// Format names an image file format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatBMP  Format = "bmp"
	FormatTIFF Format = "tiff"
	FormatWebP Format = "webp"
)

// FormatFromPath guesses the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".jpg", ".jpeg":
		return FormatJPEG, nil
	case ".gif":
		return FormatGIF, nil
	case ".bmp":
		return FormatBMP, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	case ".webp":
		return FormatWebP, nil
	}
	return "", fmt.Errorf("unsupported image file extension %q", filepath.Ext(path))
}

// Decode reads an image in any registered format.
func Decode(r io.Reader) (image.Image, Format, error) {
	img, name, err := image.Decode(r)
	if err != nil {
		return nil, "", err
	}
	b := img.Bounds()
	if err := validateBounds(b.Dx(), b.Dy()); err != nil {
		return nil, "", err
	}
	return img, Format(name), nil
}

// Open decodes the image stored at path.
func Open(path string) (image.Image, Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes img in the given format. Formats without native support for
// the image's mode (e.g. Lab) receive an RGB rendering.
func Encode(w io.Writer, img image.Image, format Format) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, encodable(img))
	case FormatJPEG:
		return jpeg.Encode(w, encodable(img), &jpeg.Options{Quality: 95})
	case FormatGIF:
		return gif.Encode(w, encodable(img), nil)
	case FormatBMP:
		return bmp.Encode(w, encodable(img))
	case FormatTIFF:
		return tiff.Encode(w, encodable(img), &tiff.Options{Compression: tiff.Deflate})
	}
	return fmt.Errorf("cannot encode %s images", format)
}

// Save encodes img to path using the format implied by the extension.
func Save(path string, img image.Image) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func encodable(img image.Image) image.Image {
	switch img.(type) {
	case *Lab, *image.CMYK:
		b := img.Bounds()
		dst := image.NewNRGBA(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.Set(x, y, img.At(x, y))
			}
		}
		return dst
	}
	return img
}
