package media

import (
	"bytes"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"net/http"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	MaxDimension = 2048
	WebPQuality  = 80
	ContentType  = "image/webp"
)

// Normalize validates raw image bytes, bounds them to MaxDimension on the
// longest side and re-encodes them as WebP.
func Normalize(data []byte, maxBytes int64) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrInvalidImage
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, ErrTooLarge
	}

	switch http.DetectContentType(data) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return nil, ErrInvalidImage
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrInvalidImage
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, resizeToFit(decoded, MaxDimension), &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resizeToFit(src image.Image, limit int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= limit && h <= limit {
		return src
	}

	scale := float64(limit) / float64(w)
	if hs := float64(limit) / float64(h); hs < scale {
		scale = hs
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}
