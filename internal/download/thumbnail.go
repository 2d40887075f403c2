package download

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // Register PNG decoder

	"github.com/nfnt/resize"
)

const thumbnailSize uint = 300

// GenerateThumbnail takes raw image data, resizes the longer edge down to
// the thumbnail size, and re-encodes it as JPEG. Feed artwork is routinely
// 1400x1400 or larger; the UI never needs more than a small square.
func GenerateThumbnail(imageData []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var resized image.Image
	if img.Bounds().Dy() > img.Bounds().Dx() {
		resized = resize.Resize(0, thumbnailSize, img, resize.Lanczos3)
	} else {
		resized = resize.Resize(thumbnailSize, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	// Quality 75 is a good balance for artwork.
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
