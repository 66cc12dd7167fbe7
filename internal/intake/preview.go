package intake

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"
)

// Preview bounds; smaller images are not enlarged
const (
	PreviewWidth  = 320
	PreviewHeight = 320
)

// DecodePreview decodes an image and returns a downscaled JPEG data URI for display
func DecodePreview(data []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("image decode failed: %w", err)
	}

	thumb := imaging.Fit(img, PreviewWidth, PreviewHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return "", fmt.Errorf("JPEG encode failed: %w", err)
	}

	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
