package oracle

import (
	"encoding/base64"
	"fmt"
	"strings"
)

const defaultImageMIME = "image/jpeg"

// decodeImage splits a self-describing encoded image blob into MIME type and
// raw bytes. Blobs arrive either as data URLs ("data:image/png;base64,...")
// or as bare base64, in which case JPEG is assumed.
func decodeImage(blob string) (string, []byte, error) {
	mime := defaultImageMIME
	payload := blob

	if strings.HasPrefix(blob, "data:") {
		rest := strings.TrimPrefix(blob, "data:")
		semi := strings.Index(rest, ";base64,")
		if semi < 0 {
			return "", nil, fmt.Errorf("unsupported image encoding")
		}
		if declared := rest[:semi]; strings.HasPrefix(declared, "image/") {
			mime = declared
		}
		payload = rest[semi+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode image payload: %w", err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("empty image payload")
	}

	return mime, data, nil
}
