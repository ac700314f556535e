package answerit

import (
	"encoding/base64"
	"strings"
)

// DecodeImage decodes a base64 image, accepting an optional data URL prefix
// ("data:image/png;base64,") and missing padding.
func DecodeImage(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.Index(encoded, ","); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	encoded = strings.TrimSpace(encoded)
	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	return image, nil
}
