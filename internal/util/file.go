package util

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// DecodeDataURI decodes a base64 data URI ("data:image/png;base64,...") or a
// bare base64 string, and sniffs the content type of the payload.
func DecodeDataURI(raw string) ([]byte, string, error) {
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		comma := strings.IndexByte(raw, ',')
		if comma < 0 || !strings.Contains(raw[:comma], ";base64") {
			return nil, "", fmt.Errorf("%w: malformed data uri", ErrInvalidThumbnail)
		}
		payload = raw[comma+1:]
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidThumbnail, err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty payload", ErrInvalidThumbnail)
	}
	return data, http.DetectContentType(data), nil
}

// IsImage 检测是否为图片
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, MimeImage)
}
