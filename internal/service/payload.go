package service

import (
	"encoding/base64"
	"strings"
)

// DecodeImage turns a base64 string, optionally wrapped in a
// "data:<mime>;base64," envelope, into raw bytes. The envelope's MIME type is
// discarded; the record's content type comes from metadata.
func DecodeImage(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "data:") {
		idx := strings.IndexByte(raw, ',')
		if idx < 0 {
			return nil, &ValidationError{Field: "image", Reason: "data URL has no payload"}
		}
		raw = raw[idx+1:]
	}

	if raw == "" {
		return nil, &ValidationError{Field: "image", Reason: "is required"}
	}

	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(raw, "="))
		if err != nil {
			return nil, &ValidationError{Field: "image", Reason: "is not valid base64"}
		}
	}
	return data, nil
}
