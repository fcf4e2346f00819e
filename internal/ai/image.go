package ai

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const defaultImageMIME = "image/jpeg"

// ErrEmptyImage is returned when no image payload was supplied.
var ErrEmptyImage = errors.New("image is required")

// Image is a decoded photo ready to be sent inline to a model.
type Image struct {
	MIMEType string
	Data     []byte
}

// ParseImage accepts a data URL ("data:image/png;base64,....") or a bare
// base64 payload. The MIME type comes from the data URL, else it is sniffed
// and falls back to image/jpeg.
func ParseImage(encoded string) (*Image, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrEmptyImage
	}

	mimeType := ""
	payload := encoded
	if header, data, ok := strings.Cut(encoded, ","); ok {
		payload = data
		if strings.HasPrefix(header, "data:") {
			mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
	}

	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, ErrEmptyImage
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
	}

	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = sniffImage(data)
	}

	return &Image{MIMEType: mimeType, Data: data}, nil
}

// DataURL renders the image back to the form browsers hand over.
func (i *Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

func sniffImage(data []byte) string {
	detected := http.DetectContentType(data)
	if strings.HasPrefix(detected, "image/") {
		return detected
	}
	return defaultImageMIME
}
