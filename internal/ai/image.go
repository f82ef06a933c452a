package ai

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/ahmetcoskunkizilkaya/produce-grader/pkg/contract"
)

const defaultImageMIME = "image/jpeg"

// Image is a decoded upload. Base64 holds the payload with any data URI
// header removed, as sent to providers.
type Image struct {
	MIMEType string
	Data     []byte
	Base64   string
}

// DecodeImage accepts raw base64 or a data URI. The MIME type comes from the
// data URI header when present, otherwise it is sniffed from the bytes.
func DecodeImage(s string) (Image, error) {
	hint, _, err := contract.SplitDataURI(s)
	if err != nil {
		return Image{}, err
	}
	data, err := contract.DecodeImagePayload(s)
	if err != nil {
		return Image{}, err
	}
	return Image{
		MIMEType: PickMIME(hint, data),
		Data:     data,
		Base64:   base64.StdEncoding.EncodeToString(data),
	}, nil
}

// DataURI is the self-contained form stored on the report.
func (img Image) DataURI() string {
	return "data:" + img.MIMEType + ";base64," + img.Base64
}

// PickMIME prefers the declared type, then content sniffing. Anything that
// does not sniff as an image is sent as JPEG.
func PickMIME(hint string, data []byte) string {
	if h := strings.ToLower(strings.TrimSpace(hint)); strings.HasPrefix(h, "image/") {
		return h
	}
	if len(data) > 0 {
		if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
			return sniffed
		}
	}
	return defaultImageMIME
}
