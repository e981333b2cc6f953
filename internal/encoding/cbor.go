package encoding

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeCBOR = "application/cbor"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 16 << 20

// MarshalCBOR encodes data to CBOR format
func MarshalCBOR(v interface{}) ([]byte, error) {
	return cbor.Marshal(v)
}

// UnmarshalCBOR decodes CBOR data. Struct json tags are honored.
func UnmarshalCBOR(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}

// IsCBOR reports whether a Content-Type header names CBOR.
func IsCBOR(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.HasPrefix(strings.TrimSpace(contentType), ContentTypeCBOR)
	}
	return mediaType == ContentTypeCBOR
}

// Decode unmarshals data as CBOR or JSON depending on contentType.
// Anything that is not CBOR is treated as JSON.
func Decode(contentType string, data []byte, v interface{}) error {
	if IsCBOR(contentType) {
		return UnmarshalCBOR(data, v)
	}
	return json.Unmarshal(data, v)
}

// WantsCBOR reports whether an Accept header asks for CBOR and not JSON.
func WantsCBOR(accept string) bool {
	return strings.Contains(accept, ContentTypeCBOR) && !strings.Contains(accept, ContentTypeJSON)
}

// Encode marshals v as CBOR when accept asks for it, JSON otherwise, and
// returns the matching content type.
func Encode(accept string, v interface{}) (string, []byte, error) {
	if WantsCBOR(accept) {
		data, err := MarshalCBOR(v)
		return ContentTypeCBOR, data, err
	}
	data, err := json.Marshal(v)
	return ContentTypeJSON, data, err
}

// ReadResponse reads and decodes a response body by its Content-Type.
func ReadResponse(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	return Decode(resp.Header.Get("Content-Type"), body, v)
}
