package evidence

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Text is a string field that survives a JSON round trip byte for byte.
// Case ids and file names are arbitrary bytes, and encoding/json replaces
// invalid UTF-8 with U+FFFD. Valid UTF-8 encodes as a plain JSON string;
// anything else encodes as {"base64": "..."}.
type Text string

type rawText struct {
	Base64 string `json:"base64"`
}

// MarshalJSON implements json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) {
	if !utf8.ValidString(string(t)) {
		return json.Marshal(rawText{Base64: base64.StdEncoding.EncodeToString([]byte(t))})
	}
	return marshalNoEscape(string(t))
}

// UnmarshalJSON accepts both encodings produced by MarshalJSON.
func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var raw rawText
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decoding text field: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(raw.Base64)
	if err != nil {
		return fmt.Errorf("decoding text field: %w", err)
	}
	*t = Text(data)
	return nil
}

// marshalNoEscape is json.Marshal without HTML escaping and without the
// encoder's trailing newline.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}
