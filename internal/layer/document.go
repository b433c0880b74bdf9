package layer

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/juju/errors"
)

// DataURIPrefix is the header of the URI a browser would have downloaded.
const DataURIPrefix = "data:text/json;charset=utf-8,"

// Document is a layer as returned by the server. The client never interprets
// it beyond checking it is JSON.
type Document struct {
	raw json.RawMessage
}

// Parse wraps raw server output.
func Parse(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Document{}, errors.NotValidf("empty layer document")
	}
	if !json.Valid(trimmed) {
		return Document{}, errors.NotValidf("layer document (malformed JSON)")
	}
	return Document{raw: append(json.RawMessage(nil), trimmed...)}, nil
}

// Raw returns the compact bytes as received.
func (d Document) Raw() json.RawMessage { return d.raw }

// Empty reports whether nothing was parsed into d.
func (d Document) Empty() bool { return len(d.raw) == 0 }

func (d Document) MarshalJSON() ([]byte, error) {
	if d.Empty() {
		return []byte("null"), nil
	}
	return d.raw, nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Pretty renders the document with a two-space indent, keeping key order.
func (d Document) Pretty() ([]byte, error) {
	if d.Empty() {
		return nil, errors.NotValidf("empty layer document")
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, d.raw, "", "  "); err != nil {
		return nil, errors.Annotate(err, "indent layer")
	}
	return buf.Bytes(), nil
}

// DataURI encodes the pretty document the way the plugin page builds its
// download link.
func (d Document) DataURI() (string, error) {
	pretty, err := d.Pretty()
	if err != nil {
		return "", err
	}
	return DataURIPrefix + encodeURIComponent(pretty), nil
}

// Download returns the bytes a browser saves for the DataURI download link.
func (d Document) Download() ([]byte, error) {
	uri, err := d.DataURI()
	if err != nil {
		return nil, err
	}
	return dataURIPayload(uri)
}

// DecodeDataURI reverses DataURI. Base64 payloads are accepted too.
func DecodeDataURI(uri string) (Document, error) {
	data, err := dataURIPayload(uri)
	if err != nil {
		return Document{}, err
	}
	return Parse(data)
}

func dataURIPayload(uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, errors.NotValidf("data URI %.20q", uri)
	}
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.NotValidf("data URI without payload")
	}
	if strings.HasSuffix(header, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, errors.Annotate(err, "decode base64 payload")
		}
		return b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, errors.Annotate(err, "unescape payload")
	}
	return []byte(s), nil
}

// Summary is a best-effort view of the Navigator fields. Unknown shapes give a
// zero Summary.
type Summary struct {
	Name       string
	Version    string
	Domain     string
	Techniques int
}

// Summary reads the name, versions and technique count of the layer.
func (d Document) Summary() Summary {
	var nav struct {
		Name       string            `json:"name"`
		Version    json.RawMessage   `json:"version"`
		Domain     string            `json:"domain"`
		Techniques []json.RawMessage `json:"techniques"`
	}
	if err := json.Unmarshal(d.raw, &nav); err != nil {
		return Summary{}
	}
	version := strings.Trim(string(nav.Version), `"`)
	return Summary{Name: nav.Name, Version: version, Domain: nav.Domain, Techniques: len(nav.Techniques)}
}

// encodeURIComponent escapes everything except A-Z a-z 0-9 - _ . ! ~ * ' ( ).
func encodeURIComponent(b []byte) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(b) * 2)
	for _, c := range b {
		if unreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0f])
	}
	return sb.String()
}

func unreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
