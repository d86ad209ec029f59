// Package artifact converts encoded image payloads into immutable named
// binary artifacts and tracks transient display handles for them.
package artifact

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPayload indicates a data URL that cannot be parsed.
var ErrMalformedPayload = errors.New("malformed image payload")

// Artifact is an immutable named image payload. Never mutate after creation;
// derive a new Artifact instead.
type Artifact struct {
	Name string
	MIME string
	Data []byte
}

// FromDataURL parses a data URL (data:<mime>;base64,<body>) into an Artifact.
// Returns ErrMalformedPayload if the payload has no comma separator or no
// parsable MIME segment between ':' and ';'.
func FromDataURL(payload, name string) (*Artifact, error) {
	header, body, ok := strings.Cut(payload, ",")
	if !ok {
		return nil, fmt.Errorf("%w: no comma separator", ErrMalformedPayload)
	}
	colon := strings.Index(header, ":")
	semi := strings.Index(header, ";")
	if colon < 0 || semi < 0 || semi <= colon+1 {
		return nil, fmt.Errorf("%w: no MIME segment in %q", ErrMalformedPayload, header)
	}
	mime := header[colon+1 : semi]
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return &Artifact{Name: name, MIME: mime, Data: data}, nil
}

// DataURL re-encodes the artifact as a data URL.
func (a *Artifact) DataURL() string {
	return "data:" + a.MIME + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// Ext returns the file extension for the artifact's MIME type.
func (a *Artifact) Ext() string {
	switch a.MIME {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
