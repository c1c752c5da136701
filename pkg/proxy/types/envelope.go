package types

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BodyKind tags the variant held by a ResponseBody.
type BodyKind int

const (
	// BodyOpaque is any body that is not a JSON object. It is never modified.
	BodyOpaque BodyKind = iota

	// BodyObject is a JSON object decoded into its top-level fields.
	BodyObject
)

// ResponseBody is a backend response body. Object bodies keep every
// top-level field verbatim so that edits touch only what they name.
type ResponseBody struct {
	Kind   BodyKind
	Fields map[string]json.RawMessage
	Raw    []byte
}

// ParseResponseBody classifies data. It never fails: anything that does not
// decode as a JSON object becomes an opaque body.
func ParseResponseBody(data []byte) ResponseBody {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ResponseBody{Kind: BodyOpaque, Raw: data}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return ResponseBody{Kind: BodyOpaque, Raw: data}
	}
	return ResponseBody{Kind: BodyObject, Fields: fields, Raw: data}
}

// SetMetadata stores value under key in the body's metadata object,
// creating the object when it is absent or null.
func (b *ResponseBody) SetMetadata(key, value string) error {
	if b.Kind != BodyObject {
		return fmt.Errorf("cannot set metadata on a non-object body")
	}

	meta := map[string]json.RawMessage{}
	if raw, ok := b.Fields["metadata"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return fmt.Errorf("response metadata is not an object: %w", err)
		}
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	meta[key] = encoded

	rawMeta, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	b.Fields["metadata"] = rawMeta
	return nil
}

// Metadata returns the string-valued entries of the metadata object.
func (b ResponseBody) Metadata() map[string]string {
	if b.Kind != BodyObject {
		return nil
	}
	raw, ok := b.Fields["metadata"]
	if !ok {
		return nil
	}

	var meta map[string]json.RawMessage
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		var s string
		if json.Unmarshal(v, &s) == nil {
			out[k] = s
		}
	}
	return out
}

// Bytes serializes the body. Opaque bodies are returned as received.
func (b ResponseBody) Bytes() ([]byte, error) {
	if b.Kind != BodyObject {
		return b.Raw, nil
	}
	return json.Marshal(b.Fields)
}
