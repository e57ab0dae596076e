package estimator

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
)

// Serialize gob-encodes v and returns a base64 string suitable for storage
// as a plain string value in store.Store (spec §9: "cheap to serialize
// round-trip").
func Serialize(v interface{}) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Deserialize decodes a string produced by Serialize into v (a pointer).
func Deserialize(s string, v interface{}) error {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	return gob.NewDecoder(bytes.NewReader(raw)).Decode(v)
}
