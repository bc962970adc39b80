package utils

import "encoding/json"

// DecodeFields maps a document field map onto a typed struct through a
// JSON round trip, so the struct's json tags are the single source of
// field naming for both directions.
func DecodeFields(fields map[string]any, dest any) error {
	b, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

// EncodeFields converts a typed struct into a document field map using
// the struct's json tags.
func EncodeFields(src any) (map[string]any, error) {
	b, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
