package store

import (
	"encoding/json"

	"github.com/shivamksharma/devdonations/pkg/db"
)

// applyPatch merges top-level fields onto an item the same way the document
// store merges them onto a document
func applyPatch[T any](item T, fields db.Fields) (T, error) {
	data, err := toMap(item)
	if err != nil {
		return item, err
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return item, err
	}
	var patch map[string]any
	if err := json.Unmarshal(raw, &patch); err != nil {
		return item, err
	}
	for k, v := range patch {
		data[k] = v
	}

	return fromMap[T](data)
}

// withID returns a copy of item carrying the given identifier
func withID[T any](item T, id string) (T, error) {
	data, err := toMap(item)
	if err != nil {
		return item, err
	}
	data["id"] = id
	return fromMap[T](data)
}

func toMap[T any](item T) (map[string]any, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func fromMap[T any](data map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(data)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}
