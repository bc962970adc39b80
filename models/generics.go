package models

import (
	"bitbucket.org/mmdatafocus/crm_backend/docstore"
	"bitbucket.org/mmdatafocus/crm_backend/utils"
)

// DecodeDocument maps a raw document onto a typed entity. The document
// id is merged into the field map under "id" so every entity struct can
// carry it without the backend storing it twice.
func DecodeDocument[T any](doc docstore.Document) (T, error) {
	var out T
	fields := make(map[string]any, len(doc.Fields)+1)
	for k, v := range doc.Fields {
		fields[k] = v
	}
	fields["id"] = doc.ID
	err := utils.DecodeFields(fields, &out)
	return out, err
}

// DecodeAll decodes a full collection snapshot, preserving delivery
// order. A document that fails to decode aborts the whole batch; a
// mirrored snapshot is either fully typed or not used.
func DecodeAll[T any](docs []docstore.Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := DecodeDocument[T](d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
