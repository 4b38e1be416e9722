// Package appstate reads and writes the shared application-state document,
// a JSON object whose top-level fields are owned by different components.
package appstate

import (
	"bytes"
	"encoding/json"

	"example.com/gymstore/internal/kv"
)

// Doc is the decoded application-state object.
type Doc map[string]json.RawMessage

// Read loads the document at key. Absent or corrupt documents read as empty;
// corrupt reports whether the stored value had to be discarded.
func Read(store kv.Store, key string) (doc Doc, corrupt bool, err error) {
	raw, ok, err := store.Get(key)
	if err != nil {
		return nil, false, err
	}
	doc = Doc{}
	if !ok || len(bytes.TrimSpace(raw)) == 0 {
		return doc, false, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return Doc{}, true, nil
	}
	return doc, false, nil
}

// Decode unmarshals field into v and reports whether it was present and valid.
func (d Doc) Decode(field string, v any) bool {
	raw, ok := d[field]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// Put encodes v into field.
func (d Doc) Put(field string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	d[field] = raw
	return nil
}

// Encode renders the document.
func (d Doc) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// Write stores doc at key.
func Write(store kv.Store, key string, doc Doc) error {
	raw, err := doc.Encode()
	if err != nil {
		return err
	}
	return store.Set(key, raw)
}
