package dataset

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Record is a schema-flexible unit of dataset content.
//
// The conventional fields are pulled out for columnar storage; any other
// top-level keys a producer sends are preserved verbatim in Extra and survive
// the write/read round-trip.
type Record struct {
	ID        string
	Text      string
	Tags      map[string]string
	Embedding []float32
	Extra     map[string]json.RawMessage
}

const (
	fieldID        = "id"
	fieldText      = "text"
	fieldTags      = "tags"
	fieldEmbedding = "embedding"
)

// MarshalJSON flattens the record back into a single JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(r.Extra)+4)
	for k, v := range r.Extra {
		obj[k] = v
	}

	if r.ID != "" {
		raw, err := sonic.Marshal(r.ID)
		if err != nil {
			return nil, err
		}
		obj[fieldID] = raw
	}
	if r.Text != "" {
		raw, err := sonic.Marshal(r.Text)
		if err != nil {
			return nil, err
		}
		obj[fieldText] = raw
	}
	if len(r.Tags) > 0 {
		raw, err := sonic.Marshal(r.Tags)
		if err != nil {
			return nil, err
		}
		obj[fieldTags] = raw
	}
	if r.Embedding != nil {
		raw, err := sonic.Marshal(r.Embedding)
		if err != nil {
			return nil, err
		}
		obj[fieldEmbedding] = raw
	}

	return sonic.Marshal(obj)
}

// UnmarshalJSON splits a free-form JSON object into the conventional fields
// and the Extra remainder.
func (r *Record) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := sonic.Unmarshal(data, &obj); err != nil {
		return err
	}

	*r = Record{}
	for k, v := range obj {
		switch k {
		case fieldID:
			if err := sonic.Unmarshal(v, &r.ID); err != nil {
				return err
			}
		case fieldText:
			if err := sonic.Unmarshal(v, &r.Text); err != nil {
				return err
			}
		case fieldTags:
			if err := sonic.Unmarshal(v, &r.Tags); err != nil {
				return err
			}
		case fieldEmbedding:
			if err := sonic.Unmarshal(v, &r.Embedding); err != nil {
				return err
			}
		default:
			if r.Extra == nil {
				r.Extra = make(map[string]json.RawMessage)
			}
			r.Extra[k] = v
		}
	}
	return nil
}

// payload returns the record without its columnar fields (id, embedding),
// serialized for the document column.
func (r Record) payload() ([]byte, error) {
	doc := r
	doc.ID = ""
	doc.Embedding = nil
	return doc.MarshalJSON()
}
