/*
SPDX-License-Identifier: Apache-2.0

Copyright 2024 The Tabula Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package records defines the Record type: an ordered, immutable mapping from
// field name to a scalar value.
//
// Values are one of nil, string, float64 or bool. Every Go numeric type is
// normalized to float64 on the way in, so two records built from int and
// float64 inputs compare equal field by field. An absent field is distinct
// from a field holding nil.
package records

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nyneos/tabula/core/orderedmap"
)

// Value is a scalar field value: nil, string, float64 or bool.
type Value = any

// Field is a single key/value pair used to build records.
type Field struct {
	Key   string
	Value Value
}

// F is shorthand for constructing a Field.
func F(key string, value Value) Field {
	return Field{Key: key, Value: value}
}

// Record is an ordered field bag. The zero value is an empty record.
// Records are never mutated after construction.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// New builds a record from fields in order. A repeated key keeps its first
// position and its last value.
func New(fields ...Field) Record {
	om := orderedmap.WithCapacity[string, Value](len(fields))
	for _, f := range fields {
		om.Set(f.Key, Normalize(f.Value))
	}
	return Record{fields: om}
}

// FromMap builds a record from a map using keys for field order. Keys absent
// from m are skipped; map entries not named in keys are dropped.
func FromMap(keys []string, m map[string]Value) Record {
	om := orderedmap.WithCapacity[string, Value](len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			om.Set(k, Normalize(v))
		}
	}
	return Record{fields: om}
}

// Get returns the value of a field and whether it is present.
func (r Record) Get(key string) (Value, bool) {
	return r.fields.Get(key)
}

// Value returns the value of a field, or nil when absent.
func (r Record) Value(key string) Value {
	v, _ := r.fields.Get(key)
	return v
}

// Has reports whether the field is present.
func (r Record) Has(key string) bool {
	return r.fields.Has(key)
}

// Keys returns the field names in order.
func (r Record) Keys() []string {
	return r.fields.Keys()
}

// Len returns the number of fields.
func (r Record) Len() int {
	return r.fields.Len()
}

// IsEmpty reports whether the record has no fields.
func (r Record) IsEmpty() bool {
	return r.fields.Len() == 0
}

// Range iterates fields in order until f returns false.
func (r Record) Range(f func(key string, value Value) bool) {
	r.fields.Range(f)
}

// With returns a copy of r with key set to value. New keys are appended.
func (r Record) With(key string, value Value) Record {
	om := r.fields.Clone()
	om.Set(key, Normalize(value))
	return Record{fields: om}
}

// Merge returns a copy of r with every field of other applied on top.
func (r Record) Merge(other Record) Record {
	om := r.fields.Clone()
	other.fields.Range(func(k string, v Value) bool {
		om.Set(k, v)
		return true
	})
	return Record{fields: om}
}

// Map returns the fields as a plain map.
func (r Record) Map() map[string]Value {
	m := make(map[string]Value, r.Len())
	r.Range(func(k string, v Value) bool {
		m[k] = v
		return true
	})
	return m
}

// ID returns the string form of the id field, or "" when absent or blank.
func (r Record) ID(idField string) string {
	v, ok := r.Get(idField)
	if !ok || v == nil {
		return ""
	}
	return Format(v)
}

// Equal reports whether two records hold the same fields with strictly
// equal values. Field order is ignored.
func (r Record) Equal(other Record) bool {
	if r.Len() != other.Len() {
		return false
	}
	equal := true
	r.Range(func(k string, v Value) bool {
		ov, ok := other.Get(k)
		if !ok || !StrictEqual(v, ov) {
			equal = false
			return false
		}
		return true
	})
	return equal
}

// String renders the record as JSON for logs and test failures.
func (r Record) String() string {
	b, err := r.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<record: %v>", err)
	}
	return string(b)
}

// MarshalJSON encodes the record as a JSON object preserving field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	var err error
	i := 0
	r.Range(func(k string, v Value) bool {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		var kb, vb []byte
		if kb, err = json.Marshal(k); err != nil {
			return false
		}
		if vb, err = json.Marshal(v); err != nil {
			return false
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
		return true
	})
	if err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving field order. Nested objects
// and arrays are kept as their raw JSON text since records hold scalars only.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = Record{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", tok)
	}
	om := orderedmap.New[string, Value]()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected record key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			om.Set(key, string(trimmed))
			continue
		}
		var v any
		if err := json.Unmarshal(trimmed, &v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		om.Set(key, Normalize(v))
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	r.fields = om
	return nil
}
