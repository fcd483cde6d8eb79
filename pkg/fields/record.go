package fields

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Source is a key/value record whose key spelling is not known ahead of time.
// Keys returns the record's own enumeration order.
type Source interface {
	Lookup(key string) (any, bool)
	Keys() []string
}

// Record is a visitor row as returned by the backend. It remembers the order
// in which keys were first seen so that key scans are deterministic.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a record from alternating key, value pairs.
func NewRecord(kv ...any) Record {
	var r Record
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		r.Set(k, kv[i+1])
	}
	return r
}

func (r Record) Lookup(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Get returns the value for key, or nil if it is absent.
func (r Record) Get(key string) any {
	return r.values[key]
}

// Set adds or replaces a key. A replaced key keeps its original position.
func (r *Record) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

func (r Record) Len() int {
	return len(r.keys)
}

// UnmarshalJSON decodes a JSON object keeping the key order of the payload.
// Numbers are kept as json.Number.
func (r *Record) UnmarshalJSON(b []byte) error {
	*r = Record{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read record key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected record key %v", keyTok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("failed to decode value for %q: %w", key, err)
		}
		r.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("failed to close record: %w", err)
	}
	return nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to encode %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type mapSource map[string]any

// MapSource adapts a plain map. Go maps have no order, so keys are enumerated
// sorted.
func MapSource(m map[string]any) Source {
	return mapSource(m)
}

func (m mapSource) Lookup(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapSource) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// DecodeRecords reads either a JSON array of objects or a stream of
// concatenated JSON objects (one per line, as exported by most tools).
func DecodeRecords(r io.Reader) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode record array: %w", err)
		}
		return records, nil
	}

	var records []Record
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("failed to decode record json: %w", err)
		}
		var rec Record
		if err := rec.UnmarshalJSON(raw); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
