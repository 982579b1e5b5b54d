package altsource

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
)

// Every entity keeps unknown document fields in an Extra side channel so that
// schema additions survive a load/save cycle without reintroducing a fully
// dynamic model. The helpers below splice Extra back into the flat JSON
// object on marshal and peel it off on unmarshal.

// jsonKeys returns the JSON object keys declared by the struct's tags.
func jsonKeys(v any) []string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			keys = append(keys, name)
		}
	}
	return keys
}

// extraFields decodes data as a raw object and strips the known keys,
// returning whatever remains. Returns nil when nothing is left over.
func extraFields(data []byte, known []string) map[string]json.RawMessage {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// appendExtra splices the extra fields onto an already-marshaled JSON object.
// Keys are emitted in sorted order so output is deterministic.
func appendExtra(obj []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return obj, nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(bytes.TrimSuffix(obj, []byte("}")))
	for _, k := range keys {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		compacted := &bytes.Buffer{}
		if err := json.Compact(compacted, extra[k]); err != nil {
			return nil, err
		}
		buf.Write(compacted.Bytes())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// cloneExtra deep-copies an extra-field map.
func cloneExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
