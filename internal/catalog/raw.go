package catalog

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

// Raw is a loosely typed input record tagged with the collection it came from.
type Raw struct {
	Kind       Kind
	Collection string
	Fields     map[string]any
}

// Model returns the trimmed model identifier. Numeric models such as 300 are
// accepted and rendered without a fraction.
func (r Raw) Model() (string, bool) {
	switch v := r.Fields["model"].(type) {
	case string:
		m := strings.TrimSpace(v)
		return m, m != ""
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	}
	return "", false
}

// Field returns the first present value among the given aliases.
func (r Raw) Field(names ...string) any {
	for _, n := range names {
		if v, ok := r.Fields[n]; ok && v != nil {
			return v
		}
	}
	return nil
}

// String returns the trimmed string value of the first present alias.
func (r Raw) String(names ...string) string {
	switch v := r.Field(names...).(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

// Flag reports whether the first present alias is truthy.
func (r Raw) Flag(names ...string) bool {
	switch v := r.Field(names...).(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1" || s == "yes" || s == "是"
	case json.Number:
		return v.String() != "0"
	case float64:
		return v != 0
	}
	return false
}

// Document is the result of decoding a raw catalog.
type Document struct {
	Records []Raw
	// Skipped counts entries that were not record-shaped or belonged to an
	// unknown collection.
	Skipped int
}

// Decode tags every record of a loosely typed catalog document. ok is false
// when input is not a mapping of collection names to record sequences.
func Decode(input any) (doc Document, ok bool) {
	top, isMap := input.(map[string]any)
	if !isMap {
		return Document{}, false
	}
	names := make([]string, 0, len(top))
	for k := range top {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		kind := KindOf(name)
		items, isSeq := top[name].([]any)
		if !isSeq {
			continue
		}
		for _, it := range items {
			fields, isRec := it.(map[string]any)
			if !isRec || kind == KindUnknown {
				doc.Skipped++
				continue
			}
			doc.Records = append(doc.Records, Raw{Kind: kind, Collection: name, Fields: fields})
		}
	}
	return doc, true
}

// DecodeJSON parses data and calls Decode. Numbers are kept as json.Number so
// large integers survive untouched.
func DecodeJSON(data []byte) (Document, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Document{}, false
	}
	return Decode(v)
}
