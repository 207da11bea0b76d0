package types

import (
	"encoding/json"
	"sort"
)

// Well-known metadata keys
const (
	KeyTitle       = "title"
	KeyAuthor      = "author"
	KeyAuthors     = "authors"
	KeyDate        = "date"
	KeyLanguage    = "language"
	KeyIdentifier  = "identifier"
	KeyPublisher   = "publisher"
	KeySubject     = "subject"
	KeyDescription = "description"
	KeyRights      = "rights"
)

// Metadata maps field names to values. Well-known keys have typed fields;
// everything else lands in Additional. Setting a key twice keeps the last value.
type Metadata struct {
	Title       string         `json:"title,omitempty"`
	Author      string         `json:"author,omitempty"`
	Authors     []string       `json:"authors,omitempty"`
	Date        string         `json:"date,omitempty"`
	Language    string         `json:"language,omitempty"`
	Identifier  string         `json:"identifier,omitempty"`
	Publisher   string         `json:"publisher,omitempty"`
	Subject     string         `json:"subject,omitempty"`
	Description string         `json:"description,omitempty"`
	Rights      string         `json:"rights,omitempty"`
	Additional  map[string]any `json:"additional,omitempty"`
}

// NewMetadata creates metadata with an empty additional bag
func NewMetadata() Metadata {
	return Metadata{Additional: make(map[string]any)}
}

// Set stores a value under key
func (m *Metadata) Set(key string, value any) {
	switch key {
	case KeyTitle:
		m.Title = toString(value)
	case KeyAuthor:
		m.Author = toString(value)
	case KeyAuthors:
		m.Authors = toStrings(value)
	case KeyDate:
		m.Date = toString(value)
	case KeyLanguage:
		m.Language = toString(value)
	case KeyIdentifier:
		m.Identifier = toString(value)
	case KeyPublisher:
		m.Publisher = toString(value)
	case KeySubject:
		m.Subject = toString(value)
	case KeyDescription:
		m.Description = toString(value)
	case KeyRights:
		m.Rights = toString(value)
	default:
		if m.Additional == nil {
			m.Additional = make(map[string]any)
		}
		m.Additional[key] = value
	}
}

// SetIfNotEmpty stores a string value only when it is non-empty
func (m *Metadata) SetIfNotEmpty(key, value string) {
	if value != "" {
		m.Set(key, value)
	}
}

// Get returns the value stored under key
func (m *Metadata) Get(key string) (any, bool) {
	switch key {
	case KeyTitle:
		return m.Title, m.Title != ""
	case KeyAuthor:
		return m.Author, m.Author != ""
	case KeyAuthors:
		return m.Authors, len(m.Authors) > 0
	case KeyDate:
		return m.Date, m.Date != ""
	case KeyLanguage:
		return m.Language, m.Language != ""
	case KeyIdentifier:
		return m.Identifier, m.Identifier != ""
	case KeyPublisher:
		return m.Publisher, m.Publisher != ""
	case KeySubject:
		return m.Subject, m.Subject != ""
	case KeyDescription:
		return m.Description, m.Description != ""
	case KeyRights:
		return m.Rights, m.Rights != ""
	}
	v, ok := m.Additional[key]
	return v, ok
}

// Keys returns every populated key in sorted order
func (m *Metadata) Keys() []string {
	keys := make([]string, 0, len(m.Additional)+10)
	for _, k := range []string{KeyTitle, KeyAuthor, KeyAuthors, KeyDate, KeyLanguage, KeyIdentifier,
		KeyPublisher, KeySubject, KeyDescription, KeyRights} {
		if _, ok := m.Get(k); ok {
			keys = append(keys, k)
		}
	}
	for k := range m.Additional {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map flattens the metadata into a single map
func (m *Metadata) Map() map[string]any {
	out := make(map[string]any)
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		out[k] = v
	}
	return out
}

// String renders the metadata as compact JSON
func (m *Metadata) String() string {
	data, err := json.Marshal(m.Map())
	if err != nil {
		return "{}"
	}
	return string(data)
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		if len(t) > 0 {
			return t[0]
		}
	case nil:
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, toString(item))
		}
		return out
	}
	return nil
}
