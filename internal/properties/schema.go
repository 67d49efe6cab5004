// Package properties maps extracted brief data onto the typed fields of a
// structured record.
package properties

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"slices"
	"strings"
	"time"
)

type FieldType string

const (
	TypeTitle       FieldType = "title"
	TypeRichText    FieldType = "rich_text"
	TypeNumber      FieldType = "number"
	TypeSelect      FieldType = "select"
	TypeMultiSelect FieldType = "multi_select"
	TypeDate        FieldType = "date"
	TypeCheckbox    FieldType = "checkbox"
	TypeURL         FieldType = "url"
	TypeEmail       FieldType = "email"
	TypePeople      FieldType = "people"
)

func (t FieldType) valid() bool {
	switch t {
	case TypeTitle, TypeRichText, TypeNumber, TypeSelect, TypeMultiSelect,
		TypeDate, TypeCheckbox, TypeURL, TypeEmail, TypePeople:
		return true
	}
	return false
}

// Field is one declared record property. Options constrain select and
// multi_select values when present.
type Field struct {
	Name    string    `json:"name"`
	Type    FieldType `json:"type"`
	Options []string  `json:"options,omitempty"`
}

// Schema is the ordered list of record properties.
type Schema []Field

// ParseSchema decodes a stored schema and rejects unknown field types.
func ParseSchema(raw []byte) (Schema, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	for _, f := range s {
		if strings.TrimSpace(f.Name) == "" {
			return nil, errors.New("schema field without a name")
		}
		if !f.Type.valid() {
			return nil, fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
		}
	}
	return s, nil
}

func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

var ErrValidation = errors.New("property validation failed")

// Problem is one field that failed validation.
type Problem struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every problem found. It matches ErrValidation.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + ": " + p.Reason
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Validate checks props against the declared field types. Fields are
// optional except the title, which must be present when the schema has one.
func Validate(schema Schema, props map[string]any) error {
	var problems []Problem

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	// Report in schema order, unknown names last.
	seen := map[string]bool{}
	for _, f := range schema {
		v, ok := props[f.Name]
		seen[f.Name] = true
		if !ok {
			if f.Type == TypeTitle {
				problems = append(problems, Problem{Field: f.Name, Reason: "title is required"})
			}
			continue
		}
		if reason := checkValue(f, v); reason != "" {
			problems = append(problems, Problem{Field: f.Name, Reason: reason})
		}
	}
	slices.Sort(names)
	for _, name := range names {
		if !seen[name] {
			problems = append(problems, Problem{Field: name, Reason: "not a field in the schema"})
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func checkValue(f Field, v any) string {
	switch f.Type {
	case TypeTitle:
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return "must be non-empty text"
		}
	case TypeRichText:
		if _, ok := v.(string); !ok {
			return "must be text"
		}
	case TypeNumber:
		switch v.(type) {
		case float64, float32, int, int64:
		default:
			return "must be a number"
		}
	case TypeSelect:
		s, ok := v.(string)
		if !ok || s == "" {
			return "must be one option"
		}
		if !allowed(f.Options, s) {
			return fmt.Sprintf("%q is not one of %s", s, strings.Join(f.Options, ", "))
		}
	case TypeMultiSelect:
		items, ok := stringList(v)
		if !ok {
			return "must be a list of options"
		}
		for _, s := range items {
			if !allowed(f.Options, s) {
				return fmt.Sprintf("%q is not one of %s", s, strings.Join(f.Options, ", "))
			}
		}
	case TypeDate:
		s, ok := v.(string)
		if !ok {
			return "must be a date string"
		}
		if _, err := time.Parse(time.DateOnly, s); err != nil {
			if _, err := time.Parse(time.RFC3339, s); err != nil {
				return "must be YYYY-MM-DD"
			}
		}
	case TypeCheckbox:
		if _, ok := v.(bool); !ok {
			return "must be true or false"
		}
	case TypeURL:
		s, _ := v.(string)
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "must be an http(s) URL"
		}
	case TypeEmail:
		s, _ := v.(string)
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != strings.TrimSpace(s) {
			return "must be an email address"
		}
	case TypePeople:
		items, ok := stringList(v)
		if !ok || len(items) == 0 {
			return "must be a list of people"
		}
		for _, s := range items {
			if strings.TrimSpace(s) == "" {
				return "must not contain empty names"
			}
		}
	}
	return ""
}

func allowed(options []string, s string) bool {
	if len(options) == 0 {
		return true
	}
	for _, o := range options {
		if o == s {
			return true
		}
	}
	return false
}

func stringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}
