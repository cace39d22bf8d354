package db

import (
	"errors"
	"fmt"
)

// StorageType is the ON clause of FT.CREATE. Documents are always JSON.
type StorageType string

// StorageJSON indexes RedisJSON documents.
const StorageJSON StorageType = "JSON"

// IndexFieldType enumerates supported FT index field types.
type IndexFieldType int

const (
	// IndexFieldNumeric is a numeric field.
	IndexFieldNumeric IndexFieldType = iota
	// IndexFieldTag is a tag field.
	IndexFieldTag
	// IndexFieldText is a text field.
	IndexFieldText
)

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	Name  string // JSONPath for JSON storage
	Alias string // AS alias in FT.CREATE SCHEMA
	Type  IndexFieldType

	TagSeparator string
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// Validate reports every problem with the definition at once.
func (idx *IndexDefinition) Validate() error {
	var errs []error
	switch {
	case idx.Name == "":
		errs = append(errs, errors.New("index name is required"))
	case !IsValidIdentifier(idx.Name):
		errs = append(errs, fmt.Errorf("index name %q contains invalid characters", idx.Name))
	}
	if len(idx.Fields) == 0 {
		errs = append(errs, errors.New("at least one field is required"))
	}

	seen := make(map[string]struct{}, len(idx.Fields))
	for i, f := range idx.Fields {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("field %d: name is required", i))
			continue
		}
		key := f.Name
		if f.Alias != "" {
			key = f.Alias
		}
		if _, dup := seen[key]; dup {
			errs = append(errs, fmt.Errorf("duplicate field %q", key))
		}
		seen[key] = struct{}{}
	}

	return errors.Join(errs...)
}

// IsValidIdentifier returns true if s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		isAlpha := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		isSpecial := r == '_' || r == ':' || r == '-'
		if !isAlpha && !isDigit && !isSpecial {
			return false
		}
	}
	return true
}
