// Package validate provides configuration validation for node types.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Error represents a single validation failure.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors is a collection of validation failures.
type Errors []Error

func (e Errors) Error() string {
	if len(e) == 0 {
		return ""
	}
	messages := make([]string, len(e))
	for i, err := range e {
		messages[i] = err.Error()
	}
	return strings.Join(messages, "; ")
}

// HasErrors returns true if there are validation errors.
func (e Errors) HasErrors() bool {
	return len(e) > 0
}

// PropertyType enumerates the value types a config property may hold.
type PropertyType string

const (
	PropertyString  PropertyType = "string"
	PropertyNumber  PropertyType = "number"
	PropertyBoolean PropertyType = "boolean"
	PropertyJSON    PropertyType = "json"
	PropertyCode    PropertyType = "code"
	PropertySelect  PropertyType = "select"
)

// Property describes one configuration property of a node type.
type Property struct {
	Name        string
	Type        PropertyType
	Required    bool
	Default     any
	Description string
	Options     []string
}

// Validator checks node configuration against the declared properties. It is
// constructed once at startup and injected into the node registry.
type Validator struct{}

// New creates a validator.
func New() *Validator {
	return &Validator{}
}

// NodeTypeRegex matches registry keys: lowercase kebab-case.
var NodeTypeRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// IsNodeType reports whether s is a well-formed node type key.
func (v *Validator) IsNodeType(s string) bool {
	return NodeTypeRegex.MatchString(s)
}

// Config validates a config map against the property declarations. Unknown
// keys are rejected; required keys must be present; typed keys must hold a
// value of the declared type.
func (v *Validator) Config(props []Property, config map[string]any) error {
	var errs Errors

	byName := make(map[string]Property, len(props))
	for _, p := range props {
		byName[p.Name] = p
	}

	for key := range config {
		if _, ok := byName[key]; !ok {
			errs = append(errs, Error{Field: key, Message: "unknown property", Code: "unknown"})
		}
	}

	for _, p := range props {
		val, present := config[p.Name]
		if !present || val == nil {
			if p.Required {
				errs = append(errs, Error{Field: p.Name, Message: "required property missing", Code: "required"})
			}
			continue
		}
		if err := checkType(p, val); err != nil {
			errs = append(errs, *err)
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func checkType(p Property, val any) *Error {
	switch p.Type {
	case PropertyString, PropertyCode:
		if _, ok := val.(string); !ok {
			return &Error{Field: p.Name, Message: "expected a string", Code: "type"}
		}
	case PropertyNumber:
		switch val.(type) {
		case int, int64, float64:
		default:
			return &Error{Field: p.Name, Message: "expected a number", Code: "type"}
		}
	case PropertyBoolean:
		if _, ok := val.(bool); !ok {
			return &Error{Field: p.Name, Message: "expected a boolean", Code: "type"}
		}
	case PropertySelect:
		s, ok := val.(string)
		if !ok {
			return &Error{Field: p.Name, Message: "expected a string", Code: "type"}
		}
		for _, opt := range p.Options {
			if s == opt {
				return nil
			}
		}
		return &Error{Field: p.Name, Message: fmt.Sprintf("must be one of %s", strings.Join(p.Options, ", ")), Code: "option"}
	case PropertyJSON:
		switch val.(type) {
		case map[string]any, []any:
		default:
			return &Error{Field: p.Name, Message: "expected an object or array", Code: "type"}
		}
	}
	return nil
}
