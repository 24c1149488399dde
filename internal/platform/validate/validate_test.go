package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNodeType(t *testing.T) {
	v := New()
	assert.True(t, v.IsNodeType("http-request"))
	assert.True(t, v.IsNodeType("set"))
	assert.False(t, v.IsNodeType("HTTP_Request"))
	assert.False(t, v.IsNodeType("-leading"))
	assert.False(t, v.IsNodeType(""))
}

func TestConfig(t *testing.T) {
	props := []Property{
		{Name: "url", Type: PropertyString, Required: true},
		{Name: "retries", Type: PropertyNumber},
		{Name: "verbose", Type: PropertyBoolean},
		{Name: "mode", Type: PropertySelect, Options: []string{"fast", "safe"}},
		{Name: "headers", Type: PropertyJSON},
	}

	tests := []struct {
		name    string
		config  map[string]any
		wantErr bool
	}{
		{"valid full", map[string]any{
			"url": "https://x", "retries": 3, "verbose": true,
			"mode": "fast", "headers": map[string]any{"a": "b"},
		}, false},
		{"minimal", map[string]any{"url": "https://x"}, false},
		{"missing required", map[string]any{"retries": 3}, true},
		{"unknown key", map[string]any{"url": "x", "bogus": 1}, true},
		{"wrong type", map[string]any{"url": 5}, true},
		{"bad option", map[string]any{"url": "x", "mode": "reckless"}, true},
		{"bad json value", map[string]any{"url": "x", "headers": "nope"}, true},
		{"float number ok", map[string]any{"url": "x", "retries": 2.0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New().Config(props, tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestErrorsJoin(t *testing.T) {
	errs := Errors{
		{Field: "a", Message: "missing", Code: "required"},
		{Field: "b", Message: "bad", Code: "type"},
	}
	assert.True(t, errs.HasErrors())
	assert.Contains(t, errs.Error(), "a: missing")
	assert.Contains(t, errs.Error(), "b: bad")
	assert.False(t, Errors{}.HasErrors())
}
