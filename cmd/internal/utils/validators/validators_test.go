package validators

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestRules(t *testing.T) {
	validate := validator.New()
	Register(validate)

	tests := []struct {
		name  string
		value any
		tag   string
		ok    bool
	}{
		{"upper ok", "abC", "hasupper", true},
		{"upper missing", "abc", "hasupper", false},
		{"lower missing", "ABC", "haslower", false},
		{"digit ok", "a1", "hasdigit", true},
		{"special ok", "pass!", "hasspecial", true},
		{"special missing", "pass", "hasspecial", false},
		{"spaces", "a b", "nospaces", false},
		{"dupes", []int{1, 2, 1}, "nodupes", false},
		{"no dupes", []int{1, 2, 3}, "nodupes", true},
		{"iso8601 ok", "2025-08-04T09:00:00Z", "iso8601", true},
		{"iso8601 bad", "2025-08-04 09:00", "iso8601", false},
		{"priority ok", "urgent", "priority", true},
		{"priority empty", "", "priority", true},
		{"priority bad", "whenever", "priority", false},
		{"role ok", "moderator", "role", true},
		{"role bad", "root", "role", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Var(tt.value, tt.tag)
			assert.Equal(t, tt.ok, err == nil, "err: %v", err)
		})
	}
}
