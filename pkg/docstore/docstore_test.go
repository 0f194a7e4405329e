package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusString string

func (s statusString) String() string { return string(s) }

func TestMatches(t *testing.T) {
	data := map[string]any{
		"status":   "published",
		"amount":   float64(100),
		"isActive": true,
		"optional": nil,
	}

	tests := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{"no filters", nil, true},
		{"string match", []Filter{{Field: "status", Value: "published"}}, true},
		{"stringer match", []Filter{{Field: "status", Value: statusString("published")}}, true},
		{"string mismatch", []Filter{{Field: "status", Value: "draft"}}, false},
		{"int against float", []Filter{{Field: "amount", Value: 100}}, true},
		{"bool match", []Filter{{Field: "isActive", Value: true}}, true},
		{"missing field", []Filter{{Field: "slug", Value: "x"}}, false},
		{"nil match", []Filter{{Field: "optional", Value: nil}}, true},
		{"all must match", []Filter{{Field: "status", Value: "published"}, {Field: "isActive", Value: false}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(data, tt.filters))
		})
	}
}

func TestCloneData_Deep(t *testing.T) {
	original := map[string]any{
		"address": map[string]any{"city": "Pune"},
		"items":   []any{"rice"},
	}

	clone := CloneData(original)
	clone["address"].(map[string]any)["city"] = "Delhi"
	clone["items"].([]any)[0] = "wheat"

	assert.Equal(t, "Pune", original["address"].(map[string]any)["city"])
	assert.Equal(t, "rice", original["items"].([]any)[0])
}

func TestCloneData_Nil(t *testing.T) {
	assert.NotNil(t, CloneData(nil))
}
