package references

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFenceMarker(t *testing.T) {
	assert.Equal(t, "```", fenceMarker("```go"))
	assert.Equal(t, "````", fenceMarker("````markdown"))
	assert.Equal(t, "~~~", fenceMarker("~~~"))
	assert.Empty(t, fenceMarker("``inline``"))
	assert.Empty(t, fenceMarker("text"))
	assert.Empty(t, fenceMarker(""))
}

func TestClosesFence(t *testing.T) {
	tests := []struct {
		name    string
		trimmed string
		open    string
		want    bool
	}{
		{"same run", "```", "```", true},
		{"longer run", "`````", "````", true},
		{"trailing whitespace", "```  ", "```", true},
		{"shorter run", "```", "````", false},
		{"other character", "~~~", "```", false},
		{"info string", "```go", "```", false},
		{"not a fence", "text", "```", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, closesFence(tt.trimmed, tt.open))
		})
	}
}
