package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildFilterExpr(t *testing.T) {
	tests := []struct {
		name     string
		filter   map[string]string
		expected string
	}{
		{
			name:     "空过滤条件",
			filter:   nil,
			expected: "",
		},
		{
			name:     "单个条件",
			filter:   map[string]string{"source": "notion"},
			expected: `source == "notion"`,
		},
		{
			name:     "多个条件按键排序",
			filter:   map[string]string{"source": "notion", "page_id": "p1"},
			expected: `page_id == "p1" and source == "notion"`,
		},
		{
			name:     "值中的引号被转义",
			filter:   map[string]string{"page_title": `say "hi"`},
			expected: `page_title == "say \"hi\""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildFilterExpr(tt.filter))
		})
	}
}
