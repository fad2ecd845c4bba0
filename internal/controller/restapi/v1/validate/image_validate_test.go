package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPage(t *testing.T) {
	tests := []struct {
		name       string
		page, size string
		wantPage   int
		wantSize   int
		wantOK     bool
	}{
		{name: "defaults", wantPage: 0, wantSize: DefaultPageSize, wantOK: true},
		{name: "explicit", page: "3", size: "7", wantPage: 3, wantSize: 7, wantOK: true},
		{name: "negative page", page: "-1"},
		{name: "zero size", size: "0"},
		{name: "size above max", size: "101"},
		{name: "not a number", page: "x"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			page, size, ok := Page(tc.page, tc.size)

			assert.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.Equal(t, tc.wantPage, page)
				assert.Equal(t, tc.wantSize, size)
			}
		})
	}
}

func TestTags(t *testing.T) {
	assert.Nil(t, Tags(""))
	assert.Nil(t, Tags("  "))
	assert.Equal(t, []string{"a", "b", ""}, Tags("a,b,"))
}
