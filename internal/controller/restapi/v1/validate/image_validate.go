package validate

import (
	"strconv"
	"strings"
)

const (
	MaxFileSize int64 = 10 * 1024 * 1024

	DefaultPageSize = 20
	MaxPageSize     = 100

	MaxTags = 50
)

// Page parses zero-based page and size query values, falling back to defaults for empty input.
func Page(pageStr, sizeStr string) (page, size int, ok bool) {
	page, size = 0, DefaultPageSize

	if pageStr != "" {
		n, err := strconv.Atoi(pageStr)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		page = n
	}

	if sizeStr != "" {
		n, err := strconv.Atoi(sizeStr)
		if err != nil || n < 1 || n > MaxPageSize {
			return 0, 0, false
		}
		size = n
	}

	return page, size, true
}

// Tags splits a comma separated query value.
func Tags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	return strings.Split(raw, ",")
}
