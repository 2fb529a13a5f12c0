package util

import "strconv"

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ParsePage parses a 1-based page number, clamping to 1
func ParsePage(s string) int {
	page := ParseInt(s, 1)
	if page < 1 {
		page = 1
	}
	return page
}
