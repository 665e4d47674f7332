package ginutil

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// QueryInt extracts an integer from query parameters with default value
func QueryInt(c *gin.Context, key string, defaultValue int) int {
	return parseInt(c.Query(key), defaultValue)
}

// PostFormInt extracts an integer from form fields with default value
func PostFormInt(c *gin.Context, key string, defaultValue int) int {
	return parseInt(c.PostForm(key), defaultValue)
}

// PostFormInt64 extracts an int64 from form fields with default value
func PostFormInt64(c *gin.Context, key string, defaultValue int64) int64 {
	valueStr := strings.TrimSpace(c.PostForm(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// ParseBool accepts the loose truthy values shortcode-style attributes use
func ParseBool(valueStr string) bool {
	switch strings.ToLower(strings.TrimSpace(valueStr)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// SplitCSV splits a comma separated list, trimming blanks and dropping empties
func SplitCSV(valueStr string) []string {
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitIDs parses a comma separated id list, ignoring anything non-numeric or non-positive
func SplitIDs(valueStr string) []int64 {
	var ids []int64
	seen := make(map[int64]bool)
	for _, part := range SplitCSV(valueStr) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

func parseInt(valueStr string, defaultValue int) int {
	valueStr = strings.TrimSpace(valueStr)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
