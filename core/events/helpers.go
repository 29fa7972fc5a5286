package events

import (
	"strconv"
	"strings"
)

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func formatBool(v bool) string {
	return strconv.FormatBool(v)
}

func normalizeRole(role string) string {
	trimmed := strings.TrimSpace(role)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}
