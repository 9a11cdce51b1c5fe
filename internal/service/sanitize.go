package service

import (
	"regexp"
	"strings"
)

var (
	scriptBlockPattern  = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	jsProtocolPattern   = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerPattern = regexp.MustCompile(`(?i)on\w+\s*=`)
)

// SanitizeInput strips script blocks, javascript: URLs and inline event handlers, then trims.
func SanitizeInput(value string) string {
	value = scriptBlockPattern.ReplaceAllString(value, "")
	value = jsProtocolPattern.ReplaceAllString(value, "")
	value = eventHandlerPattern.ReplaceAllString(value, "")
	return strings.TrimSpace(value)
}
