// Package device derives a human-readable device label from the User-Agent
// header for audit events.
package device

import (
	"github.com/mssola/useragent"
)

// ParseUserAgent turns a raw User-Agent string into a short label like
// "Firefox on Linux". Empty input yields "Unknown Device".
func ParseUserAgent(raw string) string {
	if raw == "" {
		return "Unknown Device"
	}
	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	os := ua.OSInfo().Name
	if os == "" {
		os = ua.Platform()
	}
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}
