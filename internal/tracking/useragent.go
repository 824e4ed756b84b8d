package tracking

import "strings"

// ClassifyUserAgent buckets a raw user agent into device, browser and OS.
// Coarse string matching is intentional: the buckets feed promoter-facing
// breakdowns, not security decisions, and unknown agents fall through to
// "desktop"/"Other".
func ClassifyUserAgent(ua string) (device, browser, os string) {
	lower := strings.ToLower(ua)

	switch {
	case strings.Contains(lower, "tablet") || strings.Contains(lower, "ipad"):
		device = "tablet"
	case strings.Contains(lower, "mobile") || strings.Contains(lower, "android") || strings.Contains(lower, "iphone"):
		device = "mobile"
	default:
		device = "desktop"
	}

	// Order matters: Chromium-family agents also advertise "safari".
	switch {
	case strings.Contains(lower, "edg"):
		browser = "Edge"
	case strings.Contains(lower, "opr") || strings.Contains(lower, "opera"):
		browser = "Opera"
	case strings.Contains(lower, "firefox"):
		browser = "Firefox"
	case strings.Contains(lower, "chrome"):
		browser = "Chrome"
	case strings.Contains(lower, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	switch {
	case strings.Contains(lower, "windows"):
		os = "Windows"
	case strings.Contains(lower, "android"):
		os = "Android"
	case strings.Contains(lower, "iphone") || strings.Contains(lower, "ipad") || strings.Contains(lower, "ios"):
		os = "iOS"
	case strings.Contains(lower, "mac"):
		os = "macOS"
	case strings.Contains(lower, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	return device, browser, os
}
