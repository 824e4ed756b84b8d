package tracking

import "testing"

func TestClassifyUserAgent(t *testing.T) {
	tests := []struct {
		name    string
		ua      string
		device  string
		browser string
		os      string
	}{
		{
			name:    "android chrome phone",
			ua:      "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36",
			device:  "mobile",
			browser: "Chrome",
			os:      "Android",
		},
		{
			name:    "ipad safari",
			ua:      "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Safari/604.1",
			device:  "tablet",
			browser: "Safari",
			os:      "iOS",
		},
		{
			name:    "windows edge desktop",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0",
			device:  "desktop",
			browser: "Edge",
			os:      "Windows",
		},
		{
			name:    "mac firefox desktop",
			ua:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 14.1; rv:121.0) Gecko/20100101 Firefox/121.0",
			device:  "desktop",
			browser: "Firefox",
			os:      "macOS",
		},
		{
			name:    "empty agent",
			ua:      "",
			device:  "desktop",
			browser: "Other",
			os:      "Other",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			device, browser, os := ClassifyUserAgent(tc.ua)
			if device != tc.device || browser != tc.browser || os != tc.os {
				t.Fatalf("got (%s, %s, %s), want (%s, %s, %s)",
					device, browser, os, tc.device, tc.browser, tc.os)
			}
		})
	}
}
