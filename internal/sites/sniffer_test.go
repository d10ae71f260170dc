package sites

import (
	"testing"

	"github.com/chromedp/cdproto/network"
)

func TestIsMediaURL(t *testing.T) {
	tests := []struct {
		url  string
		mime string
		want bool
	}{
		{"https://cdn.example.com/v/clip.mp4", "", true},
		{"https://cdn.example.com/v/clip.MP4?token=abc", "", true},
		{"https://cdn.example.com/hls/master.m3u8?sig=1", "", true},
		{"https://cdn.example.com/stream", "video/mp4", true},
		{"https://cdn.example.com/stream", "application/vnd.apple.mpegurl", true},
		{"https://cdn.example.com/page.html", "text/html", false},
		{"https://cdn.example.com/app.js", "", false},
		{"https://cdn.example.com/clip.mp4.png", "", false},
	}
	for _, tt := range tests {
		if got := isMediaURL(tt.url, tt.mime); got != tt.want {
			t.Errorf("isMediaURL(%q, %q) = %v, want %v", tt.url, tt.mime, got, tt.want)
		}
	}
}

func TestMatchMediaEvent(t *testing.T) {
	// Extension-less stream captured through the response MIME type.
	url, headers, ok := matchMediaEvent(&network.EventResponseReceived{
		Response: &network.Response{
			URL:            "https://cdn.example.com/stream?id=42",
			MimeType:       "video/mp4",
			RequestHeaders: network.Headers{"Referer": "https://example.com/"},
		},
	})
	if !ok || url != "https://cdn.example.com/stream?id=42" {
		t.Fatalf("Expected MIME-typed response matched, got %q ok=%v", url, ok)
	}
	if headers["Referer"] != "https://example.com/" {
		t.Errorf("Expected request headers captured, got %v", headers)
	}

	// Plain request matched on the URL path.
	url, _, ok = matchMediaEvent(&network.EventRequestWillBeSent{
		Request: &network.Request{
			URL:     "https://cdn.example.com/v/clip.mp4",
			Headers: network.Headers{"Cookie": "sid=abc"},
		},
	})
	if !ok || url != "https://cdn.example.com/v/clip.mp4" {
		t.Errorf("Expected media request matched, got %q ok=%v", url, ok)
	}

	// HTML responses and auth walls stay out.
	if _, _, ok := matchMediaEvent(&network.EventResponseReceived{
		Response: &network.Response{URL: "https://example.com/page", MimeType: "text/html"},
	}); ok {
		t.Error("Did not expect HTML response matched")
	}
	if _, _, ok := matchMediaEvent(&network.EventResponseReceived{
		Response: &network.Response{URL: "https://example.com/login/stream", MimeType: "video/mp4"},
	}); ok {
		t.Error("Did not expect login URL matched")
	}
}

func TestIsBlockedURL(t *testing.T) {
	if !isBlockedURL("https://example.com/login/redirect.mp4") {
		t.Error("Expected login URL blocked")
	}
	if !isBlockedURL("https://example.com/Captcha/check.mp4") {
		t.Error("Expected captcha URL blocked")
	}
	if isBlockedURL("https://cdn.example.com/v/clip.mp4") {
		t.Error("Expected plain media URL allowed")
	}
}

func TestCaptureHeaders(t *testing.T) {
	raw := network.Headers{
		"user-agent":    "UA/1.0",
		"Cookie":        "sid=abc",
		"referer":       "https://example.com/",
		"Origin":        "https://example.com",
		"Accept":        "*/*",
		"Authorization": "Bearer nope",
	}
	got := captureHeaders(raw)
	if len(got) != 4 {
		t.Fatalf("Expected 4 headers, got %v", got)
	}
	if got["User-Agent"] != "UA/1.0" || got["Cookie"] != "sid=abc" {
		t.Errorf("Unexpected headers: %v", got)
	}
	if _, ok := got["Accept"]; ok {
		t.Error("Did not expect Accept header captured")
	}
}
