package utils

import "testing"

func TestNormalizeURL(t *testing.T) {
	normalized, domain, err := NormalizeURL("https://Example.com/path?utm_source=test&x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if domain != "example.com" {
		t.Fatalf("unexpected domain: %s", domain)
	}
	if normalized != "https://example.com/path?x=1" {
		t.Fatalf("unexpected normalized url: %s", normalized)
	}
}

func TestNormalizeURLAddsScheme(t *testing.T) {
	normalized, _, err := NormalizeURL("cdn.example.com/banner.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if normalized != "https://cdn.example.com/banner.png" {
		t.Fatalf("unexpected normalized url: %s", normalized)
	}
	if _, _, err := NormalizeURL("https://"); err == nil {
		t.Fatalf("expected error for empty host")
	}
}

func TestFirstImageURL(t *testing.T) {
	content := "look https://example.com/page and https://cdn.example.com/cat.PNG?size=2"
	if got := FirstImageURL(content); got != "https://cdn.example.com/cat.PNG?size=2" {
		t.Fatalf("unexpected image url: %q", got)
	}
	if got := FirstImageURL("no links here"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
