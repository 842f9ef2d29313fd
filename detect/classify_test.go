package detect

import (
	"strings"
	"testing"
)

func TestClassify_PerAttackType(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want AttackType
	}{
		{"command injection", "/run?cmd=;cat%20/etc/passwd", CommandInjection},
		{"command substitution", "/run?cmd=$(whoami)", CommandInjection},
		{"xxe entity", `/xml?d=<!DOCTYPE foo [<!ENTITY xxe SYSTEM "file:///etc/passwd">]>`, XXE},
		{"file inclusion wrapper", "/inc?page=php://filter/convert.base64-encode/resource=index", FileInclusion},
		{"file inclusion deep traversal", "/inc?page=../../../etc/passwd", FileInclusion},
		{"ssrf metadata endpoint", "/fetch?url=http://169.254.169.254/latest/meta-data/", SSRF},
		{"ssrf loopback", "/fetch?url=http://127.0.0.1:8080/admin", SSRF},
		{"xss script tag", "/search?q=<script>alert(1)</script>", CrossSiteScripting},
		{"xss event handler", "/search?q=<img src=x onerror=alert(1)>", CrossSiteScripting},
		{"sqli tautology", "/a?id=1' OR '1'='1", SQLInjection},
		{"sqli comment", "/login.php?user=admin' --", SQLInjection},
		{"sqli union", "/items?sort=1 UNION SELECT username,password FROM users", SQLInjection},
		{"ldap filter", "/bind?filter=(%26(uid=*))", LDAPInjection},
		{"directory traversal", "/b?file=../../etc/passwd", DirectoryTraversal},
		{"path traversal single hop", "/file?path=..%2fconfig.yml", PathTraversal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Classify(tt.url)
			if !ok {
				t.Fatalf("Classify(%q): no detection, want %s", tt.url, tt.want)
			}
			if res.Type != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.url, res.Type, tt.want)
			}
			if res.Confidence <= 0 || res.Confidence > 100 {
				t.Errorf("confidence %d out of range", res.Confidence)
			}
		})
	}
}

func TestClassify_Benign(t *testing.T) {
	for _, url := range []string{
		"/c?name=ok",
		"/index.html",
		"/api/items?page=2&sort=name",
		"https://example.com/products/42",
	} {
		if res, ok := Classify(url); ok {
			t.Errorf("Classify(%q) = %s, want no detection", url, res.Type)
		}
	}
}

func TestClassify_EmptyURL(t *testing.T) {
	for _, url := range []string{"", "   ", "\t\n"} {
		if _, ok := Classify(url); ok {
			t.Errorf("Classify(%q): expected no detection", url)
		}
	}
}

// Priority determinism: when a URL textually matches several signatures,
// the lowest priority rank always wins, regardless of which patterns
// also matched.
func TestClassify_PriorityWins(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want AttackType
	}{
		// Shell command plus /etc/passwd: Command Injection beats traversal.
		{"cmd over traversal", "/x?c=;cat /etc/passwd", CommandInjection},
		// Script tag plus SQL comment: XSS ranks before SQL Injection.
		{"xss over sqli", "/q?x=<script>alert('a')</script>' --", CrossSiteScripting},
		// ENTITY plus file://: XXE ranks before SSRF.
		{"xxe over ssrf", `/x?d=<!ENTITY e SYSTEM "file:///x">`, XXE},
		// Repeated traversal matches both traversal families; Directory wins.
		{"directory over path", "/f?p=../../secret", DirectoryTraversal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Classify(tt.url)
			if !ok {
				t.Fatalf("Classify(%q): no detection", tt.url)
			}
			if res.Type != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.url, res.Type, tt.want)
			}
		})
	}
}

func TestClassify_EncodedPayloads(t *testing.T) {
	// Same payload encoded and plain must both classify, and the encoded
	// form scores at least as high (obfuscation bonus).
	plain, okP := Classify("/a?id=1' OR '1'='1")
	encoded, okE := Classify("/a?id=1%27%20OR%20%271%27%3D%271")
	if !okP || !okE {
		t.Fatal("expected detections for both forms")
	}
	if plain.Type != SQLInjection || encoded.Type != SQLInjection {
		t.Fatalf("types = %s / %s, want SQL Injection", plain.Type, encoded.Type)
	}
	if encoded.Confidence < plain.Confidence {
		t.Errorf("encoded confidence %d < plain %d", encoded.Confidence, plain.Confidence)
	}
}

func TestClassify_DoubleEncoded(t *testing.T) {
	res, ok := Classify("/get?f=..%252f..%252f..%252fetc%252fpasswd")
	if !ok {
		t.Fatal("double-encoded traversal not detected")
	}
	if res.Type != FileInclusion && res.Type != DirectoryTraversal {
		t.Errorf("type = %s, want a traversal-family detection", res.Type)
	}
}

func TestClassify_ConfidenceCapped(t *testing.T) {
	// Three command injection indicators plus encoding: would exceed 100
	// without the cap.
	res, ok := Classify("/r?c=;cat%20x%20&&%20ls%20$(whoami)")
	if !ok {
		t.Fatal("expected detection")
	}
	if res.Type != CommandInjection {
		t.Fatalf("type = %s, want Command Injection", res.Type)
	}
	if res.Confidence != 100 {
		t.Errorf("confidence = %d, want 100", res.Confidence)
	}
}

func TestClassify_VeryLongURL(t *testing.T) {
	// A huge benign URL must neither hang nor detect.
	long := "/search?q=" + strings.Repeat("a", 1<<20)
	if _, ok := Classify(long); ok {
		t.Error("long benign URL misclassified")
	}

	// Payload within the scan window is still found.
	payload := "/a?id=1' OR '1'='1&pad=" + strings.Repeat("b", 1<<20)
	res, ok := Classify(payload)
	if !ok || res.Type != SQLInjection {
		t.Errorf("payload before cap not detected: ok=%v type=%s", ok, res.Type)
	}
}

func TestDecodeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/plain", "/plain"},
		{"%2e%2e%2f", "../"},
		{"%252e%252e%252f", "../"}, // two passes
		{"a+b", "a+b"},             // '+' is not form-encoding here
		{"%zz", "%zz"},             // invalid escape left intact
		{"50%", "50%"},             // trailing percent
	}
	for _, tt := range tests {
		if got := decodeURL(tt.in); got != tt.want {
			t.Errorf("decodeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
