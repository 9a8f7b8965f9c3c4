package logger

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestRedact_Credentials(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	tests := []struct {
		key      string
		value    string
		redacted bool
	}{
		{"password", "hunter2", true},
		{"shared_secret", "c2VjcmV0", true},
		{"api_token", "abc", true},
		{"steamLoginSecure", "cookie-value", true},
		{"Authorization", "Bearer abc", true},
		{"code", "K7P2Q", true},
		{"two_factor_code", "K7P2Q", true},
		{"error_code", "TG-SYS-5000", false},
		{"identity", "alice", false},
		{"password", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			buf.Reset()
			l.Info("entry", tt.key, tt.value)
			got := decode(t, &buf)[tt.key]
			if tt.redacted && got != redactedValue {
				t.Errorf("%s = %v, want redacted", tt.key, got)
			}
			if !tt.redacted && got != tt.value {
				t.Errorf("%s = %v, want %q", tt.key, got, tt.value)
			}
		})
	}
}

func TestRedact_NonStringCodeKept(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("disconnected", "code", 3)
	if got := decode(t, &buf)["code"]; got != float64(3) {
		t.Errorf("code = %v, want 3", got)
	}
}

func TestRedact_Groups(t *testing.T) {
	var buf bytes.Buffer
	l, _ := New(Config{Level: "info", Format: "json", Output: &buf})

	l.Info("login", slog.Group("creds", slog.String("username", "bob"), slog.String("password", "pw")))
	creds, ok := decode(t, &buf)["creds"].(map[string]any)
	if !ok {
		t.Fatal("creds group missing")
	}
	if creds["password"] != redactedValue {
		t.Errorf("password = %v", creds["password"])
	}
	if creds["username"] != "bob" {
		t.Errorf("username = %v", creds["username"])
	}
}

func TestMask(t *testing.T) {
	tests := map[string]string{
		"":            "***",
		"abcd":        "***",
		"abcdefghijk": "ab***",
	}
	for in, want := range tests {
		if got := Mask(in); got != want {
			t.Errorf("Mask(%q) = %q, want %q", in, got, want)
		}
	}
}
