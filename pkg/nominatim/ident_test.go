package nominatim

import (
	"errors"
	"testing"
)

func TestIdentificationHeader(t *testing.T) {
	tests := []struct {
		name       string
		build      func() (Identification, error)
		wantHeader string
		wantValue  string
	}{
		{
			name:       "user agent",
			build:      func() (Identification, error) { return UserAgent("Example Application Name") },
			wantHeader: "User-Agent",
			wantValue:  "Example Application Name",
		},
		{
			name:       "referer",
			build:      func() (Identification, error) { return Referer("https://example.com/app") },
			wantHeader: "Referer",
			wantValue:  "https://example.com/app",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ident, err := tt.build()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			name, value := ident.Header()
			if name != tt.wantHeader {
				t.Errorf("header name = %q, want %q", name, tt.wantHeader)
			}
			if value != tt.wantValue {
				t.Errorf("header value = %q, want %q", value, tt.wantValue)
			}
		})
	}
}

func TestIdentificationInvalidValue(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "newline", value: "app\nname"},
		{name: "carriage return", value: "app\rname"},
		{name: "null byte", value: "app\x00name"},
		{name: "delete", value: "app\x7fname"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UserAgent(tt.value); !errors.Is(err, ErrInvalidHeaderValue) {
				t.Errorf("UserAgent(%q) error = %v, want ErrInvalidHeaderValue", tt.value, err)
			}
			if _, err := Referer(tt.value); !errors.Is(err, ErrInvalidHeaderValue) {
				t.Errorf("Referer(%q) error = %v, want ErrInvalidHeaderValue", tt.value, err)
			}
		})
	}
}

func TestIdentificationAllowsTabAndSpace(t *testing.T) {
	ident, err := UserAgent("my app\tv1.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, value := ident.Header(); value != "my app\tv1.0" {
		t.Errorf("header value = %q, want input verbatim", value)
	}
}
