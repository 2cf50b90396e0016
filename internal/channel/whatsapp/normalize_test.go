package whatsapp

import (
	"errors"
	"testing"

	"github.com/nimeshka/leadline/internal/channel"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		country string
		want    string
	}{
		{"local with trunk zero", "0771234567", "Sri Lanka", "94771234567"},
		{"already international", "94771234567", "Sri Lanka", "94771234567"},
		{"plus prefix", "+94771234567", "Sri Lanka", "94771234567"},
		{"formatted", "077-123 4567", "Sri Lanka", "94771234567"},
		{"no trunk zero no code", "771234567", "Sri Lanka", "94771234567"},
		{"india trunk zero", "09812345678", "India", "919812345678"},
		{"unknown country falls back", "0771234567", "Atlantis", "94771234567"},
		{"empty country falls back", "0771234567", "", "94771234567"},
		{"country case insensitive", "0771234567", "SRI LANKA", "94771234567"},
		{"us number", "2025550143", "United States", "12025550143"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.raw, tt.country)
			if err != nil {
				t.Fatalf("NormalizePhone(%q, %q) failed: %v", tt.raw, tt.country, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePhone(%q, %q) = %q, want %q", tt.raw, tt.country, got, tt.want)
			}
		})
	}
}

func TestNormalizePhoneInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not a number", "N/A"},
		{"letters only", "call me"},
		{"too short", "0771"},
		{"plus only", "+"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizePhone(tt.raw, "Sri Lanka")
			if !errors.Is(err, channel.ErrInvalidRecipient) {
				t.Errorf("NormalizePhone(%q) expected ErrInvalidRecipient, got %v", tt.raw, err)
			}
		})
	}
}

func TestCleanPhone(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"+94 77 123 4567", "+94771234567"},
		{"(077) 123-4567", "0771234567"},
		{"77+12", "7712"},
		{"abc", ""},
	}

	for _, tt := range tests {
		if got := cleanPhone(tt.raw); got != tt.want {
			t.Errorf("cleanPhone(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
