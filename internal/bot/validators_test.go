package bot

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"posterbot/internal/session"
)

func TestPhoneValidation(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"12345", false},
		{"12345678901", false},
		{"12345abcde", false},
		{"", false},
		{"9876543210", true},
		{"+91 9876543210", true},
		{" 98765 43210 ", true},
		{"+919876543210", true},
		{"+44 9876543210", false},
	}

	for _, tt := range tests {
		got := IsValidPhoneNumber(NormalizePhoneNumber(tt.input, "+91"))
		if got != tt.valid {
			t.Errorf("%q: got valid=%v, want %v", tt.input, got, tt.valid)
		}
	}
}

func TestGenerateOrderID(t *testing.T) {
	re := regexp.MustCompile(`^ID[1-9][0-9]{3}$`)
	for i := 0; i < 200; i++ {
		if id := GenerateOrderID(); !re.MatchString(id) {
			t.Fatalf("unexpected order id %q", id)
		}
	}
}

func TestUploadReference(t *testing.T) {
	if got := uploadReference("[image uploaded] /uploads/x.png"); got != "/uploads/x.png" {
		t.Errorf("got %q", got)
	}
	if got := uploadReference("[image uploaded]"); got != "[image uploaded]" {
		t.Errorf("expected whole message without a reference, got %q", got)
	}
}

func TestFormatOrderNotification(t *testing.T) {
	text := FormatOrderNotification(Order{
		ID:      "ID1234",
		Name:    "Asha",
		Address: "Pune",
		Phone:   "9876543210",
		Items: []session.CartItem{
			{Kind: session.KindWebsite, ProductName: "Goku", Size: session.StringPtr("NA"), Quantity: "2"},
			{Kind: session.KindCustom, ProductName: "Custom", Quantity: "1", Details: session.StringPtr("Image: /u.png")},
		},
		CreatedAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	})

	for _, want := range []string{"#ID1234", "1. Goku (Website) x 2", "Image: /u.png", "Phone: 9876543210", "2026-03-04 10:00:00"} {
		if !strings.Contains(text, want) {
			t.Errorf("notification missing %q:\n%s", want, text)
		}
	}
}

func TestLoadVariant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.yaml")
	data := `
welcome:
  text: "Hello from the gallery"
  options: ["Shop", "Track"]
fallback_limit: 2
skip_filled_fields: false
reset_keywords: ["Menu", " START "]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	v, err := LoadVariant(path)
	if err != nil {
		t.Fatalf("LoadVariant failed: %v", err)
	}
	if v.Welcome.Text != "Hello from the gallery" || len(v.Welcome.Options) != 2 {
		t.Errorf("welcome not overridden: %+v", v.Welcome)
	}
	if v.FallbackLimit != 2 || v.SkipFilledFields {
		t.Errorf("scalars not overridden: %+v", v)
	}
	if v.ResetKeywords[0] != "menu" || v.ResetKeywords[1] != "start" {
		t.Errorf("expected normalized keywords, got %v", v.ResetKeywords)
	}
	if !v.GreetNewSessions || v.CatalogLimit != 10 || len(v.TrackKeywords) == 0 {
		t.Errorf("defaults lost: %+v", v)
	}
}

func TestLoadVariantRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialog.yaml")
	_ = os.WriteFile(path, []byte("catalog_limit: 0\n"), 0644)

	if _, err := LoadVariant(path); err == nil {
		t.Error("expected an error for catalog_limit 0")
	}
	if _, err := LoadVariant(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
