package models

import (
	"errors"
	"testing"
)

func TestParseOrderStatus(t *testing.T) {
	for _, name := range []string{
		"pending", "approved", "processing", "packed",
		"shipped", "delivered", "cancelled", "rejected", "returned",
	} {
		status, err := ParseOrderStatus(name)
		if err != nil {
			t.Errorf("ParseOrderStatus(%q): %v", name, err)
		}
		if string(status) != name {
			t.Errorf("ParseOrderStatus(%q) = %q", name, status)
		}
	}
}

func TestParseOrderStatusRejectsUnknown(t *testing.T) {
	for _, name := range []string{"", "PENDING", "canceled", "shipped ", "done"} {
		_, err := ParseOrderStatus(name)
		if err == nil {
			t.Errorf("ParseOrderStatus(%q) should fail", name)
			continue
		}
		if !errors.Is(err, ErrorUnknownOrderStatus) {
			t.Errorf("ParseOrderStatus(%q) error %v should wrap ErrorUnknownOrderStatus", name, err)
		}
	}
}

func TestParseDeliveryPreference(t *testing.T) {
	for _, name := range []string{"standard", "express", "scheduled"} {
		if _, err := ParseDeliveryPreference(name); err != nil {
			t.Errorf("ParseDeliveryPreference(%q): %v", name, err)
		}
	}
	if _, err := ParseDeliveryPreference("overnight"); err == nil {
		t.Error("ParseDeliveryPreference(overnight) should fail")
	}
}

func TestCompositeCursorRoundTrip(t *testing.T) {
	encoded := EncodeCompositeCursor("2026-08-30 10:00:00", 42)
	value, id := DecodeCompositeCursor(&encoded)
	if value != "2026-08-30 10:00:00" || id != 42 {
		t.Errorf("round trip = (%q, %d)", value, id)
	}
}

func TestDecodeCompositeCursorTolerance(t *testing.T) {
	if value, id := DecodeCompositeCursor(nil); value != "" || id != 0 {
		t.Error("nil cursor should decode to zero values")
	}
	garbage := "!!not-base64!!"
	if value, id := DecodeCompositeCursor(&garbage); value != "" || id != 0 {
		t.Error("garbage cursor should decode to zero values")
	}
}
