package models

import "testing"

func TestNormalizeEntityType(t *testing.T) {
	tests := []struct {
		name     string
		in       EntityType
		expected EntityType
	}{
		{"legacy project", "project", EntityTypeProtocol},
		{"legacy ticker", "ticker", EntityTypeCryptocurrency},
		{"legacy event", "event", EntityTypeConcept},
		{"current value passes through", EntityTypeBlockchain, EntityTypeBlockchain},
		{"unknown value passes through", "whatever", EntityType("whatever")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeEntityType(tt.in); got != tt.expected {
				t.Errorf("NormalizeEntityType(%q) = %q, want %q", tt.in, got, tt.expected)
			}
		})
	}
}

func TestIsValidEntityType(t *testing.T) {
	for _, valid := range []EntityType{
		EntityTypeCryptocurrency, EntityTypePerson, "project", "ticker", "event",
	} {
		if !IsValidEntityType(valid) {
			t.Errorf("Expected %q to be valid", valid)
		}
	}

	if IsValidEntityType("stock") {
		t.Error("Expected unknown type to be invalid")
	}
}

func TestCanonicalEntity(t *testing.T) {
	if got := CanonicalEntity("  Bitcoin "); got != "bitcoin" {
		t.Errorf("Expected canonical form bitcoin, got %q", got)
	}
}
