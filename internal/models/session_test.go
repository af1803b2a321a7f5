package models

import "testing"

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"ABC123", true},
		{"ZZZZZZ", true},
		{"abc123", false},
		{"ABC12", false},
		{"ABC1234", false},
		{"ABC-12", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if got := IsValidCode(tt.code); got != tt.want {
				t.Errorf("IsValidCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  ab12cd "); got != "AB12CD" {
		t.Errorf("NormalizeCode = %q, want %q", got, "AB12CD")
	}
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode failed: %v", err)
		}
		if !IsValidCode(code) {
			t.Fatalf("generated invalid code %q", code)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		want     bool
	}{
		{StatusActive, StatusClosed, true},
		{StatusActive, StatusArchived, true},
		{StatusClosed, StatusArchived, true},
		{StatusClosed, StatusActive, false},
		{StatusArchived, StatusClosed, false},
		{StatusActive, StatusActive, false},
		{SessionStatus("bogus"), StatusClosed, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestItemComputeTotal(t *testing.T) {
	item := Item{Quantity: 3, UnitPrice: 12500}
	item.ComputeTotal()
	if item.TotalPrice != 37500 {
		t.Errorf("TotalPrice = %v, want 37500", item.TotalPrice)
	}
}
