package ocr

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseResponse(t *testing.T) {
	plain := `{"items":[{"name":"Bandeja paisa","quantity":2,"unit_price":32000,"confidence":0.95}]}`

	tests := []struct {
		name    string
		raw     string
		want    []DetectedItem
		wantErr bool
	}{
		{
			name: "plain JSON",
			raw:  plain,
			want: []DetectedItem{{Name: "Bandeja paisa", Quantity: 2, UnitPrice: 32000, Confidence: 0.95}},
		},
		{
			name: "fenced JSON parses identically",
			raw:  "```json\n" + plain + "\n```",
			want: []DetectedItem{{Name: "Bandeja paisa", Quantity: 2, UnitPrice: 32000, Confidence: 0.95}},
		},
		{
			name: "bare fence",
			raw:  "```\n" + plain + "```",
			want: []DetectedItem{{Name: "Bandeja paisa", Quantity: 2, UnitPrice: 32000, Confidence: 0.95}},
		},
		{
			name: "defaults quantity and confidence",
			raw:  `{"items":[{"name":"Limonada","unit_price":7500}]}`,
			want: []DetectedItem{{Name: "Limonada", Quantity: 1, UnitPrice: 7500, Confidence: 0.8}},
		},
		{
			name: "empty list",
			raw:  `{"items": []}`,
			want: []DetectedItem{},
		},
		{
			name:    "not JSON",
			raw:     "I could not read this receipt",
			wantErr: true,
		},
		{
			name:    "missing items",
			raw:     `{"lines": []}`,
			wantErr: true,
		},
		{
			name:    "empty name",
			raw:     `{"items":[{"name":"","unit_price":1000}]}`,
			wantErr: true,
		},
		{
			name:    "missing price",
			raw:     `{"items":[{"name":"Agua"}]}`,
			wantErr: true,
		},
		{
			name:    "zero quantity",
			raw:     `{"items":[{"name":"Agua","quantity":0,"unit_price":1000}]}`,
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			raw:     `{"items":[{"name":"Agua","unit_price":1000,"confidence":1.5}]}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidResponse) {
					t.Fatalf("Expected ErrInvalidResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResponse failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseResponse = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestKeepValid(t *testing.T) {
	items := []DetectedItem{
		{Name: "Arepa", Quantity: 1, UnitPrice: 4000},
		{Name: "   ", Quantity: 1, UnitPrice: 1000},
		{Name: "Descuento", Quantity: 1, UnitPrice: -2000},
		{Name: "Cafe", Quantity: 2, UnitPrice: 0},
	}

	got := keepValid(items)
	if len(got) != 2 || got[0].Name != "Arepa" || got[1].Name != "Cafe" {
		t.Errorf("keepValid = %+v", got)
	}
}
