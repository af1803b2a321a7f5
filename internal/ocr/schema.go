package ocr

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	defaultQuantity   = 1
	defaultConfidence = 0.8
)

// ErrInvalidResponse is returned when the model answer is not valid JSON or
// does not match the expected shape.
var ErrInvalidResponse = errors.New("invalid model response")

// DetectedItem is one product line read from a receipt.
type DetectedItem struct {
	Name       string  `json:"name"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Confidence float64 `json:"confidence"`
}

type rawItem struct {
	Name       *string  `json:"name"`
	Quantity   *float64 `json:"quantity"`
	UnitPrice  *float64 `json:"unit_price"`
	Confidence *float64 `json:"confidence"`
}

type rawResponse struct {
	Items *[]rawItem `json:"items"`
}

var (
	fenceOpen  = regexp.MustCompile("(?i)```json\\s*")
	fenceClose = regexp.MustCompile("```\\s*")
)

// ParseResponse decodes and validates a model answer.
//
// Markdown code fences are stripped first. Each item needs a non-empty name,
// a unit_price, a positive quantity (1 when absent) and a confidence in
// [0,1] (0.8 when absent). Any violation fails the whole response.
func ParseResponse(raw string) ([]DetectedItem, error) {
	cleaned := fenceOpen.ReplaceAllString(raw, "")
	cleaned = strings.TrimSpace(fenceClose.ReplaceAllString(cleaned, ""))

	var resp rawResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return nil, fmt.Errorf("%w: not valid JSON: %v", ErrInvalidResponse, err)
	}
	if resp.Items == nil {
		return nil, fmt.Errorf("%w: items: required", ErrInvalidResponse)
	}

	var problems []string
	items := make([]DetectedItem, 0, len(*resp.Items))
	for i, r := range *resp.Items {
		item, issues := validateItem(r)
		for _, issue := range issues {
			problems = append(problems, fmt.Sprintf("items.%d.%s", i, issue))
		}
		items = append(items, item)
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, strings.Join(problems, ", "))
	}
	return items, nil
}

func validateItem(r rawItem) (DetectedItem, []string) {
	var issues []string
	item := DetectedItem{Quantity: defaultQuantity, Confidence: defaultConfidence}

	switch {
	case r.Name == nil:
		issues = append(issues, "name: required")
	case *r.Name == "":
		issues = append(issues, "name: must not be empty")
	default:
		item.Name = *r.Name
	}

	if r.Quantity != nil {
		if *r.Quantity <= 0 {
			issues = append(issues, "quantity: must be positive")
		}
		item.Quantity = *r.Quantity
	}

	// A negative price drops the line in keepValid instead of failing the
	// whole response.
	if r.UnitPrice == nil {
		issues = append(issues, "unit_price: required")
	} else {
		item.UnitPrice = *r.UnitPrice
	}

	if r.Confidence != nil {
		if *r.Confidence < 0 || *r.Confidence > 1 {
			issues = append(issues, "confidence: must be between 0 and 1")
		}
		item.Confidence = *r.Confidence
	}

	return item, issues
}

// keepValid drops items whose trimmed name is empty or whose price is negative.
func keepValid(items []DetectedItem) []DetectedItem {
	valid := items[:0]
	for _, item := range items {
		if strings.TrimSpace(item.Name) == "" || item.UnitPrice < 0 {
			continue
		}
		valid = append(valid, item)
	}
	return valid
}
