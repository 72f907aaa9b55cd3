package handlers

import (
	"encoding/json"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestValidateDiscountFieldsMissingDiscountPrice(t *testing.T) {
	err := validateDiscountFields(100, true, 0, false)
	if err == nil {
		t.Fatal("expected validation error when discountEnabled=true and discountPrice is missing")
	}
}

func TestValidateDiscountFieldsDiscountPriceGreaterOrEqualPrice(t *testing.T) {
	tests := []float64{100, 120}
	for _, discountPrice := range tests {
		err := validateDiscountFields(100, true, discountPrice, true)
		if err == nil {
			t.Fatalf("expected validation error for discountPrice=%v", discountPrice)
		}
	}
}

func TestNormalizeMedicineDocumentIncludesDiscountFields(t *testing.T) {
	medicine, err := normalizeMedicineDocument(bson.M{
		"name":            "Napa Extra",
		"price":           100.0,
		"discountEnabled": true,
		"discountPrice":   80.0,
		"stock":           5,
		"category":        []string{"Pain Relief"},
	})
	if err != nil {
		t.Fatalf("normalizeMedicineDocument returned error: %v", err)
	}
	if !medicine.DiscountEnabled || medicine.DiscountPrice != 80 {
		t.Fatalf("expected discount fields to be preserved, got discountEnabled=%v discountPrice=%v", medicine.DiscountEnabled, medicine.DiscountPrice)
	}
	if !medicine.IsDiscounted {
		t.Fatal("expected IsDiscounted to be true")
	}
}

func TestMedicineJSONAlwaysIncludesDiscountPrice(t *testing.T) {
	medicine, err := normalizeMedicineDocument(bson.M{
		"name":            "Seclo 20",
		"price":           120.0,
		"discountEnabled": true,
		"discountPrice":   99.0,
		"stock":           10,
		"category":        []string{"Gastric"},
	})
	if err != nil {
		t.Fatalf("normalizeMedicineDocument returned error: %v", err)
	}

	body, err := json.Marshal(medicine)
	if err != nil {
		t.Fatalf("json marshal failed: %v", err)
	}

	jsonBody := string(body)
	if !strings.Contains(jsonBody, "\"discountPrice\":99") {
		t.Fatalf("expected discountPrice in response json, got %s", jsonBody)
	}
	if !strings.Contains(jsonBody, "\"isDiscounted\":true") {
		t.Fatalf("expected isDiscounted=true in response json, got %s", jsonBody)
	}
}

func TestEffectiveMedicinePriceUsesDiscountWhenActive(t *testing.T) {
	if got := effectiveMedicinePrice(100, true, 75); got != 75 {
		t.Fatalf("expected discount price 75, got %v", got)
	}
	if got := effectiveMedicinePrice(100, false, 75); got != 100 {
		t.Fatalf("expected regular price 100 when discount disabled, got %v", got)
	}
}

func TestNormalizeMedicineDocumentCoercesStringCategory(t *testing.T) {
	medicine, err := normalizeMedicineDocument(bson.M{
		"name":     "Monas 10",
		"price":    150.0,
		"stock":    int32(3),
		"category": "Respiratory",
	})
	if err != nil {
		t.Fatalf("normalizeMedicineDocument returned error: %v", err)
	}
	if len(medicine.Category) != 1 || medicine.Category[0] != "Respiratory" {
		t.Fatalf("expected category to be wrapped in a list, got %v", medicine.Category)
	}
	if !medicine.InStock {
		t.Fatal("expected InStock to be true for positive stock")
	}
}
