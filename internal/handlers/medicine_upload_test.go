package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newMultipartTestContext(t *testing.T, fields map[string]string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		_ = writer.WriteField(key, value)
	}
	_ = writer.Close()

	req := httptest.NewRequest("PUT", "/seller/api/medicines/1", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

func TestParseMultipartMedicineRequest_DiscountFields(t *testing.T) {
	c := newMultipartTestContext(t, map[string]string{
		"discountEnabled": "true",
		"discountPrice":   "99",
	})

	parsed, err := parseMultipartMedicineRequest(c)
	if err != nil {
		t.Fatalf("parseMultipartMedicineRequest returned error: %v", err)
	}
	if !parsed.DiscountEnabledSet || !parsed.DiscountEnabled {
		t.Fatalf("expected discountEnabled=true, got %+v", parsed)
	}
	if !parsed.DiscountPriceSet || parsed.DiscountPrice != 99 {
		t.Fatalf("expected discountPrice=99, got %+v", parsed)
	}
}

func TestParseMultipartMedicineRequest_BoolOnValue(t *testing.T) {
	c := newMultipartTestContext(t, map[string]string{
		"requiresRx": "on",
		"isActive":   "false",
	})

	parsed, err := parseMultipartMedicineRequest(c)
	if err != nil {
		t.Fatalf("parseMultipartMedicineRequest returned error: %v", err)
	}
	if !parsed.RequiresRxSet || !parsed.RequiresRx {
		t.Fatalf("expected requiresRx=true for form value 'on', got %+v", parsed)
	}
	if !parsed.IsActiveSet || parsed.IsActive {
		t.Fatalf("expected isActive=false, got %+v", parsed)
	}
}

func TestParseMultipartMedicineRequest_InvalidPrice(t *testing.T) {
	c := newMultipartTestContext(t, map[string]string{
		"price": "not-a-number",
	})

	if _, err := parseMultipartMedicineRequest(c); err == nil {
		t.Fatal("expected error for non-numeric price")
	}
}

func TestParseMultipartMedicineRequest_UnsetFieldsStayUnset(t *testing.T) {
	c := newMultipartTestContext(t, map[string]string{
		"name": "Napa Extra",
	})

	parsed, err := parseMultipartMedicineRequest(c)
	if err != nil {
		t.Fatalf("parseMultipartMedicineRequest returned error: %v", err)
	}
	if !parsed.NameSet || parsed.Name != "Napa Extra" {
		t.Fatalf("expected name to be set, got %+v", parsed)
	}
	if parsed.PriceSet || parsed.StockSet || parsed.ImageSet {
		t.Fatalf("expected untouched fields to stay unset, got %+v", parsed)
	}
}
