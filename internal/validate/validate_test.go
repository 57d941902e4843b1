package validate

import (
	"errors"
	"testing"

	"github.com/Najinc/painperdu/internal/domain"
)

func intPtr(v int) *int { return &v }

func findField(errs Errors, field string) (FieldError, bool) {
	for _, fe := range errs {
		if fe.Field == field {
			return fe, true
		}
	}
	return FieldError{}, false
}

func TestInventoryCreateRequestValid(t *testing.T) {
	req := domain.InventoryCreateRequest{
		Date:  "2024-01-10",
		Type:  domain.InventoryOpening,
		Items: []domain.InventoryItemInput{{ProductID: "p1", Quantity: intPtr(20)}},
	}
	if err := Struct(req); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestInventoryCreateRequestReportsEveryField(t *testing.T) {
	req := domain.InventoryCreateRequest{
		Date:  "10/01/2024",
		Type:  "ouverture",
		Items: []domain.InventoryItemInput{{ProductID: "", Quantity: intPtr(-1)}},
	}
	err := Struct(req)
	var errs Errors
	if !errors.As(err, &errs) {
		t.Fatalf("expected Errors, got %v", err)
	}
	for _, field := range []string{"date", "type", "items[0].productId", "items[0].quantity"} {
		if _, ok := findField(errs, field); !ok {
			t.Fatalf("expected violation on %s, got %+v", field, errs)
		}
	}
	if fe, _ := findField(errs, "type"); fe.Message != "must be one of opening, closing" {
		t.Fatalf("unexpected message %q", fe.Message)
	}
}

func TestInventoryCreateRequestRequiresItems(t *testing.T) {
	err := Struct(domain.InventoryCreateRequest{Date: "2024-01-10", Type: domain.InventoryClosing})
	var errs Errors
	if !errors.As(err, &errs) {
		t.Fatalf("expected Errors, got %v", err)
	}
	if _, ok := findField(errs, "items"); !ok {
		t.Fatalf("expected items violation, got %+v", errs)
	}
}

func TestCustomRules(t *testing.T) {
	if err := Struct(domain.CategoryCreateRequest{Name: "Viennoiseries", Color: "#abc"}); err != nil {
		t.Fatalf("expected #RGB color to pass, got %v", err)
	}
	if err := Struct(domain.CategoryCreateRequest{Name: "Viennoiseries", Color: "#abcd"}); err == nil {
		t.Fatalf("expected 4-digit color to fail")
	}
	if err := Struct(domain.ScheduleCreateRequest{Date: "2024-01-10", StartTime: "25:00"}); err == nil {
		t.Fatalf("expected invalid clock to fail")
	}
	if err := Struct(domain.UserCreateRequest{Username: "bad name", Email: "a@b.fr", Password: "secret1"}); err == nil {
		t.Fatalf("expected username with space to fail")
	}
}

func TestProductPriceMustBeNonNegative(t *testing.T) {
	price := domain.Money(-1)
	err := Struct(domain.ProductCreateRequest{Name: "Croissant", Price: &price, CategoryID: "c1"})
	var errs Errors
	if !errors.As(err, &errs) {
		t.Fatalf("expected Errors, got %v", err)
	}
	if _, ok := findField(errs, "price"); !ok {
		t.Fatalf("expected price violation, got %+v", errs)
	}
	if err := Struct(domain.ProductCreateRequest{Name: "Croissant", CategoryID: "c1"}); err == nil {
		t.Fatalf("expected missing price to fail")
	}
}

func TestRecordSalesRequest(t *testing.T) {
	if err := Struct(domain.RecordSalesRequest{}); err == nil {
		t.Fatalf("expected empty sales to fail")
	}
	ok := domain.RecordSalesRequest{Sales: []domain.SaleInput{{ProductID: "p1", SoldQuantity: intPtr(3)}}}
	if err := Struct(ok); err != nil {
		t.Fatalf("expected valid sales, got %v", err)
	}
}
