package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestMoneyJSONUsesTwoDecimals(t *testing.T) {
	payload, err := json.Marshal(struct {
		Value Money `json:"value"`
	}{Value: 5000})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"value":50.00}` {
		t.Fatalf("unexpected payload %s", payload)
	}
}

func TestMoneyUnmarshalAcceptsNumberAndString(t *testing.T) {
	var v struct {
		A Money `json:"a"`
		B Money `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":2.5,"b":"12.345"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != 250 {
		t.Fatalf("expected 250 cents, got %d", v.A)
	}
	if v.B != 1235 {
		t.Fatalf("expected half-up rounding to 1235 cents, got %d", v.B)
	}
	if err := json.Unmarshal([]byte(`{"a":"abc"}`), &v); err == nil {
		t.Fatalf("expected invalid amount to be rejected")
	}
}

func TestParseDateNormalizesToCalendarDay(t *testing.T) {
	a, err := ParseDate("2024-01-10")
	if err != nil {
		t.Fatalf("parse plain date: %v", err)
	}
	b, err := ParseDate("2024-01-10T17:45:00Z")
	if err != nil {
		t.Fatalf("parse timestamp: %v", err)
	}
	if !a.Equal(b) {
		t.Fatalf("expected %s and %s to be the same day", a, b)
	}
	if _, err := ParseDate("10/01/2024"); err == nil {
		t.Fatalf("expected unsupported layout to fail")
	}
}

func TestStartOfWeekIsMonday(t *testing.T) {
	sunday := NewDate(time.Date(2024, 1, 14, 10, 0, 0, 0, time.UTC))
	if got := sunday.StartOfWeek().String(); got != "2024-01-08" {
		t.Fatalf("expected Monday 2024-01-08, got %s", got)
	}
	monday := NewDate(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC))
	if got := monday.StartOfWeek().String(); got != "2024-01-08" {
		t.Fatalf("expected Monday to map to itself, got %s", got)
	}
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("7:05")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != 425 || c.String() != "07:05" {
		t.Fatalf("unexpected clock %d %s", c, c)
	}
	for _, bad := range []string{"24:00", "12:60", "noon", ""} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestConfirmedInventoryIsLockedWithoutOverride(t *testing.T) {
	inv := Inventory{Confirmed: true}
	if err := inv.CheckEditable(false); !errors.Is(err, ErrInventoryLocked) {
		t.Fatalf("expected ErrInventoryLocked, got %v", err)
	}
	if err := inv.CheckEditable(true); err != nil {
		t.Fatalf("expected override to pass, got %v", err)
	}
	if err := Transition(StateConfirmed, StateConfirmed); !errors.Is(err, ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}
	if err := Transition(StateConfirmed, StateDraft); err == nil {
		t.Fatalf("expected confirmed to be terminal")
	}
}

func TestInventoryValidateRejectsOversoldAndDuplicates(t *testing.T) {
	sold := 6
	inv := Inventory{
		Type:     InventoryOpening,
		Date:     NewDate(time.Now()),
		SellerID: "u-1",
		Items:    []InventoryItem{{ProductID: "p-1", Quantity: 5, SoldQuantity: &sold}},
	}
	var invErr *InvariantError
	if err := inv.Validate(); !errors.As(err, &invErr) || invErr.Field != "items[0].soldQuantity" {
		t.Fatalf("expected soldQuantity invariant error, got %v", err)
	}

	inv.Items = []InventoryItem{{ProductID: "p-1", Quantity: 1}, {ProductID: "p-1", Quantity: 2}}
	if err := inv.Validate(); !errors.As(err, &invErr) || invErr.Field != "items[1].productId" {
		t.Fatalf("expected duplicate product invariant error, got %v", err)
	}
}

func TestScheduleValidateRequiresOrderedTimesForWork(t *testing.T) {
	start, end := ClockTime(600), ClockTime(540)
	s := Schedule{Type: ScheduleWork, Date: NewDate(time.Now()), SellerID: "u-1", StartTime: &start, EndTime: &end}
	if err := s.Validate(); err == nil {
		t.Fatalf("expected end before start to be rejected")
	}
	s.StartTime, s.EndTime = nil, nil
	if err := s.Validate(); err == nil {
		t.Fatalf("expected work entry without times to be rejected")
	}
	s.Type = ScheduleLeave
	if err := s.Validate(); err != nil {
		t.Fatalf("expected leave entry without times to pass, got %v", err)
	}
	if from, to := s.Span(); from != 0 || to != EndOfDay {
		t.Fatalf("expected whole-day span, got %s-%d", from, to)
	}
}

func TestOversoldErrorUnwraps(t *testing.T) {
	err := error(&OversoldError{ProductName: "Baguette", Sold: 12, Counted: 10})
	if !errors.Is(err, ErrOversoldQuantity) {
		t.Fatalf("expected OversoldError to wrap ErrOversoldQuantity")
	}
	if err.Error() != "sold quantity (12) exceeds counted quantity (10) for Baguette" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
