package guard

import (
	"testing"
	"time"

	"github.com/Najinc/painperdu/internal/domain"
)

func clock(t *testing.T, raw string) *domain.ClockTime {
	t.Helper()
	c, err := domain.ParseClock(raw)
	if err != nil {
		t.Fatalf("parse clock %q: %v", raw, err)
	}
	return &c
}

func TestDayBounds(t *testing.T) {
	start, end := DayBounds(time.Date(2024, 1, 10, 15, 4, 5, 0, time.UTC))
	if start.Format(time.RFC3339) != "2024-01-10T00:00:00Z" || end.Format(time.RFC3339) != "2024-01-11T00:00:00Z" {
		t.Fatalf("unexpected bounds %s %s", start, end)
	}
}

func TestOverlapRules(t *testing.T) {
	existing := TimeRange{Start: 540, End: 720} // 09:00-12:00

	cases := []struct {
		name      string
		candidate TimeRange
		want      bool
	}{
		{"starts inside", TimeRange{Start: 600, End: 780}, true},
		{"ends inside", TimeRange{Start: 480, End: 600}, true},
		{"contains", TimeRange{Start: 480, End: 780}, true},
		{"same range", TimeRange{Start: 540, End: 720}, true},
		{"touches end", TimeRange{Start: 720, End: 780}, false},
		{"touches start", TimeRange{Start: 420, End: 540}, false},
		{"disjoint", TimeRange{Start: 800, End: 900}, false},
	}
	for _, tc := range cases {
		if got := Overlaps(existing, tc.candidate); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestFindScheduleConflictExcludesSelfAndOtherSellers(t *testing.T) {
	day := domain.NewDate(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	existing := []domain.Schedule{
		{ID: "s1", SellerID: "alice", Date: day, Type: domain.ScheduleWork, StartTime: clock(t, "08:00"), EndTime: clock(t, "12:00"), Active: true},
		{ID: "s2", SellerID: "bob", Date: day, Type: domain.ScheduleWork, StartTime: clock(t, "13:00"), EndTime: clock(t, "17:00"), Active: true},
		{ID: "s3", SellerID: "alice", Date: day, Type: domain.ScheduleWork, StartTime: clock(t, "13:00"), EndTime: clock(t, "17:00"), Active: false},
	}

	candidate := domain.Schedule{ID: "s1", SellerID: "alice", Date: day, StartTime: clock(t, "09:00"), EndTime: clock(t, "11:00"), Active: true}
	if _, found := FindScheduleConflict(existing, candidate); found {
		t.Fatalf("expected update of s1 not to conflict with itself")
	}

	candidate.ID = "new"
	conflict, found := FindScheduleConflict(existing, candidate)
	if !found || conflict.ID != "s1" {
		t.Fatalf("expected conflict with s1, got %+v %v", conflict, found)
	}

	candidate.StartTime, candidate.EndTime = clock(t, "14:00"), clock(t, "15:00")
	if _, found := FindScheduleConflict(existing, candidate); found {
		t.Fatalf("expected no conflict with bob or inactive entries")
	}
}

func TestWholeDayEntryConflictsWithAnyRange(t *testing.T) {
	day := domain.NewDate(time.Now())
	existing := []domain.Schedule{{ID: "leave", SellerID: "alice", Date: day, Type: domain.ScheduleLeave, Active: true}}
	candidate := domain.Schedule{ID: "new", SellerID: "alice", Date: day, Type: domain.ScheduleWork, StartTime: clock(t, "09:00"), EndTime: clock(t, "10:00"), Active: true}
	if _, found := FindScheduleConflict(existing, candidate); !found {
		t.Fatalf("expected leave day to block work entry")
	}
}

func TestFindInventoryDuplicate(t *testing.T) {
	day := domain.NewDate(time.Now())
	existing := []domain.Inventory{
		{ID: "a", SellerID: "alice", Date: day, Type: domain.InventoryOpening},
		{ID: "b", SellerID: "alice", Date: day, Type: domain.InventoryClosing},
	}
	if _, found := FindInventoryDuplicate(existing, domain.Inventory{ID: "x", SellerID: "alice", Date: day, Type: domain.InventoryOpening}); !found {
		t.Fatalf("expected same slot to be detected")
	}
	if _, found := FindInventoryDuplicate(existing, domain.Inventory{ID: "a", SellerID: "alice", Date: day, Type: domain.InventoryOpening}); found {
		t.Fatalf("expected record not to collide with itself")
	}
	if _, found := FindInventoryDuplicate(existing, domain.Inventory{ID: "x", SellerID: "bob", Date: day, Type: domain.InventoryOpening}); found {
		t.Fatalf("expected other seller to be free")
	}
}
