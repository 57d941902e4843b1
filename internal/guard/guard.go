// Package guard holds the uniqueness and overlap rules shared by the stores
// and the service layer.
package guard

import (
	"time"

	"github.com/Najinc/painperdu/internal/domain"
)

// DayBounds returns [start, end) of the calendar day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := domain.NewDate(t).Time
	return start, start.AddDate(0, 0, 1)
}

// SameInventorySlot reports whether two inventories occupy the same
// (seller, day, type) slot.
func SameInventorySlot(a domain.Inventory, b domain.Inventory) bool {
	return a.SellerID == b.SellerID && a.Type == b.Type && a.Date.Equal(b.Date)
}

// FindInventoryDuplicate returns the first inventory other than the
// candidate itself that holds the candidate's slot.
func FindInventoryDuplicate(existing []domain.Inventory, candidate domain.Inventory) (domain.Inventory, bool) {
	for _, inv := range existing {
		if inv.ID == candidate.ID {
			continue
		}
		if SameInventorySlot(inv, candidate) {
			return inv, true
		}
	}
	return domain.Inventory{}, false
}

type TimeRange struct {
	Start domain.ClockTime
	End   domain.ClockTime
}

func RangeOf(s domain.Schedule) TimeRange {
	start, end := s.Span()
	return TimeRange{Start: start, End: end}
}

// Overlaps applies the three conflict rules against an existing range:
// the candidate starts inside [start, end), ends inside (start, end], or
// fully contains it.
func Overlaps(existing TimeRange, candidate TimeRange) bool {
	startsInside := existing.Start <= candidate.Start && existing.End > candidate.Start
	endsInside := existing.Start < candidate.End && existing.End >= candidate.End
	contains := existing.Start >= candidate.Start && existing.End <= candidate.End
	return startsInside || endsInside || contains
}

// FindScheduleConflict looks for an active entry of the same seller and day
// overlapping the candidate. The candidate itself is skipped by id so an
// update never conflicts with its previous version.
func FindScheduleConflict(existing []domain.Schedule, candidate domain.Schedule) (domain.Schedule, bool) {
	if !candidate.Active {
		return domain.Schedule{}, false
	}
	want := RangeOf(candidate)
	for _, s := range existing {
		if s.ID == candidate.ID || !s.Active {
			continue
		}
		if s.SellerID != candidate.SellerID || !s.Date.Equal(candidate.Date) {
			continue
		}
		if Overlaps(RangeOf(s), want) {
			return s, true
		}
	}
	return domain.Schedule{}, false
}
