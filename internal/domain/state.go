package domain

import "fmt"

type InventoryState string

const (
	StateDraft     InventoryState = "draft"
	StateConfirmed InventoryState = "confirmed"
)

func (inv Inventory) State() InventoryState {
	if inv.Confirmed {
		return StateConfirmed
	}
	return StateDraft
}

// Transition reports whether from -> to is allowed. Confirmed is terminal.
func Transition(from InventoryState, to InventoryState) error {
	switch {
	case from == StateDraft && to == StateConfirmed:
		return nil
	case from == StateConfirmed && to == StateConfirmed:
		return ErrAlreadyConfirmed
	default:
		return fmt.Errorf("invalid inventory transition %s -> %s", from, to)
	}
}

// CheckEditable rejects edits of a confirmed inventory unless the caller
// holds the lock override.
func (inv Inventory) CheckEditable(override bool) error {
	if inv.State() == StateConfirmed && !override {
		return ErrInventoryLocked
	}
	return nil
}
