// Package policy decides who may do what. Every role and ownership check in
// the service layer goes through CanAccess.
package policy

import "github.com/Najinc/painperdu/internal/domain"

type Kind string

const (
	KindInventory  Kind = "inventory"
	KindSchedule   Kind = "schedule"
	KindProduct    Kind = "product"
	KindCategory   Kind = "category"
	KindUser       Kind = "user"
	KindStatistics Kind = "statistics"
	KindAudit      Kind = "audit"
)

type Action string

const (
	ActionRead        Action = "read"
	ActionCreate      Action = "create"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionConfirm     Action = "confirm"
	ActionRecordSales Action = "record_sales"
	// ActionOverrideLock edits a confirmed inventory.
	ActionOverrideLock Action = "override_lock"
	// ActionManage changes privileged fields such as role or active flag.
	ActionManage Action = "manage"
)

// Resource identifies what is accessed. OwnerID is empty for resources that
// have no owner, such as the catalog.
type Resource struct {
	Kind    Kind
	OwnerID string
}

// Owned reports whether the resource kind belongs to a single user.
func (r Resource) Owned() bool {
	switch r.Kind {
	case KindInventory, KindSchedule, KindUser:
		return true
	}
	return false
}

func CanAccess(actor domain.Actor, res Resource, action Action) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleSeller:
		return sellerCan(actor, res, action)
	default:
		return false
	}
}

func sellerCan(actor domain.Actor, res Resource, action Action) bool {
	own := actor.UserID != "" && res.OwnerID == actor.UserID
	switch res.Kind {
	case KindInventory:
		switch action {
		case ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionConfirm, ActionRecordSales:
			return own
		}
	case KindSchedule:
		switch action {
		case ActionRead, ActionCreate, ActionUpdate, ActionDelete:
			return own
		}
	case KindProduct, KindCategory:
		return action == ActionRead
	case KindUser:
		return own && (action == ActionRead || action == ActionUpdate)
	case KindStatistics:
		return own && action == ActionRead
	}
	return false
}
