package policy

import (
	"testing"

	"github.com/Najinc/painperdu/internal/domain"
)

var (
	admin  = domain.Actor{UserID: "u-admin", Username: "admin", Role: domain.RoleAdmin}
	alice  = domain.Actor{UserID: "u-alice", Username: "alice", Role: domain.RoleSeller}
	nobody = domain.Actor{UserID: "u-x", Username: "x", Role: "guest"}
)

func TestAdminCanDoEverything(t *testing.T) {
	for _, action := range []Action{ActionRead, ActionUpdate, ActionDelete, ActionOverrideLock, ActionManage} {
		if !CanAccess(admin, Resource{Kind: KindInventory, OwnerID: "u-alice"}, action) {
			t.Fatalf("expected admin to be allowed %s", action)
		}
	}
	if !CanAccess(admin, Resource{Kind: KindAudit}, ActionRead) {
		t.Fatalf("expected admin to read audit logs")
	}
}

func TestSellerLimitedToOwnInventories(t *testing.T) {
	own := Resource{Kind: KindInventory, OwnerID: "u-alice"}
	other := Resource{Kind: KindInventory, OwnerID: "u-bob"}

	for _, action := range []Action{ActionRead, ActionCreate, ActionUpdate, ActionDelete, ActionConfirm, ActionRecordSales} {
		if !CanAccess(alice, own, action) {
			t.Fatalf("expected seller to be allowed %s on own inventory", action)
		}
		if CanAccess(alice, other, action) {
			t.Fatalf("expected seller to be denied %s on another seller's inventory", action)
		}
	}
	if CanAccess(alice, own, ActionOverrideLock) {
		t.Fatalf("expected lock override to be admin only")
	}
}

func TestSellerCatalogIsReadOnly(t *testing.T) {
	if !CanAccess(alice, Resource{Kind: KindProduct}, ActionRead) {
		t.Fatalf("expected seller to read products")
	}
	if CanAccess(alice, Resource{Kind: KindProduct}, ActionCreate) {
		t.Fatalf("expected seller not to create products")
	}
	if CanAccess(alice, Resource{Kind: KindCategory}, ActionDelete) {
		t.Fatalf("expected seller not to delete categories")
	}
}

func TestSellerSelfServiceOnUser(t *testing.T) {
	self := Resource{Kind: KindUser, OwnerID: "u-alice"}
	if !CanAccess(alice, self, ActionUpdate) {
		t.Fatalf("expected seller to update own profile")
	}
	if CanAccess(alice, self, ActionManage) {
		t.Fatalf("expected seller not to change own role or active flag")
	}
	if CanAccess(alice, self, ActionDelete) {
		t.Fatalf("expected seller not to delete accounts")
	}
}

func TestUnknownRoleIsDenied(t *testing.T) {
	if CanAccess(nobody, Resource{Kind: KindProduct}, ActionRead) {
		t.Fatalf("expected unknown role to be denied")
	}
}

func TestEmptyActorIDNeverOwns(t *testing.T) {
	anon := domain.Actor{Role: domain.RoleSeller}
	if CanAccess(anon, Resource{Kind: KindInventory}, ActionRead) {
		t.Fatalf("expected actor without id not to match ownerless resource")
	}
}
