package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/logging"
	"github.com/Najinc/painperdu/internal/metrics"
	"github.com/Najinc/painperdu/internal/policy"
	"github.com/Najinc/painperdu/internal/statistics"
	"github.com/Najinc/painperdu/internal/store"
	"github.com/Najinc/painperdu/internal/validate"
	"github.com/Najinc/painperdu/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	stats      *statistics.Engine
	logger     *zap.Logger
	metrics    *metrics.Metrics
	bcryptCost int
	now        func() time.Time
}

func New(repo store.Repository, stats *statistics.Engine, logger *zap.Logger, m *metrics.Metrics, bcryptCost int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if stats == nil {
		stats = statistics.NewEngine(repo, nil, 0, logger, m)
	}
	if bcryptCost <= 0 {
		bcryptCost = 12
	}

	return &Service{
		repo:       repo,
		stats:      stats,
		logger:     logger,
		metrics:    m,
		bcryptCost: bcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// authorize resolves the actor and checks the policy. A seller touching an
// owned resource of someone else gets store.ErrNotFound so the record's
// existence is not disclosed.
func (s *Service) authorize(ctx context.Context, res policy.Resource, action policy.Action) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.UserID == "" {
		return domain.Actor{}, domain.ErrUnauthenticated
	}
	if policy.CanAccess(actor, res, action) {
		return actor, nil
	}
	if res.Owned() && res.OwnerID != "" && res.OwnerID != actor.UserID {
		return actor, store.ErrNotFound
	}
	return actor, domain.ErrForbidden
}

// lockFor returns the lock policy for an edit of inv. Confirmed records are
// only reachable through the explicit override, which is logged and audited.
func (s *Service) lockFor(ctx context.Context, actor domain.Actor, inv *domain.Inventory, action string) (store.LockPolicy, error) {
	if !inv.Confirmed {
		return store.EnforceLock, nil
	}
	res := policy.Resource{Kind: policy.KindInventory, OwnerID: inv.SellerID}
	if !policy.CanAccess(actor, res, policy.ActionOverrideLock) {
		return store.EnforceLock, domain.ErrInventoryLocked
	}

	s.log(ctx).Info("confirmed inventory lock overridden",
		zap.String("inventory_id", inv.ID),
		zap.String("action", action),
		zap.String("actor", actor.Username),
		zap.Bool("override", true),
	)
	s.metrics.LockOverride()
	s.logAudit(ctx, "inventory_override", "inventory", inv.ID, action)
	return store.OverrideLock, nil
}

// changed runs after every write that can move a reported figure.
func (s *Service) changed(ctx context.Context) {
	s.stats.Invalidate(ctx)
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logging.FromContextOr(ctx, s.logger)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorID:       actor.UserID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now(),
	}); err != nil {
		s.log(ctx).Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err),
		)
	}
}

// ListAuditLogs returns the entries of one calendar day, newest first.
func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if _, err := s.authorize(ctx, policy.Resource{Kind: policy.KindAudit}, policy.ActionRead); err != nil {
		return nil, err
	}

	day := domain.Today(s.now())
	if date != "" {
		parsed, err := domain.ParseDate(date)
		if err != nil {
			return nil, validate.Field("date", "must be a valid ISO 8601 date")
		}
		day = parsed
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, day.Time, day.AddDays(1).Time, limit)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
