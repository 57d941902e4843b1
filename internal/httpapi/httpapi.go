package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/logging"
	"github.com/Najinc/painperdu/internal/metrics"
	"github.com/Najinc/painperdu/internal/service"
	"github.com/Najinc/painperdu/internal/store"
	"github.com/Najinc/painperdu/internal/validate"
	"github.com/Najinc/painperdu/internal/xid"
)

const maxBodyBytes = 1 << 20

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	logger        *zap.Logger
	metrics       *metrics.Metrics
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, logger *zap.Logger, m *metrics.Metrics) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		logger:        logger,
		metrics:       m,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", a.handleHealth)
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics.Handler())
	}

	mux.HandleFunc("POST /api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("GET /api/v1/auth/me", a.requireAuth(a.handleMe))
	mux.HandleFunc("POST /api/v1/auth/refresh", a.requireAuth(a.handleRefresh))

	mux.HandleFunc("GET /api/v1/inventory", a.requireAuth(a.handleListInventories))
	mux.HandleFunc("POST /api/v1/inventory", a.requireAuth(a.handleCreateInventory))
	mux.HandleFunc("GET /api/v1/inventory/stock/current", a.requireAuth(a.handleCurrentStock))
	mux.HandleFunc("GET /api/v1/inventory/today", a.requireAuth(a.handleTodayInventories))
	mux.HandleFunc("GET /api/v1/inventory/history", a.requireAuth(a.handleInventoryHistory))
	mux.HandleFunc("GET /api/v1/inventory/{id}", a.requireAuth(a.handleGetInventory))
	mux.HandleFunc("PUT /api/v1/inventory/{id}", a.requireAuth(a.handleUpdateInventory))
	mux.HandleFunc("DELETE /api/v1/inventory/{id}", a.requireAuth(a.handleDeleteInventory))
	mux.HandleFunc("PATCH /api/v1/inventory/{id}/sales", a.requireAuth(a.handleRecordSales))
	mux.HandleFunc("PATCH /api/v1/inventory/{id}/confirm", a.requireAuth(a.handleConfirmInventory))

	mux.HandleFunc("GET /api/v1/categories", a.requireAuth(a.handleListCategories))
	mux.HandleFunc("POST /api/v1/categories", a.requireAuth(a.handleCreateCategory, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/categories/{id}", a.requireAuth(a.handleGetCategory))
	mux.HandleFunc("PUT /api/v1/categories/{id}", a.requireAuth(a.handleUpdateCategory, domain.RoleAdmin))
	mux.HandleFunc("DELETE /api/v1/categories/{id}", a.requireAuth(a.handleDeleteCategory, domain.RoleAdmin))

	mux.HandleFunc("GET /api/v1/products", a.requireAuth(a.handleListProducts))
	mux.HandleFunc("POST /api/v1/products", a.requireAuth(a.handleCreateProduct, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/products/category/{categoryId}", a.requireAuth(a.handleProductsByCategory))
	mux.HandleFunc("GET /api/v1/products/{id}", a.requireAuth(a.handleGetProduct))
	mux.HandleFunc("PUT /api/v1/products/{id}", a.requireAuth(a.handleUpdateProduct, domain.RoleAdmin))
	mux.HandleFunc("DELETE /api/v1/products/{id}", a.requireAuth(a.handleDeleteProduct, domain.RoleAdmin))

	mux.HandleFunc("GET /api/v1/schedules", a.requireAuth(a.handleListSchedules))
	mux.HandleFunc("POST /api/v1/schedules", a.requireAuth(a.handleCreateSchedule))
	mux.HandleFunc("GET /api/v1/schedules/today", a.requireAuth(a.handleTodaySchedules))
	mux.HandleFunc("GET /api/v1/schedules/week/{date}", a.requireAuth(a.handleWeekSchedule))
	mux.HandleFunc("GET /api/v1/schedules/{id}", a.requireAuth(a.handleGetSchedule))
	mux.HandleFunc("PUT /api/v1/schedules/{id}", a.requireAuth(a.handleUpdateSchedule))
	mux.HandleFunc("DELETE /api/v1/schedules/{id}", a.requireAuth(a.handleDeleteSchedule))

	mux.HandleFunc("GET /api/v1/users", a.requireAuth(a.handleListUsers, domain.RoleAdmin))
	mux.HandleFunc("POST /api/v1/users", a.requireAuth(a.handleCreateUser, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/users/sellers/active", a.requireAuth(a.handleActiveSellers, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/users/{id}", a.requireAuth(a.handleGetUser))
	mux.HandleFunc("PUT /api/v1/users/{id}", a.requireAuth(a.handleUpdateUser))
	mux.HandleFunc("DELETE /api/v1/users/{id}", a.requireAuth(a.handleDeleteUser, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/users/{id}/stats", a.requireAuth(a.handleUserStats))

	mux.HandleFunc("GET /api/v1/statistics/dashboard", a.requireAuth(a.handleDashboard, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/statistics/period", a.requireAuth(a.handlePeriodStats, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/statistics/sales", a.requireAuth(a.handleSalesStats, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/statistics/products", a.requireAuth(a.handleProductStats, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/statistics/waste", a.requireAuth(a.handleWasteStats, domain.RoleAdmin))
	mux.HandleFunc("GET /api/v1/statistics/sellers", a.requireAuth(a.handleSellersStats, domain.RoleAdmin))

	mux.HandleFunc("GET /api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

// requireAuth verifies the bearer token against the live account and, when
// roles are given, restricts the route to them.
func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.Verify(r.Context(), token)
		if err != nil {
			a.fail(w, r, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("insufficient permissions"))
			return
		}

		ctx := service.WithActor(r.Context(), actor)
		ctx = logging.WithLogger(ctx, logging.FromContextOr(ctx, a.logger).With(zap.String("user_id", actor.UserID)))
		next(w, r.WithContext(ctx))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" || len(requestID) > 64 {
			requestID = xid.RequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		logger := a.logger.With(zap.String("request_id", requestID))
		req := r.WithContext(logging.WithLogger(r.Context(), logger))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		startedAt := time.Now()
		a.serveRecovering(next, rec, req)
		elapsed := time.Since(startedAt)

		// the mux records the matched pattern on the request it was handed
		route := req.Pattern
		if route == "" {
			route = "unmatched"
		}
		a.metrics.ObserveRequest(r.Method, route, rec.status, elapsed)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("latency", elapsed),
		)
	})
}

// serveRecovering turns a handler panic into a logged 500. A panic with
// http.ErrAbortHandler is re-raised so net/http can abort the response.
func (a *API) serveRecovering(next http.Handler, rec *statusRecorder, r *http.Request) {
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if v == http.ErrAbortHandler {
			panic(v)
		}
		logging.FromContextOr(r.Context(), a.logger).Error("handler panic",
			zap.Any("panic", v),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Stack("stack"),
		)
		if rec.wroteHeader {
			rec.status = http.StatusInternalServerError
			return
		}
		writeError(rec, http.StatusInternalServerError, errors.New("internal server error"))
	}()
	next.ServeHTTP(rec, r)
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string {
	var maxBytes *http.MaxBytesError
	if errors.As(e.err, &maxBytes) {
		return fmt.Sprintf("request body exceeds %d bytes", maxBytes.Limit)
	}
	return "invalid JSON body: " + e.err.Error()
}

func (e *decodeError) Unwrap() error {
	return e.err
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

var badRequestErrors = []error{
	domain.ErrDuplicateInventory,
	domain.ErrInventoryLocked,
	domain.ErrAlreadyConfirmed,
	domain.ErrOversoldQuantity,
	domain.ErrInvalidOrInactiveProduct,
	domain.ErrDuplicateProduct,
	domain.ErrScheduleConflict,
	domain.ErrCategoryInUse,
	domain.ErrCategoryNotFound,
	domain.ErrProductInUse,
	domain.ErrDuplicateName,
	domain.ErrDuplicateUser,
	domain.ErrUserInUse,
	domain.ErrSelfDelete,
	domain.ErrSellerNotFound,
	domain.ErrInvalidDateRange,
	domain.ErrValueOutOfRange,
	store.ErrConflict,
}

func statusFor(err error) int {
	var verrs validate.Errors
	var invariant *domain.InvariantError
	var decode *decodeError
	switch {
	case errors.As(err, &verrs), errors.As(err, &invariant), errors.As(err, &decode):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrAccountInactive),
		errors.Is(err, errInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusInternalServerError
}

// fail maps err to its status and writes it. Field errors travel in the
// errors list.
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		logging.FromContextOr(r.Context(), a.logger).Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	var verrs validate.Errors
	var invariant *domain.InvariantError
	switch {
	case errors.As(err, &verrs):
		writeJSON(w, status, map[string]any{"message": "validation failed", "errors": verrs})
	case errors.As(err, &invariant):
		writeJSON(w, status, map[string]any{
			"message": "validation failed",
			"errors":  validate.Errors{{Field: invariant.Field, Message: invariant.Message}},
		})
	default:
		writeError(w, status, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause is logged by fail.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"message": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
