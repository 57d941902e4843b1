package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/guard"
	"github.com/Najinc/painperdu/internal/policy"
	"github.com/Najinc/painperdu/internal/query"
	"github.com/Najinc/painperdu/internal/validate"
)

func scheduleResource(sellerID string) policy.Resource {
	return policy.Resource{Kind: policy.KindSchedule, OwnerID: sellerID}
}

func (s *Service) ListSchedules(ctx context.Context, filter query.ScheduleFilter) (domain.ScheduleList, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ScheduleList{}, domain.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		filter.SellerID = actor.UserID
	}
	if _, err := s.authorize(ctx, scheduleResource(filter.SellerID), policy.ActionRead); err != nil {
		return domain.ScheduleList{}, err
	}

	schedules, total, err := s.repo.ListSchedules(ctx, filter)
	if err != nil {
		return domain.ScheduleList{}, err
	}
	return domain.ScheduleList{Schedules: schedules, Pagination: filter.Page.Paginate(total)}, nil
}

func (s *Service) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	schedule, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return domain.Schedule{}, err
	}
	if _, err := s.authorize(ctx, scheduleResource(schedule.SellerID), policy.ActionRead); err != nil {
		return domain.Schedule{}, err
	}
	return *schedule, nil
}

func (s *Service) CreateSchedule(ctx context.Context, req domain.ScheduleCreateRequest) (domain.Schedule, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Schedule{}, domain.ErrUnauthenticated
	}
	if err := validate.Struct(req); err != nil {
		return domain.Schedule{}, err
	}
	sellerID, err := s.resolveSeller(ctx, actor, req.SellerID)
	if err != nil {
		return domain.Schedule{}, err
	}
	if _, err := s.authorize(ctx, scheduleResource(sellerID), policy.ActionCreate); err != nil {
		return domain.Schedule{}, err
	}

	day, err := domain.ParseDate(req.Date)
	if err != nil {
		return domain.Schedule{}, validate.Field("date", "must be a valid ISO 8601 date")
	}
	kind := req.Type
	if kind == "" {
		kind = domain.ScheduleWork
	}
	now := s.now()
	schedule := domain.Schedule{
		SellerID:  sellerID,
		Date:      day,
		Type:      kind,
		Location:  strings.TrimSpace(req.Location),
		Notes:     strings.TrimSpace(req.Notes),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if schedule.StartTime, err = parseClock("startTime", req.StartTime); err != nil {
		return domain.Schedule{}, err
	}
	if schedule.EndTime, err = parseClock("endTime", req.EndTime); err != nil {
		return domain.Schedule{}, err
	}
	if err := schedule.Validate(); err != nil {
		return domain.Schedule{}, err
	}
	if err := s.checkScheduleConflict(ctx, schedule); err != nil {
		return domain.Schedule{}, err
	}

	created, err := s.repo.CreateSchedule(ctx, schedule)
	if err != nil {
		return domain.Schedule{}, err
	}
	s.changed(ctx)
	s.logAudit(ctx, "schedule_create", "schedule", created.ID, describeSchedule(*created))
	return *created, nil
}

// UpdateSchedule applies the sent fields. An empty startTime or endTime
// clears it, which turns the entry into a whole-day one.
func (s *Service) UpdateSchedule(ctx context.Context, id string, req domain.ScheduleUpdateRequest) (domain.Schedule, error) {
	existing, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return domain.Schedule{}, err
	}
	if _, err := s.authorize(ctx, scheduleResource(existing.SellerID), policy.ActionUpdate); err != nil {
		return domain.Schedule{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.Schedule{}, err
	}

	next := *existing
	next.Seller = nil
	if req.Date != nil {
		day, err := domain.ParseDate(*req.Date)
		if err != nil {
			return domain.Schedule{}, validate.Field("date", "must be a valid ISO 8601 date")
		}
		next.Date = day
	}
	if req.Type != nil {
		next.Type = *req.Type
	}
	if req.StartTime != nil {
		if next.StartTime, err = parseClock("startTime", *req.StartTime); err != nil {
			return domain.Schedule{}, err
		}
	}
	if req.EndTime != nil {
		if next.EndTime, err = parseClock("endTime", *req.EndTime); err != nil {
			return domain.Schedule{}, err
		}
	}
	if req.Location != nil {
		next.Location = strings.TrimSpace(*req.Location)
	}
	if req.Notes != nil {
		next.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.Active != nil {
		next.Active = *req.Active
	}
	next.UpdatedAt = s.now()
	if err := next.Validate(); err != nil {
		return domain.Schedule{}, err
	}
	if err := s.checkScheduleConflict(ctx, next); err != nil {
		return domain.Schedule{}, err
	}

	updated, err := s.repo.UpdateSchedule(ctx, next)
	if err != nil {
		return domain.Schedule{}, err
	}
	s.changed(ctx)
	s.logAudit(ctx, "schedule_update", "schedule", updated.ID, describeSchedule(*updated))
	return *updated, nil
}

func (s *Service) DeleteSchedule(ctx context.Context, id string) error {
	existing, err := s.repo.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.authorize(ctx, scheduleResource(existing.SellerID), policy.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.DeleteSchedule(ctx, id); err != nil {
		return err
	}
	s.changed(ctx)
	s.logAudit(ctx, "schedule_delete", "schedule", id, describeSchedule(*existing))
	return nil
}

// WeekSchedule returns the active entries of the Monday to Sunday week that
// contains date, one bucket per day.
func (s *Service) WeekSchedule(ctx context.Context, date string) (domain.WeekSchedule, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return domain.WeekSchedule{}, validate.Field("date", "must be a valid ISO 8601 date")
	}
	start := day.StartOfWeek()
	end := start.AddDays(6)

	schedules, err := s.activeSchedules(ctx, query.Between(start, end))
	if err != nil {
		return domain.WeekSchedule{}, err
	}

	week := domain.WeekSchedule{WeekStart: start, WeekEnd: end, Days: make([]domain.DaySchedule, 7)}
	for i := range week.Days {
		d := start.AddDays(i)
		week.Days[i] = domain.DaySchedule{Date: d, Weekday: strings.ToLower(d.Weekday().String()), Schedules: []domain.Schedule{}}
	}
	for _, sc := range schedules {
		i := int(sc.Date.Sub(start.Time).Hours() / 24)
		if i >= 0 && i < len(week.Days) {
			week.Days[i].Schedules = append(week.Days[i].Schedules, sc)
		}
	}
	return week, nil
}

func (s *Service) TodaySchedules(ctx context.Context) ([]domain.Schedule, error) {
	return s.activeSchedules(ctx, query.Day(domain.Today(s.now())))
}

func (s *Service) activeSchedules(ctx context.Context, r query.DateRange) ([]domain.Schedule, error) {
	active := true
	list, err := s.ListSchedules(ctx, query.ScheduleFilter{
		Active: &active,
		Range:  r,
		Sort:   query.Sort{Field: "date"},
	})
	if err != nil {
		return nil, err
	}
	return list.Schedules, nil
}

// checkScheduleConflict gives an early, precise error. The store repeats the
// check inside its write.
func (s *Service) checkScheduleConflict(ctx context.Context, candidate domain.Schedule) error {
	if !candidate.Active {
		return nil
	}
	sameDay, _, err := s.repo.ListSchedules(ctx, query.ScheduleFilter{
		SellerID: candidate.SellerID,
		Range:    query.Day(candidate.Date),
	})
	if err != nil {
		return err
	}
	if _, conflict := guard.FindScheduleConflict(sameDay, candidate); conflict {
		return domain.ErrScheduleConflict
	}
	return nil
}

func parseClock(field string, raw string) (*domain.ClockTime, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	c, err := domain.ParseClock(raw)
	if err != nil {
		return nil, validate.Field(field, "must be a time in HH:MM format")
	}
	return &c, nil
}

func describeSchedule(sc domain.Schedule) string {
	start, end := sc.Span()
	return fmt.Sprintf("%s %s %s-%s seller=%s", sc.Type, sc.Date, start, end, sc.SellerID)
}
