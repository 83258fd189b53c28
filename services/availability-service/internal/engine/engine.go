package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	otelx "github.com/slotwise/slotwise/libs/otel"
	"github.com/slotwise/slotwise/services/availability-service/internal/availability"
	"github.com/slotwise/slotwise/services/availability-service/internal/metrics"
	"github.com/slotwise/slotwise/services/availability-service/internal/model"
	"github.com/slotwise/slotwise/services/availability-service/internal/schedule"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// AnyStaff selects every active staff member assigned to the service.
const AnyStaff = "any"

const (
	defaultStaffConcurrency = 8
	defaultMaxRangeDays     = 31
)

type Stores struct {
	Settings  SettingsStore
	Catalog   CatalogStore
	Rules     RuleStore
	Blackouts BlackoutStore
	Bookings  BookingStore
	Holds     HoldStore // optional
}

type Config struct {
	StaffConcurrency int
	MaxRangeDays     int
	Clock            Clock
}

// Engine computes bookable slots. It keeps no state between calls; every call reads the
// stores once and runs the pure pipeline over that snapshot.
type Engine struct {
	stores Stores
	cfg    Config
	logger *slog.Logger
	tracer trace.Tracer
}

func New(stores Stores, logger *slog.Logger, cfg Config) *Engine {
	if cfg.StaffConcurrency <= 0 {
		cfg.StaffConcurrency = defaultStaffConcurrency
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = defaultMaxRangeDays
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	return &Engine{
		stores: stores,
		cfg:    cfg,
		logger: logger,
		tracer: otelx.Tracer("availability-engine"),
	}
}

type Request struct {
	BusinessID string
	ServiceID  string
	StaffID    string // AnyStaff or empty for every assigned staff member
	Date       civil.Date
}

type RangeRequest struct {
	BusinessID string
	ServiceID  string
	StaffID    string
	From       civil.Date
	Days       int
}

type OfferRequest struct {
	BusinessID string
	ServiceID  string
	StaffID    string
	StartAt    time.Time
	HoldID     string // this hold does not block StartAt
}

// GetAvailability returns the ordered slots for one business-local date.
func (e *Engine) GetAvailability(ctx context.Context, req Request) ([]model.Slot, error) {
	return e.GetAvailabilityRange(ctx, RangeRequest{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		StaffID:    req.StaffID,
		From:       req.Date,
		Days:       1,
	})
}

// GetAvailabilityRange returns the ordered slots for Days consecutive dates starting at From.
func (e *Engine) GetAvailabilityRange(ctx context.Context, req RangeRequest) (slots []model.Slot, err error) {
	mode := "single"
	if isAny(req.StaffID) {
		mode = "any"
	}
	started := time.Now()
	ctx, span := e.tracer.Start(ctx, "engine.GetAvailability", trace.WithAttributes(
		attribute.String("business_id", req.BusinessID),
		attribute.String("service_id", req.ServiceID),
		attribute.String("staff_mode", mode),
		attribute.Int("days", req.Days),
	))
	defer func() {
		span.SetAttributes(attribute.Int("slots", len(slots)))
		otelx.EndSpan(span, err)
		metrics.RecordAvailability(mode, Outcome(err), time.Since(started), len(slots))
	}()

	if err := e.validate(req.BusinessID, req.ServiceID, req.From); err != nil {
		return nil, err
	}
	if req.Days < 1 || req.Days > e.cfg.MaxRangeDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, e.cfg.MaxRangeDays)
	}

	p, err := e.prepare(ctx, req.BusinessID, req.ServiceID, req.StaffID)
	if err != nil {
		e.logFailure(ctx, "availability failed", req.BusinessID, err)
		return nil, err
	}
	slots, err = e.run(ctx, p, req.From, req.Days)
	if err != nil {
		e.logFailure(ctx, "availability failed", req.BusinessID, err)
		return nil, err
	}
	return slots, nil
}

// IsOffered reports whether StartAt is currently offered for the given staff member.
// The booking flow calls it right before inserting; the insert itself is still guarded by storage.
func (e *Engine) IsOffered(ctx context.Context, req OfferRequest) (bool, error) {
	if isAny(req.StaffID) {
		return false, fmt.Errorf("%w: staff_id is required", ErrInvalidInput)
	}
	if req.StartAt.IsZero() {
		return false, fmt.Errorf("%w: start time is required", ErrInvalidInput)
	}
	if err := e.validate(req.BusinessID, req.ServiceID, civil.DateOf(req.StartAt)); err != nil {
		return false, err
	}

	p, err := e.prepare(ctx, req.BusinessID, req.ServiceID, req.StaffID)
	if err != nil {
		return false, err
	}
	p.ignoreHold = req.HoldID
	date, _ := schedule.LocalDate(req.StartAt, p.loc)
	slots, err := e.run(ctx, p, date, 1)
	if err != nil {
		return false, err
	}
	for _, s := range slots {
		if s.StartAt.Equal(req.StartAt) {
			return true, nil
		}
	}
	return false, nil
}

// SlotEnd is the end of a booking of serviceID that starts at start.
func (e *Engine) SlotEnd(ctx context.Context, businessID, serviceID string, start time.Time) (time.Time, error) {
	svc, err := e.stores.Catalog.GetService(ctx, businessID, serviceID)
	if err != nil {
		return time.Time{}, storeErr("service", err)
	}
	if svc.Duration() <= 0 {
		return time.Time{}, fmt.Errorf("%w: service %s has no duration", ErrConfiguration, serviceID)
	}
	return start.Add(svc.Duration()), nil
}

// Location returns the business timezone.
func (e *Engine) Location(ctx context.Context, businessID string) (*time.Location, error) {
	settings, err := e.stores.Settings.GetSettings(ctx, businessID)
	if err != nil {
		return nil, storeErr("settings", err)
	}
	loc, err := schedule.LoadLocation(settings.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return loc, nil
}

func (e *Engine) validate(businessID, serviceID string, date civil.Date) error {
	switch {
	case strings.TrimSpace(businessID) == "":
		return fmt.Errorf("%w: business_id is required", ErrInvalidInput)
	case strings.TrimSpace(serviceID) == "":
		return fmt.Errorf("%w: service_id is required", ErrInvalidInput)
	case !date.IsValid():
		return fmt.Errorf("%w: invalid date", ErrInvalidInput)
	}
	return nil
}

// plan is everything resolved once per call before the per-staff fan-out.
type plan struct {
	businessID string
	settings   model.BusinessSettings
	loc        *time.Location
	service    model.Service
	staff      []model.Staff
	now        time.Time
	ignoreHold string
}

func (e *Engine) prepare(ctx context.Context, businessID, serviceID, staffID string) (plan, error) {
	settings, err := e.stores.Settings.GetSettings(ctx, businessID)
	if err != nil {
		return plan{}, storeErr("business", err)
	}
	if err := settings.Validate(); err != nil {
		return plan{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	loc, err := schedule.LoadLocation(settings.Timezone)
	if err != nil {
		return plan{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	svc, err := e.stores.Catalog.GetService(ctx, businessID, serviceID)
	if err != nil {
		return plan{}, storeErr("service", err)
	}
	if svc.Duration() <= 0 {
		return plan{}, fmt.Errorf("%w: service %s has no duration", ErrConfiguration, serviceID)
	}

	p := plan{
		businessID: businessID,
		settings:   settings,
		loc:        loc,
		service:    svc,
		now:        e.cfg.Clock.Now(),
	}
	if !svc.Active {
		return p, nil
	}

	if isAny(staffID) {
		assigned, err := e.stores.Catalog.ListStaffForService(ctx, businessID, serviceID)
		if err != nil {
			return plan{}, storeErr("staff", err)
		}
		for _, st := range assigned {
			if st.Active {
				p.staff = append(p.staff, st)
			}
		}
		return p, nil
	}

	st, err := e.stores.Catalog.GetStaff(ctx, businessID, staffID)
	if err != nil {
		return plan{}, storeErr("staff", err)
	}
	if !st.Active {
		return p, nil
	}
	assigned, err := e.stores.Catalog.ListStaffForService(ctx, businessID, serviceID)
	if err != nil {
		return plan{}, storeErr("staff", err)
	}
	if slices.ContainsFunc(assigned, func(a model.Staff) bool { return a.ID == st.ID }) {
		p.staff = []model.Staff{st}
	}
	return p, nil
}

func (e *Engine) run(ctx context.Context, p plan, from civil.Date, days int) ([]model.Slot, error) {
	slots := []model.Slot{}
	if len(p.staff) == 0 {
		return slots, nil
	}

	// Only dates between today and the advance horizon can yield slots.
	today, _ := schedule.LocalDate(p.now, p.loc)
	last := from.AddDays(days - 1)
	horizon := today.AddDays(p.settings.MaxAdvanceDays)
	if from.Before(today) {
		from = today
	}
	if last.After(horizon) {
		last = horizon
	}
	if last.Before(from) {
		return slots, nil
	}

	params := availability.SlotParams{
		Duration:       p.service.Duration(),
		Granularity:    p.settings.Granularity(),
		Location:       p.loc,
		Now:            p.now,
		MinLead:        p.settings.MinLead(),
		MaxAdvanceDays: p.settings.MaxAdvanceDays,
	}

	perStaff := make([][]model.Slot, len(p.staff))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.StaffConcurrency)
	for i, st := range p.staff {
		g.Go(func() error {
			s, err := e.staffSlots(gctx, p, st, from, last, params)
			perStaff[i] = s
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, s := range perStaff {
		slots = append(slots, s...)
	}
	SortSlots(slots)
	return slots, nil
}

func (e *Engine) staffSlots(ctx context.Context, p plan, st model.Staff, from, last civil.Date, params availability.SlotParams) ([]model.Slot, error) {
	ctx, span := e.tracer.Start(ctx, "engine.staffSlots", trace.WithAttributes(attribute.String("staff_id", st.ID)))
	var err error
	defer func() { otelx.EndSpan(span, err) }()

	start, _ := schedule.DayBounds(from, p.loc)
	_, end := schedule.DayBounds(last, p.loc)

	rules, err := e.stores.Rules.ListRules(ctx, p.businessID, st.ID, p.service.ID, from, last)
	if err != nil {
		err = storeErr("rules", err)
		return nil, err
	}
	blackouts, err := e.stores.Blackouts.ListBlackouts(ctx, p.businessID, st.ID, start, end)
	if err != nil {
		err = storeErr("blackouts", err)
		return nil, err
	}
	bookings, err := e.stores.Bookings.ListActiveBookings(ctx, p.businessID, st.ID, start, end)
	if err != nil {
		err = storeErr("bookings", err)
		return nil, err
	}
	busy := availability.BusyFromBookings(bookings)
	if e.stores.Holds != nil {
		holds, herr := e.stores.Holds.ListHolds(ctx, p.businessID, st.ID, start, end)
		if herr != nil {
			err = storeErr("holds", herr)
			return nil, err
		}
		if p.ignoreHold != "" {
			kept := make([]model.Hold, 0, len(holds))
			for _, h := range holds {
				if h.ID != p.ignoreHold {
					kept = append(kept, h)
				}
			}
			holds = kept
		}
		busy = append(busy, availability.BusyFromHolds(holds, p.now)...)
	}

	in := staffInput{
		staff:     st,
		serviceID: p.service.ID,
		rules:     rules,
		blackouts: availability.BlackoutIntervals(blackouts, st.ID),
		busy:      busy,
		loc:       p.loc,
		params:    params,
	}
	var out []model.Slot
	for d := from; !d.After(last); d = d.AddDays(1) {
		daySlots, derr := slotsForDay(in, d)
		if derr != nil {
			err = derr
			return nil, err
		}
		out = append(out, daySlots...)
	}
	return out, nil
}

// staffInput is the snapshot one staff member's pipeline runs over.
type staffInput struct {
	staff     model.Staff
	serviceID string
	rules     []model.AvailabilityRule
	blackouts []availability.Interval
	busy      []availability.Interval
	loc       *time.Location
	params    availability.SlotParams
}

// slotsForDay runs resolve, blackout subtraction, slot generation and conflict removal for one date.
func slotsForDay(in staffInput, date civil.Date) ([]model.Slot, error) {
	windows, err := schedule.Resolve(in.rules, in.serviceID, date, in.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: staff %s: %w", ErrConfiguration, in.staff.ID, err)
	}
	if len(windows) == 0 {
		return nil, nil
	}
	free := availability.ApplyBlackouts(schedule.ToIntervals(date, windows, in.loc), in.blackouts)
	candidates := availability.GenerateSlots(free, in.params)
	open := availability.RemoveConflicts(candidates, in.busy)

	out := make([]model.Slot, 0, len(open))
	for _, iv := range open {
		out = append(out, model.Slot{
			StaffID:   in.staff.ID,
			StaffName: in.staff.Name,
			StartAt:   iv.Start,
			EndAt:     iv.End,
		})
	}
	return out, nil
}

// SortSlots orders by start, then staff name, then staff id.
func SortSlots(slots []model.Slot) {
	slices.SortStableFunc(slots, func(a, b model.Slot) int {
		if c := a.StartAt.Compare(b.StartAt); c != 0 {
			return c
		}
		if c := strings.Compare(a.StaffName, b.StaffName); c != 0 {
			return c
		}
		return strings.Compare(a.StaffID, b.StaffID)
	})
}

func isAny(staffID string) bool {
	staffID = strings.TrimSpace(staffID)
	return staffID == "" || strings.EqualFold(staffID, AnyStaff)
}

func storeErr(what string, err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("%s %w", what, ErrNotFound)
	}
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, what, err)
}

func (e *Engine) logFailure(ctx context.Context, msg, businessID string, err error) {
	level := slog.LevelWarn
	if Outcome(err) == "store_unavailable" {
		level = slog.LevelError
	}
	e.logger.Log(ctx, level, msg, "business_id", businessID, "outcome", Outcome(err), "err", err)
}
