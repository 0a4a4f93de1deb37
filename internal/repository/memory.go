package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
	"github.com/thitipong-w/slotwise/internal/timeslot"
)

// In-memory repositories for tests and local development. They hold the same
// contracts as the Postgres implementations, including the write-time
// overlap guard on bookings.

// MemoryTenantRepository stores tenants in a map.
type MemoryTenantRepository struct {
	mu      sync.RWMutex
	tenants map[string]*domain.Tenant
}

func NewMemoryTenantRepository() *MemoryTenantRepository {
	return &MemoryTenantRepository{tenants: make(map[string]*domain.Tenant)}
}

func (r *MemoryTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tenants {
		if t.Slug == tenant.Slug && t.DeletedAt == nil {
			return domain.NewValidationError("slug", "already in use")
		}
	}
	cp := *tenant
	r.tenants[tenant.ID] = &cp
	return nil
}

func (r *MemoryTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok || t.DeletedAt != nil {
		return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryTenantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, t := range r.tenants {
		if t.Slug == slug && t.DeletedAt == nil {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("tenant slug %s: %w", slug, domain.ErrNotFound)
}

func (r *MemoryTenantRepository) UpdatePolicy(ctx context.Context, tenantID string, policy domain.BookingPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[tenantID]
	if !ok || t.DeletedAt != nil {
		return fmt.Errorf("tenant %s: %w", tenantID, domain.ErrNotFound)
	}
	t.Policy = policy
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryTenantRepository) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tenants[id]
	if !ok || t.DeletedAt != nil {
		return fmt.Errorf("tenant %s: %w", id, domain.ErrNotFound)
	}
	now := time.Now().UTC()
	t.DeletedAt = &now
	t.IsActive = false
	return nil
}

// MemoryCatalogRepository stores resources, services and assignments.
type MemoryCatalogRepository struct {
	mu          sync.RWMutex
	resources   map[string]*domain.Resource
	services    map[string]*domain.Service
	assignments map[string]bool // tenantID/serviceID/resourceID
}

func NewMemoryCatalogRepository() *MemoryCatalogRepository {
	return &MemoryCatalogRepository{
		resources:   make(map[string]*domain.Resource),
		services:    make(map[string]*domain.Service),
		assignments: make(map[string]bool),
	}
}

func (r *MemoryCatalogRepository) CreateResource(ctx context.Context, res *domain.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *res
	r.resources[res.ID] = &cp
	return nil
}

func (r *MemoryCatalogRepository) GetResource(ctx context.Context, tenantID, resourceID string) (*domain.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[resourceID]
	if !ok || res.TenantID != tenantID {
		return nil, fmt.Errorf("resource %s: %w", resourceID, domain.ErrNotFound)
	}
	cp := *res
	return &cp, nil
}

func (r *MemoryCatalogRepository) CreateService(ctx context.Context, svc *domain.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *svc
	r.services[svc.ID] = &cp
	return nil
}

func (r *MemoryCatalogRepository) GetService(ctx context.Context, tenantID, serviceID string) (*domain.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	svc, ok := r.services[serviceID]
	if !ok || svc.TenantID != tenantID {
		return nil, fmt.Errorf("service %s: %w", serviceID, domain.ErrNotFound)
	}
	cp := *svc
	return &cp, nil
}

func (r *MemoryCatalogRepository) AssignService(ctx context.Context, tenantID, serviceID, resourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if svc, ok := r.services[serviceID]; !ok || svc.TenantID != tenantID {
		return fmt.Errorf("service %s: %w", serviceID, domain.ErrNotFound)
	}
	if res, ok := r.resources[resourceID]; !ok || res.TenantID != tenantID {
		return fmt.Errorf("resource %s: %w", resourceID, domain.ErrNotFound)
	}
	r.assignments[tenantID+"/"+serviceID+"/"+resourceID] = true
	return nil
}

func (r *MemoryCatalogRepository) IsServiceAssignable(ctx context.Context, tenantID, serviceID, resourceID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.assignments[tenantID+"/"+serviceID+"/"+resourceID], nil
}

// MemoryScheduleRepository stores availability rules and exceptions.
type MemoryScheduleRepository struct {
	mu         sync.RWMutex
	rules      map[string][]*domain.AvailabilityRule // tenantID/resourceID
	exceptions map[string][]*domain.AvailabilityException
}

func NewMemoryScheduleRepository() *MemoryScheduleRepository {
	return &MemoryScheduleRepository{
		rules:      make(map[string][]*domain.AvailabilityRule),
		exceptions: make(map[string][]*domain.AvailabilityException),
	}
}

func (r *MemoryScheduleRepository) ReplaceRules(ctx context.Context, tenantID, resourceID string, rules []*domain.AvailabilityRule) error {
	if err := domain.ValidateRuleSet(rules); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]*domain.AvailabilityRule, len(rules))
	for i, rule := range rules {
		c := *rule
		cp[i] = &c
	}
	r.rules[tenantID+"/"+resourceID] = cp
	return nil
}

func (r *MemoryScheduleRepository) RulesForResource(ctx context.Context, tenantID, resourceID string) ([]*domain.AvailabilityRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rules := r.rules[tenantID+"/"+resourceID]
	out := make([]*domain.AvailabilityRule, len(rules))
	for i, rule := range rules {
		c := *rule
		out[i] = &c
	}
	return out, nil
}

func (r *MemoryScheduleRepository) SaveException(ctx context.Context, ex *domain.AvailabilityException) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ex.TenantID + "/" + ex.ResourceID
	// One exception per date: replace on collision.
	for i, existing := range r.exceptions[key] {
		if existing.Date == ex.Date {
			cp := *ex
			r.exceptions[key][i] = &cp
			return nil
		}
	}
	cp := *ex
	r.exceptions[key] = append(r.exceptions[key], &cp)
	return nil
}

func (r *MemoryScheduleRepository) ExceptionsForRange(ctx context.Context, tenantID, resourceID string, from, to string) ([]*domain.AvailabilityException, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.AvailabilityException
	for _, ex := range r.exceptions[tenantID+"/"+resourceID] {
		// Dates are "2006-01-02": lexical order is chronological order.
		if ex.Date >= from && ex.Date <= to {
			cp := *ex
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// MemoryBookingRepository stores bookings and enforces slot exclusivity
// through an IntervalGuard, mirroring the Postgres exclusion constraint.
type MemoryBookingRepository struct {
	mu       sync.RWMutex
	bookings map[string]*domain.Booking
	byIdem   map[string]string // tenantID/key -> bookingID
	guard    *timeslot.Guard
}

func NewMemoryBookingRepository() *MemoryBookingRepository {
	return &MemoryBookingRepository{
		bookings: make(map[string]*domain.Booking),
		byIdem:   make(map[string]string),
		guard:    timeslot.NewGuard(),
	}
}

func (r *MemoryBookingRepository) CreateExclusive(ctx context.Context, b *domain.Booking) error {
	iv, err := timeslot.NewInterval(b.StartTime, b.EndTime)
	if err != nil {
		return err
	}
	r.mu.RLock()
	_, dup := r.byIdem[b.TenantID+"/"+b.IdempotencyKey]
	r.mu.RUnlock()
	if dup {
		return fmt.Errorf("booking %s: %w", b.IdempotencyKey, domain.ErrDuplicateIdempotencyKey)
	}
	if err := r.guard.Reserve(b.TenantID, b.ResourceID, b.ID, iv); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
	r.byIdem[b.TenantID+"/"+b.IdempotencyKey] = b.ID
	return nil
}

func (r *MemoryBookingRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok || b.TenantID != tenantID {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (r *MemoryBookingRepository) GetByIdempotencyKey(ctx context.Context, tenantID, key string) (*domain.Booking, error) {
	r.mu.RLock()
	id, ok := r.byIdem[tenantID+"/"+key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("idempotency key %s: %w", key, domain.ErrNotFound)
	}
	return r.GetByID(ctx, tenantID, id)
}

func (r *MemoryBookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.bookings[b.ID]
	if !ok || prev.TenantID != b.TenantID {
		return fmt.Errorf("booking %s: %w", b.ID, domain.ErrNotFound)
	}
	cp := *b
	r.bookings[b.ID] = &cp
	// Terminal bookings stop holding their slot.
	if prev.HoldsSlot() && !b.HoldsSlot() {
		r.guard.Release(b.TenantID, b.ResourceID, b.ID)
	}
	return nil
}

func (r *MemoryBookingRepository) Delete(ctx context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.TenantID != tenantID {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	delete(r.bookings, id)
	delete(r.byIdem, tenantID+"/"+b.IdempotencyKey)
	r.guard.Release(tenantID, b.ResourceID, id)
	return nil
}

func (r *MemoryBookingRepository) ActiveBookingsInRange(ctx context.Context, tenantID, resourceID string, window timeslot.Interval) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Booking
	for _, b := range r.bookings {
		if b.TenantID != tenantID || b.ResourceID != resourceID || !b.HoldsSlot() {
			continue
		}
		iv, err := timeslot.NewInterval(b.StartTime, b.EndTime)
		if err != nil {
			continue
		}
		if iv.Overlaps(window) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *MemoryBookingRepository) ExpiredPending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domain.Booking
	for _, b := range r.bookings {
		if b.Status == domain.BookingStatusPending && b.CreatedAt.Before(cutoff) {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MemoryPaymentRepository stores payments, fees, transitions and the
// provider-event inbox.
type MemoryPaymentRepository struct {
	mu          sync.RWMutex
	payments    map[string]*domain.Payment
	byBooking   map[string]string // tenantID/bookingID -> paymentID
	bySetup     map[string]string // provider setup id -> paymentID
	fees        map[string][]*domain.PaymentFee
	transitions map[string][]*domain.PaymentTransition
	inbox       map[string]string // provider event id -> event type
}

func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{
		payments:    make(map[string]*domain.Payment),
		byBooking:   make(map[string]string),
		bySetup:     make(map[string]string),
		fees:        make(map[string][]*domain.PaymentFee),
		transitions: make(map[string][]*domain.PaymentTransition),
		inbox:       make(map[string]string),
	}
}

func (r *MemoryPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	r.byBooking[p.TenantID+"/"+p.BookingID] = p.ID
	if p.ProviderSetupID != "" {
		r.bySetup[p.ProviderSetupID] = p.ID
	}
	return nil
}

func (r *MemoryPaymentRepository) get(id string) (*domain.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, domain.ErrNotFound)
	}
	cp := *p
	cp.Fees = append([]domain.PaymentFee(nil), p.Fees...)
	return &cp, nil
}

func (r *MemoryPaymentRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.get(id)
	if err != nil {
		return nil, err
	}
	if p.TenantID != tenantID {
		return nil, fmt.Errorf("payment %s: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

func (r *MemoryPaymentRepository) GetByBookingID(ctx context.Context, tenantID, bookingID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byBooking[tenantID+"/"+bookingID]
	if !ok {
		return nil, fmt.Errorf("payment for booking %s: %w", bookingID, domain.ErrNotFound)
	}
	return r.get(id)
}

func (r *MemoryPaymentRepository) GetByProviderSetupID(ctx context.Context, setupID string) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.bySetup[setupID]
	if !ok {
		return nil, fmt.Errorf("payment for setup %s: %w", setupID, domain.ErrNotFound)
	}
	return r.get(id)
}

func (r *MemoryPaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.ID]; !ok {
		return fmt.Errorf("payment %s: %w", p.ID, domain.ErrNotFound)
	}
	cp := *p
	cp.Fees = append([]domain.PaymentFee(nil), p.Fees...)
	r.payments[p.ID] = &cp
	if p.ProviderSetupID != "" {
		r.bySetup[p.ProviderSetupID] = p.ID
	}
	return nil
}

func (r *MemoryPaymentRepository) AddFee(ctx context.Context, fee *domain.PaymentFee) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *fee
	r.fees[fee.PaymentID] = append(r.fees[fee.PaymentID], &cp)
	return nil
}

func (r *MemoryPaymentRepository) SaveTransition(ctx context.Context, tr *domain.PaymentTransition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tr
	r.transitions[tr.PaymentID] = append(r.transitions[tr.PaymentID], &cp)
	return nil
}

func (r *MemoryPaymentRepository) Transitions(ctx context.Context, paymentID string) ([]*domain.PaymentTransition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	trs := r.transitions[paymentID]
	out := make([]*domain.PaymentTransition, len(trs))
	for i, tr := range trs {
		cp := *tr
		out[i] = &cp
	}
	return out, nil
}

func (r *MemoryPaymentRepository) MarkEventProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.inbox[eventID]; seen {
		return false, nil
	}
	r.inbox[eventID] = eventType
	return true, nil
}
