package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	scheduling "fleetcare-cloud/internal/scheduling/domain"
)

// Scheduler is an in-memory scheduling and parts collaborator. It backs the
// demo deployment and tests; production deployments swap in a real dealer
// management system behind the same interfaces.
type Scheduler struct {
	mu          sync.Mutex
	centers     map[string]scheduling.Center
	slots       map[string]*scheduling.Slot
	bookings    map[string]*scheduling.Booking
	inventory   map[string]map[string]int // centerID -> partID -> quantity
	technicians map[string]scheduling.Technician
	reserved    map[string][]string // reservationRef -> partIDs
	seq         int
	clock       Clock
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Option customizes the scheduler.
type Option func(*Scheduler)

// WithClock assigns a clock.
func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewScheduler constructs an empty scheduler.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		centers:     make(map[string]scheduling.Center),
		slots:       make(map[string]*scheduling.Slot),
		bookings:    make(map[string]*scheduling.Booking),
		inventory:   make(map[string]map[string]int),
		technicians: make(map[string]scheduling.Technician),
		reserved:    make(map[string][]string),
		clock:       systemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCenter registers a center with its slots.
func (s *Scheduler) AddCenter(center scheduling.Center, slots ...scheduling.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.centers[center.CenterID] = center
	for _, slot := range slots {
		slot.CenterID = center.CenterID
		copied := slot
		s.slots[slot.SlotID] = &copied
	}
}

// SetInventory sets the part quantity at a center.
func (s *Scheduler) SetInventory(centerID, partID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	parts := s.inventory[centerID]
	if parts == nil {
		parts = make(map[string]int)
		s.inventory[centerID] = parts
	}
	parts[partID] = quantity
}

// AddTechnician registers a technician.
func (s *Scheduler) AddTechnician(tech scheduling.Technician) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.technicians[tech.TechnicianID] = tech
}

// FindCenters returns centers in the given city, or all centers when none
// match (the caller still gets somewhere to send the vehicle).
func (s *Scheduler) FindCenters(ctx context.Context, city string) ([]scheduling.Center, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched, all []scheduling.Center
	for _, center := range s.centers {
		all = append(all, center)
		if strings.EqualFold(center.City, city) {
			matched = append(matched, center)
		}
	}
	out := matched
	if len(out) == 0 {
		out = all
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CenterID < out[j].CenterID })
	return out, nil
}

// ListSlots returns open slots for a center ordered by start time.
func (s *Scheduler) ListSlots(ctx context.Context, centerID string) ([]scheduling.Slot, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.centers[centerID]; !ok {
		return nil, scheduling.ErrCenterNotFound
	}
	var slots []scheduling.Slot
	for _, slot := range s.slots {
		if slot.CenterID == centerID && slot.Available {
			slots = append(slots, *slot)
		}
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].StartsAt.Before(slots[j].StartsAt) })
	return slots, nil
}

// EarliestSlot returns the soonest open slot at a center.
func (s *Scheduler) EarliestSlot(ctx context.Context, centerID string) (scheduling.Slot, error) {
	slots, err := s.ListSlots(ctx, centerID)
	if err != nil {
		return scheduling.Slot{}, err
	}
	if len(slots) == 0 {
		return scheduling.Slot{}, scheduling.ErrNoSlots
	}
	return slots[0], nil
}

// Book confirms an appointment for an open slot.
func (s *Scheduler) Book(ctx context.Context, req scheduling.BookingRequest) (scheduling.Booking, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	slot, ok := s.slots[req.SlotID]
	if !ok {
		return scheduling.Booking{}, scheduling.ErrSlotNotFound
	}
	if !slot.Available {
		return scheduling.Booking{}, scheduling.ErrSlotUnavailable
	}
	slot.Available = false
	s.seq++
	now := s.clock.Now()
	booking := scheduling.Booking{
		BookingID:       fmt.Sprintf("BK%s%03d", now.Format("20060102"), s.seq),
		VehicleID:       req.VehicleID,
		CenterID:        slot.CenterID,
		SlotID:          slot.SlotID,
		StartsAt:        slot.StartsAt,
		ServiceType:     req.ServiceType,
		Priority:        req.Priority,
		PredictedIssues: req.PredictedIssues,
		Status:          scheduling.BookingConfirmed,
		CreatedAt:       now,
	}
	s.bookings[booking.BookingID] = &booking
	return booking, nil
}

// Cancel releases a booking and reopens its slot.
func (s *Scheduler) Cancel(ctx context.Context, bookingID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[bookingID]
	if !ok {
		return scheduling.ErrBookingNotFound
	}
	if booking.Status == scheduling.BookingCancelled {
		return nil
	}
	booking.Status = scheduling.BookingCancelled
	if slot, ok := s.slots[booking.SlotID]; ok {
		slot.Available = true
	}
	return nil
}

// Booking returns a booking by id. Used by tests and handlers.
func (s *Scheduler) Booking(bookingID string) (scheduling.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[bookingID]
	if !ok {
		return scheduling.Booking{}, false
	}
	return *booking, true
}

// CheckAvailability reports whether every part is in stock at the center.
func (s *Scheduler) CheckAvailability(ctx context.Context, partIDs []string, centerID string) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.centers[centerID]; !ok {
		return false, scheduling.ErrCenterNotFound
	}
	parts := s.inventory[centerID]
	for _, partID := range partIDs {
		if parts[partID] <= 0 {
			return false, nil
		}
	}
	return true, nil
}

// Reserve holds parts against a booking and returns a reservation ref.
func (s *Scheduler) Reserve(ctx context.Context, partIDs []string, bookingID string) (string, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	booking, ok := s.bookings[bookingID]
	if !ok {
		return "", scheduling.ErrBookingNotFound
	}
	parts := s.inventory[booking.CenterID]
	for _, partID := range partIDs {
		if parts[partID] <= 0 {
			return "", fmt.Errorf("scheduling: part %s out of stock at %s", partID, booking.CenterID)
		}
	}
	for _, partID := range partIDs {
		parts[partID]--
	}
	ref := "PR" + bookingID
	s.reserved[ref] = append([]string(nil), partIDs...)
	return ref, nil
}

// Release returns reserved parts to inventory.
func (s *Scheduler) Release(ctx context.Context, reservationRef string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	partIDs, ok := s.reserved[reservationRef]
	if !ok {
		return nil
	}
	bookingID := strings.TrimPrefix(reservationRef, "PR")
	if booking, ok := s.bookings[bookingID]; ok {
		parts := s.inventory[booking.CenterID]
		if parts != nil {
			for _, partID := range partIDs {
				parts[partID]++
			}
		}
	}
	delete(s.reserved, reservationRef)
	return nil
}

// FindTechnician returns the highest-rated technician at the center whose
// skills cover the requirement.
func (s *Scheduler) FindTechnician(ctx context.Context, centerID, skill string) (scheduling.Technician, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	center, ok := s.centers[centerID]
	if !ok {
		return scheduling.Technician{}, scheduling.ErrCenterNotFound
	}
	var best scheduling.Technician
	found := false
	for _, techID := range center.Technicians {
		tech, ok := s.technicians[techID]
		if !ok {
			continue
		}
		if skill != "" && !hasSkill(tech, skill) {
			continue
		}
		if !found || tech.Rating > best.Rating {
			best = tech
			found = true
		}
	}
	if !found {
		return scheduling.Technician{}, scheduling.ErrNoTechnician
	}
	return best, nil
}

func hasSkill(tech scheduling.Technician, skill string) bool {
	for _, s := range tech.Skills {
		if strings.EqualFold(s, skill) {
			return true
		}
	}
	return false
}

// DefaultTechnicians is the demo roster.
func DefaultTechnicians() []scheduling.Technician {
	return []scheduling.Technician{
		{TechnicianID: "TECH001", Name: "Rajiv Kumar", Skills: []string{"engine", "transmission", "general"}, Rating: 4.8},
		{TechnicianID: "TECH002", Name: "Suresh Patel", Skills: []string{"electrical", "battery", "diagnostics"}, Rating: 4.6},
		{TechnicianID: "TECH003", Name: "Anil Sharma", Skills: []string{"brakes", "suspension", "general"}, Rating: 4.9},
		{TechnicianID: "TECH004", Name: "Mohammad Ali", Skills: []string{"engine", "ac", "cooling"}, Rating: 4.7},
		{TechnicianID: "TECH005", Name: "Ravi Verma", Skills: []string{"ac", "electrical", "general"}, Rating: 4.5},
		{TechnicianID: "TECH006", Name: "Deepak Singh", Skills: []string{"engine", "transmission", "diagnostics"}, Rating: 4.8},
		{TechnicianID: "TECH007", Name: "Prakash Joshi", Skills: []string{"brakes", "tyres", "suspension"}, Rating: 4.6},
	}
}
