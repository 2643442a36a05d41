package scheduling

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCenterNotFound is returned for unknown service centers.
	ErrCenterNotFound = errors.New("scheduling: service center not found")
	// ErrSlotNotFound is returned for unknown slots.
	ErrSlotNotFound = errors.New("scheduling: slot not found")
	// ErrSlotUnavailable is returned when booking an already-taken slot.
	ErrSlotUnavailable = errors.New("scheduling: slot no longer available")
	// ErrBookingNotFound is returned for unknown bookings.
	ErrBookingNotFound = errors.New("scheduling: booking not found")
	// ErrNoSlots is returned when a center has no open slots.
	ErrNoSlots = errors.New("scheduling: no available slots")
	// ErrNoTechnician is returned when no technician covers a skill.
	ErrNoTechnician = errors.New("scheduling: no technician with required skill")
)

// Center is a service center.
type Center struct {
	CenterID       string   `json:"service_center_id"`
	Name           string   `json:"name"`
	City           string   `json:"city"`
	Address        string   `json:"address"`
	Phone          string   `json:"phone"`
	CapacityPerDay int      `json:"capacity_per_day,omitempty"`
	Technicians    []string `json:"technicians,omitempty"`
}

// Slot is a bookable appointment window at a center.
type Slot struct {
	SlotID    string    `json:"slot_id"`
	CenterID  string    `json:"service_center_id"`
	StartsAt  time.Time `json:"starts_at"`
	Available bool      `json:"available"`
}

// BookingRequest carries everything needed to confirm an appointment.
type BookingRequest struct {
	VehicleID       string   `json:"vehicle_id"`
	SlotID          string   `json:"slot_id"`
	ServiceType     string   `json:"service_type"`
	Priority        string   `json:"priority,omitempty"`
	PredictedIssues []string `json:"predicted_issues,omitempty"`
	Notes           string   `json:"notes,omitempty"`
}

// Booking is a confirmed appointment.
type Booking struct {
	BookingID       string    `json:"booking_id"`
	VehicleID       string    `json:"vehicle_id"`
	CenterID        string    `json:"service_center_id"`
	SlotID          string    `json:"slot_id"`
	StartsAt        time.Time `json:"starts_at"`
	ServiceType     string    `json:"service_type"`
	Priority        string    `json:"priority,omitempty"`
	PredictedIssues []string  `json:"predicted_issues,omitempty"`
	TechnicianID    string    `json:"technician_id,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// Booking statuses.
const (
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Technician is a service center mechanic with declared skills.
type Technician struct {
	TechnicianID string   `json:"technician_id"`
	Name         string   `json:"name"`
	Skills       []string `json:"skills"`
	Rating       float64  `json:"rating,omitempty"`
}

// Scheduler is the appointment collaborator consumed by the case workflow.
type Scheduler interface {
	FindCenters(ctx context.Context, city string) ([]Center, error)
	ListSlots(ctx context.Context, centerID string) ([]Slot, error)
	// EarliestSlot returns the soonest open slot; the emergency path books
	// it directly instead of presenting options.
	EarliestSlot(ctx context.Context, centerID string) (Slot, error)
	Book(ctx context.Context, req BookingRequest) (Booking, error)
	Cancel(ctx context.Context, bookingID string) error
}

// PartsService covers parts inventory and technician assignment.
type PartsService interface {
	CheckAvailability(ctx context.Context, partIDs []string, centerID string) (bool, error)
	Reserve(ctx context.Context, partIDs []string, bookingID string) (string, error)
	Release(ctx context.Context, reservationRef string) error
	FindTechnician(ctx context.Context, centerID, skill string) (Technician, error)
}
