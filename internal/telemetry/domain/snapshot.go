package telemetry

import (
	"fmt"
	"time"
)

// EngineReadings holds engine subsystem sensor values. Monitored metrics are
// pointers so an absent reading is distinguishable from a zero reading.
type EngineReadings struct {
	TemperatureCelsius *float64 `json:"temperature_celsius,omitempty"`
	OilPressurePSI     *float64 `json:"oil_pressure_psi,omitempty"`
	CoolantLevelPct    *float64 `json:"coolant_level_percent,omitempty"`
	RPM                float64  `json:"rpm,omitempty"`
}

// BatteryReadings holds battery subsystem sensor values.
type BatteryReadings struct {
	Voltage   float64  `json:"voltage,omitempty"`
	HealthPct *float64 `json:"health_percent,omitempty"`
}

// BrakeReadings holds brake subsystem sensor values.
type BrakeReadings struct {
	FrontPadWearPct *float64 `json:"front_pad_wear_percent,omitempty"`
	RearPadWearPct  float64  `json:"rear_pad_wear_percent,omitempty"`
	FluidLevelPct   float64  `json:"fluid_level_percent,omitempty"`
}

// TyreReadings holds tyre subsystem sensor values.
type TyreReadings struct {
	PressurePSI  float64  `json:"pressure_psi,omitempty"`
	TreadDepthMM *float64 `json:"tread_depth_mm,omitempty"`
}

// TransmissionReadings holds transmission subsystem sensor values.
type TransmissionReadings struct {
	FluidLevelPct      float64 `json:"fluid_level_percent,omitempty"`
	TemperatureCelsius float64 `json:"temperature_celsius,omitempty"`
}

// Snapshot is a point-in-time capture of a vehicle's sensors. It is produced
// by the telemetry source and consumed read-only.
type Snapshot struct {
	VehicleID    string                `json:"vehicle_id"`
	CapturedAt   time.Time             `json:"captured_at"`
	Status       string                `json:"status,omitempty"`
	Engine       *EngineReadings       `json:"engine,omitempty"`
	Battery      *BatteryReadings      `json:"battery,omitempty"`
	Brakes       *BrakeReadings        `json:"brakes,omitempty"`
	Tyres        *TyreReadings         `json:"tyres,omitempty"`
	Transmission *TransmissionReadings `json:"transmission,omitempty"`
}

// Validate checks required snapshot fields.
func (s Snapshot) Validate() error {
	if s.VehicleID == "" {
		return &ValidationError{Field: "vehicle_id"}
	}
	return nil
}

// Float is a convenience constructor for optional readings.
func Float(v float64) *float64 {
	return &v
}

// ValidationError reports a missing required field on input data.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("telemetry: missing required field %q", e.Field)
}
