package diagnostics

import "errors"

// Direction states which side of the bound is unhealthy.
type Direction string

const (
	// DirectionHighBad triggers when the reading exceeds the bound.
	DirectionHighBad Direction = "high_bad"
	// DirectionLowBad triggers when the reading falls below the bound.
	DirectionLowBad Direction = "low_bad"
)

// Valid returns true when the direction is supported.
func (d Direction) Valid() bool {
	switch d {
	case DirectionHighBad, DirectionLowBad:
		return true
	default:
		return false
	}
}

// MetricThreshold declares the two-tier operating envelope for one metric.
// Warning may be nil for metrics that only have a critical bound.
type MetricThreshold struct {
	Metric         string    `yaml:"metric"`
	Component      string    `yaml:"component"`
	Direction      Direction `yaml:"direction"`
	Warning        *float64  `yaml:"warning,omitempty"`
	Critical       *float64  `yaml:"critical"`
	WarningIssue   string    `yaml:"warning_issue,omitempty"`
	CriticalIssue  string    `yaml:"critical_issue"`
	WarningAdvice  string    `yaml:"warning_advice,omitempty"`
	CriticalAdvice string    `yaml:"critical_advice,omitempty"`
}

// Validate checks threshold invariants.
func (t MetricThreshold) Validate() error {
	if t.Metric == "" {
		return errors.New("thresholds: empty metric")
	}
	if t.Component == "" {
		return errors.New("thresholds: empty component")
	}
	if !t.Direction.Valid() {
		return errors.New("thresholds: invalid direction")
	}
	if t.Critical == nil {
		return errors.New("thresholds: missing critical bound")
	}
	if t.CriticalIssue == "" {
		return errors.New("thresholds: missing critical issue code")
	}
	if t.Warning != nil && t.WarningIssue == "" {
		return errors.New("thresholds: warning bound without issue code")
	}
	return nil
}

// ThresholdTable is the versioned, loaded-once threshold configuration.
type ThresholdTable struct {
	Version int               `yaml:"version"`
	Metrics []MetricThreshold `yaml:"metrics"`
}

// Validate checks every entry and rejects duplicate metrics.
func (t ThresholdTable) Validate() error {
	if len(t.Metrics) == 0 {
		return errors.New("thresholds: empty table")
	}
	seen := make(map[string]struct{}, len(t.Metrics))
	for _, m := range t.Metrics {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, ok := seen[m.Metric]; ok {
			return errors.New("thresholds: duplicate metric " + m.Metric)
		}
		seen[m.Metric] = struct{}{}
	}
	return nil
}

func bound(v float64) *float64 { return &v }

// DefaultThresholdTable returns the factory operating envelopes. Deployments
// may override the table via configuration.
func DefaultThresholdTable() ThresholdTable {
	return ThresholdTable{
		Version: 1,
		Metrics: []MetricThreshold{
			{
				Metric:         MetricEngineTemperature,
				Component:      "engine",
				Direction:      DirectionHighBad,
				Warning:        bound(100),
				Critical:       bound(110),
				WarningIssue:   "engine_temperature_high",
				CriticalIssue:  "engine_overheating",
				WarningAdvice:  "Schedule service within 1 week. Monitor coolant levels.",
				CriticalAdvice: "Immediate inspection required. Do not drive vehicle.",
			},
			{
				Metric:         MetricOilPressure,
				Component:      "engine",
				Direction:      DirectionLowBad,
				Critical:       bound(20),
				CriticalIssue:  "oil_pressure_critical",
				CriticalAdvice: "Stop driving immediately. Engine damage risk.",
			},
			{
				Metric:         MetricCoolantLevel,
				Component:      "cooling_system",
				Direction:      DirectionLowBad,
				Warning:        bound(50),
				Critical:       bound(30),
				WarningIssue:   "coolant_low",
				CriticalIssue:  "coolant_critical_low",
				WarningAdvice:  "Schedule coolant top-up within 1-2 days.",
				CriticalAdvice: "Top up coolant immediately. Check for leaks.",
			},
			{
				Metric:         MetricBatteryHealth,
				Component:      "battery",
				Direction:      DirectionLowBad,
				Warning:        bound(60),
				Critical:       bound(40),
				WarningIssue:   "battery_degraded",
				CriticalIssue:  "battery_failure_imminent",
				WarningAdvice:  "Plan battery replacement within 1 month.",
				CriticalAdvice: "Replace battery immediately. Risk of stranding.",
			},
			{
				Metric:         MetricBrakePadWear,
				Component:      "brakes",
				Direction:      DirectionHighBad,
				Warning:        bound(75),
				Critical:       bound(85),
				WarningIssue:   "brake_pad_wear_high",
				CriticalIssue:  "brake_pad_worn_critical",
				WarningAdvice:  "Schedule brake pad replacement within 2 weeks.",
				CriticalAdvice: "Replace brake pads immediately. Safety risk.",
			},
			{
				Metric:         MetricTreadDepth,
				Component:      "tyres",
				Direction:      DirectionLowBad,
				Warning:        bound(3.0),
				Critical:       bound(1.6),
				WarningIssue:   "tyre_tread_low",
				CriticalIssue:  "tyre_tread_critical",
				WarningAdvice:  "Plan tyre replacement within 1-2 months.",
				CriticalAdvice: "Replace tyres immediately. Illegal and unsafe.",
			},
		},
	}
}

// Monitored metric identifiers.
const (
	MetricEngineTemperature = "engine_temperature"
	MetricOilPressure       = "oil_pressure"
	MetricCoolantLevel      = "coolant_level"
	MetricBatteryHealth     = "battery_health"
	MetricBrakePadWear      = "brake_pad_wear"
	MetricTreadDepth        = "tread_depth"
)
