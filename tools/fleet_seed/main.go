// Command fleet_seed generates the demo data files the service loads at
// startup: registered vehicles, a telemetry stream, maintenance history,
// defect records, and the service center network.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	fleet "fleetcare-cloud/internal/fleet/domain"
	history "fleetcare-cloud/internal/history/domain"
	scheduling "fleetcare-cloud/internal/scheduling/domain"
	schedulingmemory "fleetcare-cloud/internal/scheduling/infrastructure/memory"
	telemetry "fleetcare-cloud/internal/telemetry/domain"
)

type config struct {
	outDir       string
	vehicleCount int
	anomalyRate  float64
	seed         int64
}

func main() {
	cfg := parseConfig()
	if cfg.vehicleCount <= 0 {
		log.Fatal("vehicle-count must be > 0")
	}
	if cfg.anomalyRate < 0 || cfg.anomalyRate > 1 {
		log.Fatal("anomaly-rate must be within [0,1]")
	}
	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		log.Fatalf("create out dir: %v", err)
	}

	rng := rand.New(rand.NewSource(cfg.seed))
	now := time.Now().UTC()

	vehicles := buildVehicles(cfg.vehicleCount)
	snapshots := buildTelemetry(vehicles, cfg.anomalyRate, rng, now)
	records := buildHistory(vehicles, now)

	writeJSON(cfg.outDir, "vehicles.json", vehicles)
	writeJSON(cfg.outDir, "telemetry_stream.json", snapshots)
	writeJSON(cfg.outDir, "maintenance_history.json", records)
	writeJSON(cfg.outDir, "defect_records.json", defectRecords())
	writeJSON(cfg.outDir, "service_network.json", serviceNetwork(now))

	log.Printf("seeded %d vehicles into %s", len(vehicles), cfg.outDir)
}

func parseConfig() config {
	var cfg config
	flag.StringVar(&cfg.outDir, "out", "data", "output directory for the data files")
	flag.IntVar(&cfg.vehicleCount, "vehicle-count", 10, "number of vehicles to generate")
	flag.Float64Var(&cfg.anomalyRate, "anomaly-rate", 0.3, "fraction of vehicles with unhealthy readings")
	flag.Int64Var(&cfg.seed, "seed", 42, "random seed")
	flag.Parse()
	return cfg
}

var (
	makes  = []string{"Tata", "Mahindra", "Maruti", "Hyundai", "Toyota"}
	models = []string{"Nexon", "XUV700", "Baleno", "Creta", "Innova"}
	cities = []string{"Mumbai", "Delhi", "Bengaluru", "Pune", "Chennai"}
	owners = []string{"Kavita Rao", "Arun Mehta", "Priya Nair", "Rohit Shah", "Meena Iyer"}
)

func buildVehicles(count int) []fleet.Vehicle {
	vehicles := make([]fleet.Vehicle, 0, count)
	for i := 0; i < count; i++ {
		id := fmt.Sprintf("VH%03d", i+1)
		vehicles = append(vehicles, fleet.Vehicle{
			VehicleID: id,
			Make:      makes[i%len(makes)],
			Model:     models[i%len(models)],
			Year:      2019 + i%6,
			MileageKM: 20000 + i*7500,
			Owner: fleet.Owner{
				OwnerID: fmt.Sprintf("OWN%03d", i+1),
				Name:    owners[i%len(owners)],
				Phone:   fmt.Sprintf("+91-98%08d", i+1),
				Email:   fmt.Sprintf("owner%03d@example.in", i+1),
				City:    cities[i%len(cities)],
			},
		})
	}
	return vehicles
}

// buildTelemetry emits a healthy snapshot per vehicle, then pushes a subset
// past the warning or critical envelope.
func buildTelemetry(vehicles []fleet.Vehicle, anomalyRate float64, rng *rand.Rand, now time.Time) map[string]telemetry.Snapshot {
	snapshots := make(map[string]telemetry.Snapshot, len(vehicles))
	for _, vehicle := range vehicles {
		snap := telemetry.Snapshot{
			VehicleID:  vehicle.VehicleID,
			CapturedAt: now,
			Engine: &telemetry.EngineReadings{
				TemperatureCelsius: telemetry.Float(85 + rng.Float64()*10),
				OilPressurePSI:     telemetry.Float(35 + rng.Float64()*10),
				CoolantLevelPct:    telemetry.Float(70 + rng.Float64()*25),
			},
			Battery: &telemetry.BatteryReadings{
				Voltage:   12.4 + rng.Float64()*0.4,
				HealthPct: telemetry.Float(70 + rng.Float64()*25),
			},
			Brakes: &telemetry.BrakeReadings{
				FrontPadWearPct: telemetry.Float(30 + rng.Float64()*30),
			},
			Tyres: &telemetry.TyreReadings{
				TreadDepthMM: telemetry.Float(4 + rng.Float64()*3),
			},
		}
		if rng.Float64() < anomalyRate {
			switch rng.Intn(4) {
			case 0:
				snap.Engine.TemperatureCelsius = telemetry.Float(112 + rng.Float64()*8)
			case 1:
				snap.Engine.CoolantLevelPct = telemetry.Float(20 + rng.Float64()*15)
			case 2:
				snap.Brakes.FrontPadWearPct = telemetry.Float(80 + rng.Float64()*12)
			default:
				snap.Battery.HealthPct = telemetry.Float(30 + rng.Float64()*25)
			}
		}
		snapshots[vehicle.VehicleID] = snap
	}
	return snapshots
}

func buildHistory(vehicles []fleet.Vehicle, now time.Time) []history.MaintenanceRecord {
	records := make([]history.MaintenanceRecord, 0, len(vehicles))
	for i, vehicle := range vehicles {
		records = append(records, history.MaintenanceRecord{
			RecordID:           fmt.Sprintf("SR%05d", i+1),
			VehicleID:          vehicle.VehicleID,
			Date:               now.AddDate(0, -(3 + i%9), 0),
			ServiceType:        "preventive_service",
			ComponentsServiced: []string{"engine", "brakes"},
			TechnicianID:       "TECH001",
			ServiceCenterID:    "SC001",
		})
	}
	return records
}

func defectRecords() []history.DefectRecord {
	return []history.DefectRecord{
		{
			DefectID:         "CAPA-2041",
			Component:        "brakes",
			DefectType:       "premature_pad_wear",
			Severity:         "high",
			RootCause:        "pad compound batch out of spec",
			CorrectiveAction: "replace pads with revised compound",
			AffectedModels:   []string{"Nexon", "XUV700"},
		},
		{
			DefectID:         "CAPA-2088",
			Component:        "cooling_system",
			DefectType:       "coolant_leak",
			Severity:         "medium",
			RootCause:        "radiator hose clamp torque",
			CorrectiveAction: "re-torque clamps and pressure test",
			AffectedModels:   []string{"Creta"},
		},
		{
			DefectID:         "CAPA-2113",
			Component:        "battery",
			DefectType:       "capacity_fade",
			Severity:         "medium",
			RootCause:        "cell supplier variance",
			CorrectiveAction: "replace battery under warranty",
		},
	}
}

func serviceNetwork(now time.Time) map[string]any {
	centers := []map[string]any{
		{
			"service_center_id": "SC001",
			"name":              "Mumbai Central Service",
			"city":              "Mumbai",
			"capacity_per_day":  12,
			"technicians":       []string{"TECH001", "TECH003"},
			"slots":             buildSlots("SC001", now, 6),
		},
		{
			"service_center_id": "SC002",
			"name":              "Pune Service Hub",
			"city":              "Pune",
			"capacity_per_day":  8,
			"technicians":       []string{"TECH005", "TECH007"},
			"slots":             buildSlots("SC002", now, 4),
		},
	}
	inventory := map[string]map[string]int{
		"SC001": {"brake_pad_set": 4, "coolant_5l": 6, "oil_filter_kit": 5, "battery_12v": 2, "tyre_set": 3},
		"SC002": {"brake_pad_set": 2, "coolant_5l": 3, "battery_12v": 1},
	}
	return map[string]any{
		"service_centers": centers,
		"inventory":       inventory,
		"technicians":     schedulingmemory.DefaultTechnicians(),
	}
}

func buildSlots(centerID string, now time.Time, count int) []scheduling.Slot {
	slots := make([]scheduling.Slot, 0, count)
	for i := 0; i < count; i++ {
		slots = append(slots, scheduling.Slot{
			SlotID:    fmt.Sprintf("%s-SL%03d", centerID, i+1),
			CenterID:  centerID,
			StartsAt:  now.Add(time.Duration(4+i*6) * time.Hour),
			Available: true,
		})
	}
	return slots
}

func writeJSON(dir, name string, payload any) {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		log.Fatalf("encode %s: %v", name, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		log.Fatalf("write %s: %v", path, err)
	}
}
