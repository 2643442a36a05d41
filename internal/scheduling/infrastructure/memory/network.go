package memory

import (
	"encoding/json"
	"fmt"
	"os"

	scheduling "fleetcare-cloud/internal/scheduling/domain"
)

// networkFile is the on-disk shape of the service network seed data.
type networkFile struct {
	Centers []struct {
		scheduling.Center
		Slots []scheduling.Slot `json:"slots,omitempty"`
	} `json:"service_centers"`
	Inventory   map[string]map[string]int `json:"inventory,omitempty"` // centerID -> partID -> qty
	Technicians []scheduling.Technician   `json:"technicians,omitempty"`
}

// NewSchedulerFromFile loads centers, slots, inventory, and technicians from
// a JSON service network file. Files without a technician roster get the
// demo roster.
func NewSchedulerFromFile(path string, opts ...Option) (*Scheduler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scheduler: read %s: %w", path, err)
	}
	var file networkFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("scheduler: decode %s: %w", path, err)
	}

	s := NewScheduler(opts...)
	for _, entry := range file.Centers {
		if entry.CenterID == "" {
			return nil, fmt.Errorf("scheduler: center without id in %s", path)
		}
		s.AddCenter(entry.Center, entry.Slots...)
	}
	for centerID, parts := range file.Inventory {
		for partID, qty := range parts {
			s.SetInventory(centerID, partID, qty)
		}
	}
	techs := file.Technicians
	if len(techs) == 0 {
		techs = DefaultTechnicians()
	}
	for _, tech := range techs {
		s.AddTechnician(tech)
	}
	return s, nil
}
