package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	history "fleetcare-cloud/internal/history/domain"
)

// HistoryStore is an in-memory, append-only maintenance history.
type HistoryStore struct {
	mu      sync.RWMutex
	records []history.MaintenanceRecord
}

// NewHistoryStore constructs an empty store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// NewHistoryStoreFromFile loads a JSON array of maintenance records.
func NewHistoryStoreFromFile(path string) (*HistoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("history store: read %s: %w", path, err)
	}
	var records []history.MaintenanceRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("history store: decode %s: %w", path, err)
	}
	store := NewHistoryStore()
	for _, record := range records {
		if err := store.Append(context.Background(), record); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// ListByVehicle returns records for a vehicle, most recent first.
func (s *HistoryStore) ListByVehicle(ctx context.Context, vehicleID string) ([]history.MaintenanceRecord, error) {
	_ = ctx
	s.mu.RLock()
	var records []history.MaintenanceRecord
	for _, record := range s.records {
		if record.VehicleID == vehicleID {
			records = append(records, record)
		}
	}
	s.mu.RUnlock()
	sort.Slice(records, func(i, j int) bool { return records[i].Date.After(records[j].Date) })
	return records, nil
}

// Append adds a record.
func (s *HistoryStore) Append(ctx context.Context, record history.MaintenanceRecord) error {
	_ = ctx
	if err := record.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
	return nil
}

// Len returns the record count. Used by tests and the seed tool.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// DefectStore is an in-memory defect (CAPA) record catalog.
type DefectStore struct {
	mu      sync.RWMutex
	records []history.DefectRecord
}

// NewDefectStore constructs a store with the given records.
func NewDefectStore(records ...history.DefectRecord) *DefectStore {
	return &DefectStore{records: records}
}

// NewDefectStoreFromFile loads a JSON array of defect records.
func NewDefectStoreFromFile(path string) (*DefectStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("defect store: read %s: %w", path, err)
	}
	var records []history.DefectRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("defect store: decode %s: %w", path, err)
	}
	return NewDefectStore(records...), nil
}

// List filters defect records by component and affected model. Empty filters
// match everything; component matching is case-insensitive substring.
func (s *DefectStore) List(ctx context.Context, component, model string) ([]history.DefectRecord, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []history.DefectRecord
	for _, record := range s.records {
		if component != "" && !strings.Contains(strings.ToLower(record.Component), strings.ToLower(component)) {
			continue
		}
		if model != "" && !containsModel(record.AffectedModels, model) {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func containsModel(models []string, model string) bool {
	for _, m := range models {
		if strings.EqualFold(m, model) {
			return true
		}
	}
	return false
}
