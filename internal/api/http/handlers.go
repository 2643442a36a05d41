package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fleetcare-cloud/internal/audit"
	"fleetcare-cloud/internal/auth"
	diagapp "fleetcare-cloud/internal/diagnostics/application"
	fleet "fleetcare-cloud/internal/fleet/domain"
	history "fleetcare-cloud/internal/history/domain"
	monitorapp "fleetcare-cloud/internal/monitor/application"
	monitor "fleetcare-cloud/internal/monitor/domain"
	monitorinterfaces "fleetcare-cloud/internal/monitor/interfaces"
	"fleetcare-cloud/internal/observability/metrics"
	telemetryapp "fleetcare-cloud/internal/telemetry/application"
	telemetry "fleetcare-cloud/internal/telemetry/domain"
	workflowapp "fleetcare-cloud/internal/workflow/application"
	workflow "fleetcare-cloud/internal/workflow/domain"
)

const timeLayout = time.RFC3339

// FleetStatusHandler serves the fleet health rollup.
type FleetStatusHandler struct {
	status *telemetryapp.FleetStatusService
}

// NewFleetStatusHandler constructs a FleetStatusHandler.
func NewFleetStatusHandler(status *telemetryapp.FleetStatusService) *FleetStatusHandler {
	return &FleetStatusHandler{status: status}
}

// ServeHTTP handles GET /api/v1/fleet/status.
func (h *FleetStatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.status == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	status, err := h.status.Status(r.Context())
	if err != nil {
		http.Error(w, "fleet status error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status)
}

// VehicleHandler serves per-vehicle resources: registration data, the latest
// telemetry snapshot, maintenance history, and the diagnosis pipeline.
type VehicleHandler struct {
	vehicles    fleet.Repository
	source      telemetry.Source
	records     history.Store
	diagnosis   *diagapp.DiagnosisService
	cases       *workflowapp.CaseService
	checker     auth.VehicleChecker
	auditLogger audit.Logger
}

// NewVehicleHandler constructs a VehicleHandler.
func NewVehicleHandler(
	vehicles fleet.Repository,
	source telemetry.Source,
	records history.Store,
	diagnosis *diagapp.DiagnosisService,
	cases *workflowapp.CaseService,
	checker auth.VehicleChecker,
	auditLogger audit.Logger,
) (*VehicleHandler, error) {
	if vehicles == nil {
		return nil, errors.New("vehicle handler: nil vehicle repository")
	}
	if source == nil {
		return nil, errors.New("vehicle handler: nil telemetry source")
	}
	if records == nil {
		return nil, errors.New("vehicle handler: nil history store")
	}
	if diagnosis == nil {
		return nil, errors.New("vehicle handler: nil diagnosis service")
	}
	return &VehicleHandler{
		vehicles:    vehicles,
		source:      source,
		records:     records,
		diagnosis:   diagnosis,
		cases:       cases,
		checker:     checker,
		auditLogger: auditLogger,
	}, nil
}

// ServeHTTP handles routes under /api/v1/vehicles/.
func (h *VehicleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/vehicles/")
	if rest == "" || rest == r.URL.Path {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	vehicleID := parts[0]
	if vehicleID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleGet(w, r, vehicleID)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "telemetry":
			if r.Method == http.MethodGet {
				h.handleTelemetry(w, r, vehicleID)
				return
			}
		case "history":
			if r.Method == http.MethodGet {
				h.handleHistory(w, r, vehicleID)
				return
			}
		case "diagnosis":
			switch r.Method {
			case http.MethodGet:
				h.handleDiagnose(w, r, vehicleID, false)
				return
			case http.MethodPost:
				h.handleDiagnose(w, r, vehicleID, true)
				return
			}
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *VehicleHandler) handleGet(w http.ResponseWriter, r *http.Request, vehicleID string) {
	vehicle, err := h.vehicles.Get(r.Context(), vehicleID)
	if err != nil {
		respondVehicleError(w, err)
		return
	}
	writeJSON(w, vehicle)
}

func (h *VehicleHandler) handleTelemetry(w http.ResponseWriter, r *http.Request, vehicleID string) {
	snap, err := h.source.GetSnapshot(r.Context(), vehicleID)
	if err != nil {
		respondVehicleError(w, err)
		return
	}
	writeJSON(w, snap)
}

func (h *VehicleHandler) handleHistory(w http.ResponseWriter, r *http.Request, vehicleID string) {
	if err := h.ensureVehicle(r, vehicleID); err != nil {
		respondVehicleError(w, err)
		return
	}
	records, err := h.records.ListByVehicle(r.Context(), vehicleID)
	if err != nil {
		http.Error(w, "history query error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []history.MaintenanceRecord{}
	}
	writeJSON(w, records)
}

// handleDiagnose runs the diagnosis pipeline. POST additionally opens a
// workflow case when the diagnosis carries anomalies; a vehicle that already
// has an active case gets that case back instead of a new one.
func (h *VehicleHandler) handleDiagnose(w http.ResponseWriter, r *http.Request, vehicleID string, openCase bool) {
	start := time.Now()
	result := metrics.ResultSuccess

	diagnosis, err := h.diagnosis.Diagnose(r.Context(), vehicleID)
	if err != nil {
		result = metrics.ResultError
		metrics.ObserveDiagnose(result, time.Since(start))
		respondVehicleError(w, err)
		return
	}
	metrics.ObserveDiagnose(result, time.Since(start))

	resp := struct {
		Diagnosis diagapp.Diagnosis `json:"diagnosis"`
		Case      *workflow.Case    `json:"case,omitempty"`
	}{Diagnosis: diagnosis}

	if openCase && len(diagnosis.Anomalies) > 0 && h.cases != nil {
		c, err := h.cases.OpenCase(r.Context(), diagnosis)
		if err != nil && !errors.Is(err, workflowapp.ErrActiveCase) && c == nil {
			http.Error(w, "open case error", http.StatusInternalServerError)
			return
		}
		resp.Case = c
	}

	writeJSON(w, resp)
	if openCase {
		caseID := ""
		if resp.Case != nil {
			caseID = resp.Case.CaseID
		}
		logAudit(h.auditLogger, r, "vehicle.diagnose", "vehicle", vehicleID, vehicleID, map[string]any{
			"priority":  string(diagnosis.Priority),
			"anomalies": len(diagnosis.Anomalies),
			"case_id":   caseID,
		})
	}
}

func (h *VehicleHandler) ensureVehicle(r *http.Request, vehicleID string) error {
	if h.checker == nil {
		return nil
	}
	return h.checker.EnsureVehicle(r.Context(), vehicleID)
}

// CasesHandler serves the maintenance case workflow.
type CasesHandler struct {
	cases       *workflowapp.CaseService
	auditLogger audit.Logger
}

// NewCasesHandler constructs a CasesHandler.
func NewCasesHandler(cases *workflowapp.CaseService, auditLogger audit.Logger) (*CasesHandler, error) {
	if cases == nil {
		return nil, errors.New("cases handler: nil case service")
	}
	return &CasesHandler{cases: cases, auditLogger: auditLogger}, nil
}

// ServeHTTP handles /api/v1/cases and routes under /api/v1/cases/.
func (h *CasesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/cases" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/cases/")
	if rest == "" || rest == r.URL.Path {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	caseID := parts[0]
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleGet(w, r, caseID)
		return
	}
	if len(parts) == 2 && parts[1] == "advance" && r.Method == http.MethodPost {
		h.handleAdvance(w, r, caseID)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *CasesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.cases.List(r.Context())
	if err != nil {
		http.Error(w, "case query error", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*workflow.Case{}
	}
	writeJSON(w, list)
}

func (h *CasesHandler) handleGet(w http.ResponseWriter, r *http.Request, caseID string) {
	c, err := h.cases.Get(r.Context(), caseID)
	if err != nil {
		respondCaseError(w, nil, err)
		return
	}
	writeJSON(w, c)
}

func (h *CasesHandler) handleAdvance(w http.ResponseWriter, r *http.Request, caseID string) {
	var req struct {
		Event string `json:"event"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Event == "" {
		http.Error(w, "event is required", http.StatusBadRequest)
		return
	}

	c, err := h.cases.Advance(r.Context(), caseID, req.Event)
	if err != nil {
		respondCaseError(w, c, err)
		return
	}
	writeJSON(w, c)
	logAudit(h.auditLogger, r, "case.advance", "case", c.CaseID, c.VehicleID, map[string]any{
		"event": req.Event,
		"stage": string(c.Stage),
	})
}

// MonitorHandler serves worker activity recording, activity queries, and
// advisory permission checks.
type MonitorHandler struct {
	service *monitorapp.Service
	store   monitor.ActivityStore
}

// NewMonitorHandler constructs a MonitorHandler.
func NewMonitorHandler(service *monitorapp.Service, store monitor.ActivityStore) (*MonitorHandler, error) {
	if service == nil {
		return nil, errors.New("monitor handler: nil service")
	}
	if store == nil {
		return nil, errors.New("monitor handler: nil activity store")
	}
	return &MonitorHandler{service: service, store: store}, nil
}

// ServeHTTP handles /api/v1/monitor/activities and /api/v1/monitor/permissions.
func (h *MonitorHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/monitor/activities":
		switch r.Method {
		case http.MethodPost:
			h.handleRecord(w, r)
		case http.MethodGet:
			h.handleListActivities(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case "/api/v1/monitor/permissions":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handlePermission(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *MonitorHandler) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkerID string `json:"worker_id"`
		Kind     string `json:"action_kind"`
		Target   string `json:"target_resource"`
		Details  string `json:"details"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	entry, err := h.service.Record(r.Context(), req.WorkerID, monitor.ActionKind(req.Kind), req.Target, req.Details)
	if err != nil {
		if errors.Is(err, monitor.ErrInvalidActivity) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "record activity error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(entry)
}

func (h *MonitorHandler) handleListActivities(w http.ResponseWriter, r *http.Request) {
	workerID := r.URL.Query().Get("worker_id")
	var entries []monitor.ActivityLogEntry
	var err error
	if workerID != "" {
		since := time.Time{}
		if raw := r.URL.Query().Get("since"); raw != "" {
			since, err = time.Parse(timeLayout, raw)
			if err != nil {
				http.Error(w, "since must be RFC3339", http.StatusBadRequest)
				return
			}
		}
		entries, err = h.store.ReadSince(r.Context(), workerID, since)
	} else {
		entries, err = h.store.All(r.Context())
	}
	if err != nil {
		http.Error(w, "activity query error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []monitor.ActivityLogEntry{}
	}
	writeJSON(w, entries)
}

func (h *MonitorHandler) handlePermission(w http.ResponseWriter, r *http.Request) {
	workerID := r.URL.Query().Get("worker_id")
	action := r.URL.Query().Get("action")
	decision, err := h.service.Query(r.Context(), workerID, action)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, decision)
}

// SecurityReportHandler serves the aggregated security report as JSON and as
// PDF/XLSX downloads.
type SecurityReportHandler struct {
	service     *monitorapp.Service
	auditLogger audit.Logger
}

// NewSecurityReportHandler constructs a SecurityReportHandler.
func NewSecurityReportHandler(service *monitorapp.Service, auditLogger audit.Logger) (*SecurityReportHandler, error) {
	if service == nil {
		return nil, errors.New("security report handler: nil service")
	}
	return &SecurityReportHandler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP handles GET /api/v1/security/report and its export variants.
func (h *SecurityReportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/security/report":
		h.handleJSON(w, r)
	case "/api/v1/security/report.pdf":
		h.handleExport(w, r, "pdf")
	case "/api/v1/security/report.xlsx":
		h.handleExport(w, r, "xlsx")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *SecurityReportHandler) handleJSON(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		http.Error(w, "report error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, report)
}

func (h *SecurityReportHandler) handleExport(w http.ResponseWriter, r *http.Request, format string) {
	result := metrics.ResultSuccess
	defer func() {
		metrics.IncReportExport(format, result)
	}()

	report, err := h.service.Report(r.Context())
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "report error", http.StatusInternalServerError)
		return
	}

	var data []byte
	var contentType string
	switch format {
	case "pdf":
		data, err = monitorinterfaces.BuildReportPDF(report)
		contentType = "application/pdf"
	case "xlsx":
		data, err = monitorinterfaces.BuildReportXLSX(report)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export "+format+" error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	logAudit(h.auditLogger, r, "security.report.export", "report", "", "", map[string]any{
		"format": format,
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func respondVehicleError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, fleet.ErrVehicleNotFound) || errors.Is(err, telemetry.ErrSnapshotNotFound) || errors.Is(err, auth.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	var validation *telemetry.ValidationError
	if errors.As(err, &validation) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func respondCaseError(w http.ResponseWriter, c *workflow.Case, err error) {
	switch {
	case errors.Is(err, workflow.ErrCaseNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, workflowapp.ErrUnknownEvent):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, workflow.ErrCaseTerminal), errors.Is(err, workflow.ErrConsentRequired):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		var transition *workflow.InvalidTransitionError
		if errors.As(err, &transition) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if c != nil {
			// A collaborator failed mid-step; the case carries the retry
			// count and possibly an escalation.
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(struct {
				Case  *workflow.Case `json:"case"`
				Error string         `json:"error"`
			}{Case: c, Error: err.Error()})
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func logAudit(logger audit.Logger, r *http.Request, action, resourceType, resourceID, vehicleID string, meta map[string]any) {
	if logger == nil {
		return
	}
	tenantID := auth.TenantIDFromContext(r.Context())
	if tenantID == "" {
		return
	}
	payload, _ := json.Marshal(meta)
	_ = logger.Log(r.Context(), audit.Entry{
		TenantID:     tenantID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		VehicleID:    vehicleID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
