package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	apihttp "fleetcare-cloud/internal/api/http"
	"fleetcare-cloud/internal/audit"
	"fleetcare-cloud/internal/auth"
	"fleetcare-cloud/internal/config"
	diagapp "fleetcare-cloud/internal/diagnostics/application"
	diagnostics "fleetcare-cloud/internal/diagnostics/domain"
	"fleetcare-cloud/internal/eventing"
	"fleetcare-cloud/internal/eventing/eventbus"
	"fleetcare-cloud/internal/eventing/events"
	eventingrepo "fleetcare-cloud/internal/eventing/infrastructure/postgres"
	fleetmemory "fleetcare-cloud/internal/fleet/infrastructure/memory"
	historymemory "fleetcare-cloud/internal/history/infrastructure/memory"
	monitorapp "fleetcare-cloud/internal/monitor/application"
	monitor "fleetcare-cloud/internal/monitor/domain"
	monitorrepo "fleetcare-cloud/internal/monitor/infrastructure/postgres"
	"fleetcare-cloud/internal/notify"
	"fleetcare-cloud/internal/observability/metrics"
	schedulingmemory "fleetcare-cloud/internal/scheduling/infrastructure/memory"
	telemetryapp "fleetcare-cloud/internal/telemetry/application"
	telemetryevents "fleetcare-cloud/internal/telemetry/application/events"
	"fleetcare-cloud/internal/telemetry/infrastructure/jsonfile"
	"fleetcare-cloud/internal/telemetry/interfaces/ingest"
	workflowapp "fleetcare-cloud/internal/workflow/application"
	workflow "fleetcare-cloud/internal/workflow/domain"
	workflowrepo "fleetcare-cloud/internal/workflow/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	source, err := jsonfile.NewSource(cfg.Data.TelemetryFile)
	if err != nil {
		logger.Fatalf("telemetry source error: %v", err)
	}
	vehicles, err := fleetmemory.NewVehicleRepositoryFromFile(cfg.Data.VehiclesFile)
	if err != nil {
		logger.Fatalf("vehicle repository error: %v", err)
	}
	records, err := historymemory.NewHistoryStoreFromFile(cfg.Data.HistoryFile)
	if err != nil {
		logger.Fatalf("history store error: %v", err)
	}
	defects, err := historymemory.NewDefectStoreFromFile(cfg.Data.DefectsFile)
	if err != nil {
		logger.Fatalf("defect store error: %v", err)
	}
	scheduler, err := schedulingmemory.NewSchedulerFromFile(cfg.Data.NetworkFile)
	if err != nil {
		logger.Fatalf("scheduler error: %v", err)
	}
	vehicleChecker := auth.NewFleetVehicleChecker(vehicles)

	baseBus := eventbus.NewInMemoryBus()
	registry := eventing.NewRegistry()
	registry.Register(events.AnomalyDetected{})
	registry.Register(events.CaseAdvanced{})
	registry.Register(events.ActivityRecorded{})
	registry.Register(telemetryevents.SnapshotReceived{})

	outboxStore := eventingrepo.NewOutboxStore(db)
	processedStore := eventingrepo.NewProcessedStore(db)
	dlqStore := eventingrepo.NewDLQStore(db)
	dispatcher := eventing.NewDispatcher(baseBus, outboxStore, registry, dlqStore)
	publisher := eventing.NewPublisher(outboxStore, dispatcher, cfg.TenantID, baseBus)

	classifier, err := diagnostics.NewClassifier(cfg.ThresholdTable())
	if err != nil {
		logger.Fatalf("classifier error: %v", err)
	}
	triage, err := diagapp.NewTriageService(records, defects, vehicles,
		diagapp.WithSafetyPolicy(cfg.SafetyPolicy()))
	if err != nil {
		logger.Fatalf("triage service error: %v", err)
	}
	diagnosisService, err := diagapp.NewDiagnosisService(source, classifier, triage,
		diagapp.WithDiagnosisPublisher(publisher),
		diagapp.WithDiagnosisLogger(logger))
	if err != nil {
		logger.Fatalf("diagnosis service error: %v", err)
	}
	fleetStatusService, err := telemetryapp.NewFleetStatusService(source, classifier)
	if err != nil {
		logger.Fatalf("fleet status service error: %v", err)
	}

	var channel notify.Channel = notify.NopChannel{}
	if cfg.NotifyWebhookURL != "" {
		channel, err = notify.NewWebhookChannel(cfg.NotifyWebhookURL)
		if err != nil {
			logger.Fatalf("notify webhook error: %v", err)
		}
	}
	contact, err := notify.NewContact(channel)
	if err != nil {
		logger.Fatalf("contact service error: %v", err)
	}
	consents := notify.NewScriptedConsent(workflow.Consent(cfg.Workflow.ConsentFallback))

	caseRepo := workflowrepo.NewCaseRepository(db)
	caseService, err := workflowapp.NewCaseService(caseRepo, vehicles, records, contact, consents, scheduler, scheduler,
		workflowapp.WithPublisher(publisher),
		workflowapp.WithLogger(logger),
		workflowapp.WithMaxRetries(cfg.Workflow.MaxRetries))
	if err != nil {
		logger.Fatalf("case service error: %v", err)
	}

	baselineRegistry, err := monitor.NewRegistry(cfg.WorkerBaselines()...)
	if err != nil {
		logger.Fatalf("baseline registry error: %v", err)
	}
	activityStore := monitorrepo.NewActivityStore(db)
	monitorService, err := monitorapp.NewService(baselineRegistry, activityStore,
		monitorapp.WithLogger(logger),
		monitorapp.WithPublisher(publisher))
	if err != nil {
		logger.Fatalf("monitor service error: %v", err)
	}

	eventing.Subscribe(baseBus, eventbus.EventTypeOf[events.AnomalyDetected](), "ops.anomaly.log", func(ctx context.Context, event any) error {
		evt, ok := event.(events.AnomalyDetected)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		logger.Printf("anomaly detected: vehicle=%s priority=%s issues=%d", evt.VehicleID, evt.Priority, len(evt.Issues))
		return nil
	}, processedStore)
	eventing.Subscribe(baseBus, eventbus.EventTypeOf[events.CaseAdvanced](), "ops.case.log", func(ctx context.Context, event any) error {
		evt, ok := event.(events.CaseAdvanced)
		if !ok {
			return eventbus.ErrInvalidEventType
		}
		logger.Printf("case advanced: case=%s vehicle=%s %s->%s", evt.CaseID, evt.VehicleID, evt.FromStage, evt.ToStage)
		return nil
	}, processedStore)

	vehicleHandler, err := apihttp.NewVehicleHandler(vehicles, source, records, diagnosisService, caseService, vehicleChecker, auditRepo)
	if err != nil {
		logger.Fatalf("vehicle handler error: %v", err)
	}
	casesHandler, err := apihttp.NewCasesHandler(caseService, auditRepo)
	if err != nil {
		logger.Fatalf("cases handler error: %v", err)
	}
	monitorHandler, err := apihttp.NewMonitorHandler(monitorService, activityStore)
	if err != nil {
		logger.Fatalf("monitor handler error: %v", err)
	}
	reportHandler, err := apihttp.NewSecurityReportHandler(monitorService, auditRepo)
	if err != nil {
		logger.Fatalf("report handler error: %v", err)
	}
	ingestHandler, err := ingest.NewHandler(source, publisher, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, []string{"/ingest/"})
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	ingestAuth := auth.NewIngestAuthMiddleware([]byte(cfg.IngestSecret), time.Duration(cfg.IngestSkewSecs)*time.Second)

	mux := http.NewServeMux()
	mux.Handle("/ingest/telemetry", ingestAuth.Wrap(ingestHandler))
	mux.Handle("/api/v1/fleet/status", apihttp.NewFleetStatusHandler(fleetStatusService))
	mux.Handle("/api/v1/vehicles/", vehicleHandler)
	mux.Handle("/api/v1/cases", casesHandler)
	mux.Handle("/api/v1/cases/", casesHandler)
	mux.Handle("/api/v1/monitor/activities", monitorHandler)
	mux.Handle("/api/v1/monitor/permissions", monitorHandler)
	mux.Handle("/api/v1/security/report", reportHandler)
	mux.Handle("/api/v1/security/report.pdf", reportHandler)
	mux.Handle("/api/v1/security/report.xlsx", reportHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(mux), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
