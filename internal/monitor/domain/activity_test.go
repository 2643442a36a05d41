package monitor

import "testing"

func schedulingBaseline() Baseline {
	for _, b := range DefaultBaselines() {
		if b.WorkerID == "scheduling_agent" {
			return b
		}
	}
	return Baseline{}
}

func TestScore_DataScopeViolation(t *testing.T) {
	b := schedulingBaseline()

	// Outside {service_centers, vehicles}, any action kind.
	for _, kind := range []ActionKind{ActionAccessData, ActionHandOff} {
		risk, alerts := Score(b, ScoreInput{Kind: kind, Target: "telemetry", DataTarget: true})
		if risk != 8 {
			t.Fatalf("kind %s: expected risk 8, got %d", kind, risk)
		}
		if len(alerts) != 1 || alerts[0].Kind != AlertUnauthorizedDataAccess {
			t.Fatalf("kind %s: expected one UNAUTHORIZED_DATA_ACCESS alert, got %+v", kind, alerts)
		}
		if alerts[0].Severity != "high" {
			t.Fatalf("unexpected severity %q", alerts[0].Severity)
		}
	}
}

func TestScore_ToolUseViolation(t *testing.T) {
	b := schedulingBaseline()

	risk, alerts := Score(b, ScoreInput{Kind: ActionInvokeCapability, Target: "detect_anomalies"})
	if risk != 7 {
		t.Fatalf("expected risk 7, got %d", risk)
	}
	if len(alerts) != 1 || alerts[0].Kind != AlertUnauthorizedToolUse {
		t.Fatalf("expected UNAUTHORIZED_TOOL_USE, got %+v", alerts)
	}

	risk, alerts = Score(b, ScoreInput{Kind: ActionInvokeCapability, Target: "book_appointment"})
	if risk != 0 || len(alerts) != 0 {
		t.Fatalf("allowed tool must score 0, got %d %+v", risk, alerts)
	}
}

func TestScore_HighestWinsNoSumming(t *testing.T) {
	b := schedulingBaseline()

	// Unauthorized tool use at excessive frequency: 7 beats 5, never 12.
	risk, alerts := Score(b, ScoreInput{Kind: ActionInvokeCapability, Target: "detect_anomalies", RecentCount: 100})
	if risk != 7 {
		t.Fatalf("expected highest score 7, got %d", risk)
	}
	if len(alerts) != 1 || alerts[0].Kind != AlertUnauthorizedToolUse {
		t.Fatalf("expected single winning alert, got %+v", alerts)
	}
}

func TestScore_FrequencyCeiling(t *testing.T) {
	b := schedulingBaseline() // ceiling 15, trip point > 22.5 calls/hour

	risk, alerts := Score(b, ScoreInput{Kind: ActionInvokeCapability, Target: "book_appointment", RecentCount: 22})
	if risk != 5 || len(alerts) != 1 || alerts[0].Kind != AlertUnusualFrequency {
		t.Fatalf("expected UNUSUAL_FREQUENCY at risk 5, got %d %+v", risk, alerts)
	}

	risk, _ = Score(b, ScoreInput{Kind: ActionInvokeCapability, Target: "book_appointment", RecentCount: 21})
	if risk != 0 {
		t.Fatalf("within 1.5x ceiling must score 0, got %d", risk)
	}
}

func TestScore_UnrestrictedNeverFlagged(t *testing.T) {
	registry, err := NewRegistry(DefaultBaselines()...)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	b, known := registry.Lookup("mystery_agent")
	if known || !b.Unrestricted {
		t.Fatalf("unknown worker must get unrestricted baseline, got %+v known=%v", b, known)
	}
	risk, alerts := Score(b, ScoreInput{Kind: ActionAccessData, Target: "telemetry", DataTarget: true, RecentCount: 1000})
	if risk != 0 || len(alerts) != 0 {
		t.Fatalf("unrestricted worker must never score, got %d %+v", risk, alerts)
	}
}

func TestRegistry_KnownScope(t *testing.T) {
	registry, err := NewRegistry(DefaultBaselines()...)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	if !registry.KnownScope("telemetry") || !registry.KnownScope("capa") {
		t.Fatal("declared scopes must be known")
	}
	if registry.KnownScope("book_appointment") {
		t.Fatal("tool names are not data scopes")
	}
}

func TestResponse_Bands(t *testing.T) {
	cases := []struct {
		risk int
		want string
	}{
		{0, "ALLOW"}, {3, "ALLOW"}, {4, "MONITOR"}, {6, "MONITOR"}, {7, "ALERT"}, {10, "ALERT"},
	}
	for _, tc := range cases {
		if got := Response(tc.risk); got != tc.want {
			t.Fatalf("risk %d: expected %s, got %s", tc.risk, tc.want, got)
		}
	}
}
