package metrics

import (
	"testing"
)

func TestEmitReachesRegisteredHandlers(t *testing.T) {
	var got []Metric
	id := RegisterHandler(func(m Metric) { got = append(got, m) })
	defer UnregisterHandler(id)

	Emit("pipeline", "rows_out", 42)

	if len(got) != 1 {
		t.Fatalf("expected 1 metric, got %d", len(got))
	}
	if got[0].Component != "pipeline" || got[0].Name != "rows_out" || got[0].Value != 42 {
		t.Fatalf("unexpected metric: %+v", got[0])
	}
	if got[0].Timestamp.IsZero() {
		t.Fatalf("metric timestamp not set")
	}
}

func TestEmitSkipsUnnamedMetrics(t *testing.T) {
	count := 0
	id := RegisterHandler(func(Metric) { count++ })
	defer UnregisterHandler(id)

	Emit("pipeline", "", 1)
	if count != 0 {
		t.Fatalf("unnamed metric should be dropped")
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	count := 0
	id := RegisterHandler(func(Metric) { count++ })
	UnregisterHandler(id)

	Emit("pipeline", "rows_out", 1)
	if count != 0 {
		t.Fatalf("handler fired after unregister")
	}
}

func TestRegisterNilHandler(t *testing.T) {
	if id := RegisterHandler(nil); id != 0 {
		t.Fatalf("nil handler should not be registered, got id %d", id)
	}
}
