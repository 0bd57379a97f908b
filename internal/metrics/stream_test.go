package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smazurov/zmqls/internal/events"
)

func TestStreamMetricsCache(t *testing.T) {
	Delete("cache-test", "producer")

	if m := Get("cache-test", "producer"); m != nil {
		t.Fatal("expected nil for unknown stream")
	}

	SetUp("cache-test", "producer", true)
	SetFPS("cache-test", "producer", 25)
	AddFrame("cache-test", "producer", 1000)
	AddFrame("cache-test", "producer", 500)
	AddSkipped("cache-test", "producer", "capture")

	m := Get("cache-test", "producer")
	if m == nil {
		t.Fatal("expected metrics")
	}
	if !m.Up || m.FPS != 25 || m.Frames != 2 || m.Bytes != 1500 || m.Skipped != 1 {
		t.Errorf("unexpected metrics %+v", *m)
	}

	m.FPS = 999
	if Get("cache-test", "producer").FPS != 25 {
		t.Error("cache was modified through the returned copy")
	}

	Delete("cache-test", "producer")
	if Get("cache-test", "producer") != nil {
		t.Error("expected nil after delete")
	}
}

func TestSubscribeFeedsFromBus(t *testing.T) {
	bus := events.New()
	stop := Subscribe(bus)
	defer stop()
	defer Delete("bus-test", "consumer")

	bus.Publish(events.StreamStateChangedEvent{Stream: "bus-test", Role: "consumer", State: events.StateRunning})
	bus.Publish(events.FrameProcessedEvent{Stream: "bus-test", Role: "consumer", Bytes: 42})
	bus.Publish(events.RateSampledEvent{Stream: "bus-test", Role: "consumer", FPS: 12.5})
	bus.Publish(events.FrameSkippedEvent{Stream: "bus-test", Role: "consumer", Reason: "decode"})

	deadline := time.Now().Add(2 * time.Second)
	for {
		m := Get("bus-test", "consumer")
		if m != nil && m.Up && m.Frames == 1 && m.Bytes == 42 && m.FPS == 12.5 && m.Skipped == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics not updated from bus: %+v", m)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandlerExposesStreamMetrics(t *testing.T) {
	SetFPS("http-test", "producer", 30)
	defer Delete("http-test", "producer")

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	body := w.Body.String()
	if !strings.Contains(body, `zmqls_stream_fps{role="producer",stream="http-test"} 30`) {
		t.Errorf("fps series missing from:\n%s", body)
	}
}
