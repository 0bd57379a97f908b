package metrics

import (
	"github.com/smazurov/zmqls/internal/events"
)

// Subscribe feeds the metrics from bus and returns a function that stops it.
func Subscribe(bus *events.Bus) func() {
	unsubs := []func(){
		bus.Subscribe(func(e events.StreamStateChangedEvent) {
			SetUp(e.Stream, e.Role, e.State == events.StateRunning)
		}),
		bus.Subscribe(func(e events.FrameProcessedEvent) {
			AddFrame(e.Stream, e.Role, e.Bytes)
		}),
		bus.Subscribe(func(e events.FrameSkippedEvent) {
			AddSkipped(e.Stream, e.Role, e.Reason)
		}),
		bus.Subscribe(func(e events.RateSampledEvent) {
			SetFPS(e.Stream, e.Role, e.FPS)
		}),
		bus.Subscribe(func(e events.SettingReconciledEvent) {
			AddSettingResult(e.Stream, e.Setting, e.Result)
		}),
	}
	return func() {
		for _, fn := range unsubs {
			fn()
		}
	}
}
