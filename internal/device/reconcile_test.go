package device

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smazurov/zmqls/internal/events"
)

type fakeDevice struct {
	open   bool
	reject map[SettingID]bool
	set    []SettingID
	values map[SettingID]float64
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{open: true, reject: map[SettingID]bool{}, values: map[SettingID]float64{}}
}

func (d *fakeDevice) IsOpen() bool { return d.open }

func (d *fakeDevice) Set(id SettingID, v float64) bool {
	d.set = append(d.set, id)
	if d.reject[id] {
		return false
	}
	d.values[id] = v
	return true
}

type values map[string]float64

func (v values) Value(name string) (float64, bool) {
	f, ok := v[name]
	return f, ok
}

func results(outcomes []Outcome) map[string]Result {
	m := make(map[string]Result, len(outcomes))
	for _, o := range outcomes {
		m[o.Setting.Name] = o.Result
	}
	return m
}

func TestCatalogOrder(t *testing.T) {
	var names []string
	for _, s := range Catalog {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"width", "height", "fps", "brightness", "contrast", "saturation", "hue", "gain", "exposure"}, names)

	for _, s := range Catalog {
		want := s.ID == FrameWidth || s.ID == FrameHeight || s.ID == FPS
		assert.Equal(t, want, s.UsesPositiveDefault, s.Name)
	}
}

func TestLookup(t *testing.T) {
	s, ok := Lookup(Gain)
	require.True(t, ok)
	assert.Equal(t, "gain", s.Name)
	assert.Equal(t, "exposure", Exposure.String())

	_, ok = Lookup(SettingID(42))
	assert.False(t, ok)
	assert.Equal(t, "unknown", SettingID(42).String())
}

func TestReconcileNotOpen(t *testing.T) {
	dev := newFakeDevice()
	dev.open = false

	out := Reconcile(dev, values{"width": 640, "gain": 3})
	require.Len(t, out, len(Catalog))
	for _, o := range out {
		assert.Equal(t, NotOpen, o.Result, o.Setting.Name)
	}
	assert.Empty(t, dev.set, "closed device must not be written")
}

func TestReconcileTable(t *testing.T) {
	dev := newFakeDevice()
	dev.reject[Hue] = true

	out := Reconcile(dev, values{
		"width":      640,
		"height":     -1,
		"fps":        0,
		"brightness": 0,
		"contrast":   -20,
		"hue":        10,
		"exposure":   -4,
	})

	assert.Equal(t, map[string]Result{
		"width":      OK,
		"height":     UsingDefault,
		"fps":        UsingDefault,
		"brightness": OK,
		"contrast":   OK,
		"saturation": NotFound,
		"hue":        NotSupported,
		"gain":       NotFound,
		"exposure":   OK,
	}, results(out))

	assert.Equal(t, []SettingID{FrameWidth, Brightness, Contrast, Hue, Exposure}, dev.set,
		"writes happen in catalog order and skip defaulted settings")
	assert.Equal(t, -20.0, dev.values[Contrast])
}

func TestReconcileKeepsGoingAfterFailures(t *testing.T) {
	dev := newFakeDevice()
	for _, s := range Catalog {
		dev.reject[s.ID] = true
	}
	v := values{}
	for _, s := range Catalog {
		v[s.Name] = 1
	}

	out := Reconcile(dev, v)
	require.Len(t, out, len(Catalog))
	for _, o := range out {
		assert.Equal(t, NotSupported, o.Result)
	}
	assert.Len(t, dev.set, len(Catalog))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "OK", OK.String())
	assert.Equal(t, "USING_DEFAULT", UsingDefault.String())
	assert.Equal(t, "NOT_FOUND", NotFound.String())
	assert.Equal(t, "NOT_SUPPORTED", NotSupported.String())
	assert.Equal(t, "NOT_OPEN", NotOpen.String())
	assert.Equal(t, "UNKNOWN", Result(99).String())
}

func TestReconcilerLoggingPolicy(t *testing.T) {
	dev := newFakeDevice()
	dev.reject[Gain] = true
	v := values{"width": 640, "fps": 0, "gain": 2}

	run := func(verbose bool) string {
		var buf bytes.Buffer
		r := &Reconciler{
			Logger:  slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})),
			Verbose: verbose,
		}
		r.Run(dev, v)
		return buf.String()
	}

	quiet := run(false)
	assert.Contains(t, quiet, "setting=gain")
	assert.NotContains(t, quiet, "setting=width")
	assert.NotContains(t, quiet, "setting=fps")
	assert.NotContains(t, quiet, "setting=hue")
	assert.Equal(t, 1, strings.Count(quiet, "\n"))

	loud := run(true)
	for _, name := range []string{"width", "fps", "gain", "hue"} {
		assert.Contains(t, loud, "setting="+name)
	}
	assert.Equal(t, len(Catalog), strings.Count(loud, "\n"))
}

func TestReconcilerNotOpenAlwaysLogged(t *testing.T) {
	dev := newFakeDevice()
	dev.open = false

	var buf bytes.Buffer
	r := &Reconciler{Logger: slog.New(slog.NewTextHandler(&buf, nil))}
	r.Run(dev, values{})

	assert.Equal(t, len(Catalog), strings.Count(buf.String(), "level=WARN"))
}

func TestReconcilerPublishesOutcomes(t *testing.T) {
	bus := events.New()
	var mu sync.Mutex
	got := map[string]string{}
	done := make(chan struct{})
	unsub := bus.Subscribe(func(e events.SettingReconciledEvent) {
		mu.Lock()
		defer mu.Unlock()
		got[e.Setting] = e.Result
		assert.Equal(t, "cam1", e.Stream)
		if len(got) == len(Catalog) {
			close(done)
		}
	})
	defer unsub()

	r := &Reconciler{Bus: bus, Stream: "cam1"}
	r.Run(newFakeDevice(), values{"brightness": 3})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("not every outcome was published")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "OK", got["brightness"])
	assert.Equal(t, "NOT_FOUND", got["width"])
}
