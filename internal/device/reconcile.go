package device

import (
	"log/slog"

	"github.com/smazurov/zmqls/internal/events"
)

// Result is the outcome of applying one setting.
type Result int

const (
	OK Result = iota
	UsingDefault
	NotFound
	NotSupported
	NotOpen
)

func (r Result) String() string {
	switch r {
	case OK:
		return "OK"
	case UsingDefault:
		return "USING_DEFAULT"
	case NotFound:
		return "NOT_FOUND"
	case NotSupported:
		return "NOT_SUPPORTED"
	case NotOpen:
		return "NOT_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Controller is the part of a capture device the reconciler talks to.
type Controller interface {
	IsOpen() bool
	// Set applies value and reports whether the device accepted it.
	Set(id SettingID, value float64) bool
}

// Values supplies requested settings by display name.
type Values interface {
	Value(name string) (float64, bool)
}

// Outcome records what happened to one setting.
type Outcome struct {
	Setting Setting
	Value   float64
	Result  Result
}

// Reconcile applies every catalog setting found in values to dev, in catalog
// order. A failing setting never stops the pass.
func Reconcile(dev Controller, values Values) []Outcome {
	out := make([]Outcome, 0, len(Catalog))
	for _, s := range Catalog {
		out = append(out, reconcileOne(dev, values, s))
	}
	return out
}

func reconcileOne(dev Controller, values Values, s Setting) Outcome {
	o := Outcome{Setting: s}
	if !dev.IsOpen() {
		o.Result = NotOpen
		return o
	}
	v, ok := values.Value(s.Name)
	if !ok {
		o.Result = NotFound
		return o
	}
	o.Value = v
	if s.UsesPositiveDefault && v <= 0 {
		o.Result = UsingDefault
		return o
	}
	if dev.Set(s.ID, v) {
		o.Result = OK
	} else {
		o.Result = NotSupported
	}
	return o
}

// Reconciler runs Reconcile and reports each outcome. OK, USING_DEFAULT and
// NOT_FOUND are logged only when verbose; NOT_SUPPORTED and NOT_OPEN always.
type Reconciler struct {
	Logger  *slog.Logger
	Bus     *events.Bus
	Stream  string
	Verbose bool
}

func (r *Reconciler) Run(dev Controller, values Values) []Outcome {
	outcomes := Reconcile(dev, values)
	for _, o := range outcomes {
		r.report(o)
	}
	return outcomes
}

func (r *Reconciler) report(o Outcome) {
	r.Bus.Publish(events.SettingReconciledEvent{
		Stream:  r.Stream,
		Setting: o.Setting.Name,
		Value:   o.Value,
		Result:  o.Result.String(),
	})
	if r.Logger == nil {
		return
	}

	switch o.Result {
	case OK:
		if r.Verbose {
			r.Logger.Info("Setting applied", "setting", o.Setting.Name, "value", o.Value)
		}
	case UsingDefault:
		if r.Verbose {
			r.Logger.Info("Setting not positive, keeping device default", "setting", o.Setting.Name, "value", o.Value)
		}
	case NotFound:
		if r.Verbose {
			r.Logger.Info("Setting not configured", "setting", o.Setting.Name)
		}
	case NotSupported:
		r.Logger.Warn("Setting not supported by device", "setting", o.Setting.Name, "value", o.Value)
	case NotOpen:
		r.Logger.Warn("Device not open, setting skipped", "setting", o.Setting.Name)
	}
}
