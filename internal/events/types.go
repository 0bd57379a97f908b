package events

// Event type constants for kelindar/event.
const (
	TypeStreamStateChanged uint32 = iota + 1
	TypeSettingReconciled
	TypeFrameProcessed
	TypeFrameSkipped
	TypeRateSampled
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// Stream states.
const (
	StateStarting = "starting"
	StateRunning  = "running"
	StateStopped  = "stopped"
	StateFailed   = "failed"
)

// StreamStateChangedEvent is published when a stream starts, stops or fails.
type StreamStateChangedEvent struct {
	Stream string `json:"stream"`
	Role   string `json:"role"`
	State  string `json:"state"`
	Error  string `json:"error,omitempty"`
}

func (e StreamStateChangedEvent) Type() uint32 { return TypeStreamStateChanged }

// SettingReconciledEvent carries the outcome for one device setting.
type SettingReconciledEvent struct {
	Stream  string  `json:"stream"`
	Setting string  `json:"setting"`
	Value   float64 `json:"value"`
	Result  string  `json:"result"`
}

func (e SettingReconciledEvent) Type() uint32 { return TypeSettingReconciled }

// FrameProcessedEvent is published for every frame sent or rendered.
type FrameProcessedEvent struct {
	Stream string `json:"stream"`
	Role   string `json:"role"`
	Bytes  int    `json:"bytes"`
}

func (e FrameProcessedEvent) Type() uint32 { return TypeFrameProcessed }

// FrameSkippedEvent is published when an iteration is abandoned.
type FrameSkippedEvent struct {
	Stream string `json:"stream"`
	Role   string `json:"role"`
	Reason string `json:"reason"`
}

func (e FrameSkippedEvent) Type() uint32 { return TypeFrameSkipped }

// RateSampledEvent carries the achieved rate of the last iteration.
type RateSampledEvent struct {
	Stream string  `json:"stream"`
	Role   string  `json:"role"`
	FPS    float64 `json:"fps"`
}

func (e RateSampledEvent) Type() uint32 { return TypeRateSampled }
