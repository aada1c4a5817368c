package types

// ---- Cycle state (retained) ----

// CycleState is the measurement/broadcast cycle position.
type CycleState uint8

const (
	StateIdle CycleState = iota
	StateTriggerSent
	StateSettlingWait
	StateReadComplete
	StatePublished
	StateHalted
)

func (s CycleState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTriggerSent:
		return "trigger_sent"
	case StateSettlingWait:
		return "settling_wait"
	case StateReadComplete:
		return "read_complete"
	case StatePublished:
		return "published"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

type StateChange struct {
	From CycleState `json:"from"`
	To   CycleState `json:"to"`
	TSms int64      `json:"ts_ms"`
}

// ---- Readings (retained) ----

// Reading is one completed cycle as seen on the telemetry bus.
type Reading struct {
	Seq    uint32         `json:"seq"`
	Raw    RawSample      `json:"raw"`
	Sample PhysicalSample `json:"sample"`
	// Manufacturer-specific data block as handed to the radio.
	Adv  []byte `json:"adv"`
	TSms int64  `json:"ts_ms"`
}

// ---- Faults (non-retained) ----

type Fault struct {
	Code  string `json:"code"`
	Op    string `json:"op"`
	Site  string `json:"site,omitempty"` // file:line of the failing call
	Fatal bool   `json:"fatal"`
	TSms  int64  `json:"ts_ms"`
}
