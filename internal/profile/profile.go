// Package profile defines the profiling sink the sampling engine brackets
// its phases with. Sinks observe begin/end pairs and never influence
// control flow; the default sink does nothing.
package profile

// Event identifies a profiled phase.
type Event int

const (
	// EventInfer brackets a whole inference run.
	EventInfer Event = iota

	// EventInit brackets chain initialization.
	EventInit

	// EventStep brackets one scalar step attempt.
	EventStep

	// EventSimplexStep brackets one simplex coordinate sweep.
	EventSimplexStep

	// EventGradients brackets derivative propagation.
	EventGradients

	// EventProposer brackets proposal construction.
	EventProposer
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventInfer:
		return "infer"
	case EventInit:
		return "init"
	case EventStep:
		return "step"
	case EventSimplexStep:
		return "simplex-step"
	case EventGradients:
		return "gradients"
	case EventProposer:
		return "proposer"
	default:
		return "unknown"
	}
}

// Sink receives begin/end brackets around engine phases.
type Sink interface {
	Begin(Event)
	End(Event)
}

// Nop is the default sink; it discards every event.
type Nop struct{}

// Begin implements Sink.
func (Nop) Begin(Event) {}

// End implements Sink.
func (Nop) End(Event) {}

// Recorder keeps an ordered log of bracket events, for tests.
type Recorder struct {
	Entries []string
}

// Begin implements Sink.
func (r *Recorder) Begin(e Event) {
	r.Entries = append(r.Entries, "begin:"+e.String())
}

// End implements Sink.
func (r *Recorder) End(e Event) {
	r.Entries = append(r.Entries, "end:"+e.String())
}

// Balanced reports whether every begin has a matching later end.
func (r *Recorder) Balanced() bool {
	depth := map[string]int{}
	for _, entry := range r.Entries {
		switch {
		case len(entry) > 6 && entry[:6] == "begin:":
			depth[entry[6:]]++
		case len(entry) > 4 && entry[:4] == "end:":
			depth[entry[4:]]--
			if depth[entry[4:]] < 0 {
				return false
			}
		}
	}
	for _, d := range depth {
		if d != 0 {
			return false
		}
	}
	return true
}
