// Package playback drives background vibration activity on top of an
// internal/ffdev.Adapter: stepping a waveform's amplitude/timing pairs, or
// repeating a fixed duration/interval pattern, while remaining cancelable at
// each step boundary (spec.md §4.2, §5). Grounded on the teacher's
// internal/queue.Runner — a single worker goroutine owned and canceled by
// its parent, logging each transition rather than returning it.
package playback

// Activity identifies which kind of background playback, if any, currently
// owns the adapter (spec.md §3 invariant I3: at most one playback activity).
type Activity int

const (
	ActivityNone Activity = iota
	ActivityWaveform
	ActivityInterval
)

// Wave is a value copy of a Waveform command's payload. The engine takes
// ownership of its own copy so the caller's buffer can be reused immediately
// after Start returns (spec.md §9, handoff without a data race).
type Wave struct {
	Timings    []uint32
	Amplitudes []uint8
	Length     uint8
	Repeat     int8
}

// IntervalSpec is a value copy of an Interval command's payload: play for
// DurationMs, rest for IntervalMs, Count times (Count < 0 means forever).
type IntervalSpec struct {
	DurationMs uint32
	IntervalMs uint32
	Count      int32
}
