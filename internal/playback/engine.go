package playback

import (
	"sync"
	"time"

	"github.com/ehrlich-b/go-haptic/internal/constants"
	"github.com/ehrlich-b/go-haptic/internal/ffdev"
	"github.com/ehrlich-b/go-haptic/internal/interfaces"
	"github.com/ehrlich-b/go-haptic/internal/logging"
)

// Engine owns the single background playback worker goroutine that may be
// active at any time (spec.md §5). Every Start call assigns a new
// generation number; a worker notices it has been superseded by comparing
// its own generation against Engine's current one at each cancelable point,
// rather than through a shared stop flag alone, so stale workers from two
// preemptions ago can never race a fresher one.
type Engine struct {
	adapter  *ffdev.Adapter
	logger   interfaces.Logger
	observer interfaces.Observer

	mu         sync.Mutex
	activity   Activity
	generation uint64
	doneCh     chan struct{}
}

// NewEngine wraps adapter. observer may be nil.
func NewEngine(adapter *ffdev.Adapter, logger interfaces.Logger, observer interfaces.Observer) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{adapter: adapter, logger: logger, observer: observer}
}

// Activity reports what is currently playing, if anything.
func (e *Engine) Activity() Activity {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activity
}

func (e *Engine) newGeneration(activity Activity) (gen uint64, done chan struct{}) {
	e.generation++
	gen = e.generation
	done = make(chan struct{})
	e.doneCh = done
	e.activity = activity
	return gen, done
}

func (e *Engine) stopped(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation != gen
}

func (e *Engine) finish(gen uint64, done chan struct{}) {
	e.mu.Lock()
	if e.generation == gen {
		e.activity = ActivityNone
	}
	e.mu.Unlock()
	close(done)
}

// StartWaveform begins stepping wave, preempting whatever is currently
// playing. If a waveform is already in progress, the new one first waits
// for the old worker to observe its own supersession and exit
// (waveform-preempts-waveform, spec.md §4.2/§9); any other kind of
// preemption only signals and returns immediately, tolerating the
// documented single-step-boundary race (spec.md §5).
func (e *Engine) StartWaveform(wave Wave) {
	e.mu.Lock()
	priorWasWaveform := e.activity == ActivityWaveform
	priorDone := e.doneCh
	gen, done := e.newGeneration(ActivityWaveform)
	e.mu.Unlock()

	if priorWasWaveform && priorDone != nil {
		<-priorDone
	}

	go e.runWaveform(gen, done, wave)
}

// StartInterval begins the fixed duration/interval repeater, preempting
// whatever is currently playing without waiting (spec.md §4.2).
func (e *Engine) StartInterval(spec IntervalSpec) {
	e.mu.Lock()
	gen, done := e.newGeneration(ActivityInterval)
	e.mu.Unlock()

	go e.runInterval(gen, done, spec)
}

// Preempt signals any in-progress waveform or interval worker to stop at
// its next cancelable point, without waiting for it to exit and without
// touching the adapter. Used before Start/PredefinedEffect/Primitive drive
// the adapter directly, so a superseded worker can never race their upload
// (spec.md §4.2's preemption protocol, Property 1/scenario S3).
func (e *Engine) Preempt() {
	e.mu.Lock()
	e.generation++
	e.activity = ActivityNone
	e.mu.Unlock()
}

// Stop halts any in-progress activity and turns the motor off. It does not
// wait for the superseded worker's goroutine to exit; that worker will
// notice on its next cancelable point and exit without touching the
// adapter again (spec.md §4.4 Stop).
func (e *Engine) Stop() {
	e.mu.Lock()
	e.generation++
	e.activity = ActivityNone
	e.mu.Unlock()

	if err := e.adapter.Off(); err != nil {
		e.logger.Errorf("playback: stop: %v", err)
	}
}

// delayCancelable sleeps d in DelayQuantum-sized chunks, returning false as
// soon as gen is superseded so a force-stop is noticed promptly mid-step
// (spec.md §4.2, §5).
func (e *Engine) delayCancelable(gen uint64, d time.Duration) bool {
	for d > 0 {
		chunk := constants.DelayQuantum
		if d < chunk {
			chunk = d
		}
		time.Sleep(chunk)
		d -= chunk
		if e.stopped(gen) {
			return false
		}
	}
	return !e.stopped(gen)
}

func (e *Engine) runWaveform(gen uint64, done chan struct{}, wave Wave) {
	defer e.finish(gen, done)

	if wave.Length == 0 {
		return
	}

	i := 0
	for {
		if e.stopped(gen) {
			return
		}

		intensity := e.adapter.Intensity()
		if wave.Amplitudes[i] == 0 || !shouldVibrate(intensity) {
			if !e.delayCancelable(gen, time.Duration(wave.Timings[i])*time.Millisecond) {
				return
			}
			next, more := stepNext(wave, i)
			if !more {
				return
			}
			i = next
			continue
		}

		indices, total := onRun(wave, i)
		if err := e.adapter.SetGain(scale(wave.Amplitudes[i], intensity)); err != nil {
			e.logger.Errorf("playback: set gain: %v", err)
		}
		if _, err := e.adapter.UploadAndStart(nil, total); err != nil {
			e.logger.Errorf("playback: upload_and_start: %v", err)
			return
		}
		if e.observer != nil {
			e.observer.ObservePlaybackStep(scale(wave.Amplitudes[i], intensity), total)
		}

		for k, idx := range indices {
			if !e.delayCancelable(gen, time.Duration(wave.Timings[idx])*time.Millisecond) {
				return
			}
			if k+1 < len(indices) {
				nextAmp := scale(wave.Amplitudes[indices[k+1]], e.adapter.Intensity())
				if err := e.adapter.SetGain(nextAmp); err != nil {
					e.logger.Errorf("playback: set gain: %v", err)
				}
			}
		}
		_ = e.adapter.Off()

		next, more := stepNext(wave, indices[len(indices)-1])
		if !more {
			return
		}
		i = next
	}
}

func (e *Engine) runInterval(gen uint64, done chan struct{}, spec IntervalSpec) {
	defer e.finish(gen, done)

	count := spec.Count
	for count != 0 {
		if e.stopped(gen) {
			return
		}
		if _, err := e.adapter.UploadAndStart(nil, spec.DurationMs); err != nil {
			e.logger.Errorf("playback: interval upload_and_start: %v", err)
			return
		}
		if e.observer != nil {
			e.observer.ObservePlaybackStep(e.adapter.CurrentAmplitude(), spec.DurationMs)
		}
		if !e.delayCancelable(gen, time.Duration(spec.DurationMs)*time.Millisecond) {
			return
		}
		if !e.delayCancelable(gen, time.Duration(spec.IntervalMs)*time.Millisecond) {
			return
		}
		if count > 0 {
			count--
		}
	}
}
