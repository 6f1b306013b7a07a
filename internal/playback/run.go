package playback

import "github.com/ehrlich-b/go-haptic/internal/constants"

// onRun walks forward from start collecting the indices of a contiguous run
// of nonzero-amplitude steps, following the waveform's repeat wrap at most
// once, and returns the step indices plus their summed duration
// (total_on_duration, spec.md §4.2). A run that wraps and revisits its own
// start index without ever hitting an amplitude-zero step is open-ended;
// IndefiniteSegmentMs stands in for its duration so the adapter still gets a
// single bounded upload_and_start call, renewed at the next iteration.
func onRun(wave Wave, start int) (indices []int, total uint32) {
	i := start
	wrapped := false
	for {
		if wave.Amplitudes[i] == 0 {
			break
		}
		indices = append(indices, i)
		total += wave.Timings[i]

		next := i + 1
		if next >= int(wave.Length) {
			if wave.Repeat < 0 || wrapped {
				return indices, total
			}
			next = int(wave.Repeat)
			wrapped = true
		}
		if next == start {
			return indices, constants.IndefiniteSegmentMs
		}
		i = next
	}
	return indices, total
}

// stepNext advances past index i, following the waveform's repeat wrap.
// Returns false when the waveform has no repeat and i was its last step.
func stepNext(wave Wave, i int) (next int, more bool) {
	next = i + 1
	if next >= int(wave.Length) {
		if wave.Repeat < 0 {
			return 0, false
		}
		next = int(wave.Repeat)
	}
	return next, true
}
