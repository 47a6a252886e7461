// Package player owns playback state and the physical decode/output chain.
//
// The [Player] handle is safe to share across goroutines; every mutation
// funnels through one mutex. Exactly one decode/output chain is live at a
// time: starting a new episode fully tears down the previous chain before
// constructing the next one, so audio never overlaps and no output resources
// leak.
//
// Transport commands are cheap state flips on the chain; the expensive work
// (decode setup, file and network I/O) happens when a chain is built. The
// command-dispatch layer invokes these methods from dedicated goroutines so
// callers never wait on audio I/O.
//
// Playback progress is checkpointed to the [ProgressSink] on pause, stop,
// completion, and on a periodic tick while playing, so a crash loses at most
// one checkpoint interval.
package player
