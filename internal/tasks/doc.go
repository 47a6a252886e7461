// package tasks implements the long-running podcast operations behind the
// command surface.
//
// The core abstraction is Engine, which orchestrates feed imports, library
// syncs, episode downloads, and playback handoff. Mutating operations return
// a request id immediately and run detached; each detached run publishes
// exactly one terminal done-or-error notification on the change bus, tagged
// with that id.
package tasks
