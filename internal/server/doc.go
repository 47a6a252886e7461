// Package server exposes the library over HTTP for local frontends.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers method-qualified patterns on an [http.ServeMux].
//
// # Read Surface
//
// [LibraryHandler] serves JSON reads: the podcast list, per-podcast episode
// lists with progress, the latest-episodes and listen-history feeds, the
// in-flight download snapshot, and the player status. All mutations go
// through the tasks engine instead; their outcomes arrive on /events.
//
// # Event Stream
//
// [EventsHandler] bridges the in-process change bus onto a Server-Sent
// Events stream. Each bus notification becomes one SSE message whose event
// name is the notification signal and whose data is the JSON payload. The
// stream has no replay; clients only see notifications published while
// connected.
package server
