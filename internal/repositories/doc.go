// package repositories provides the SQLite persistence layer for podcasts,
// episodes, and playback progress.
//
// Repositories are safe for concurrent use; they share one *sql.DB and rely
// on its connection pooling. Within a single process reads observe prior
// writes (read-after-write consistency), which the download orchestrator and
// player checkpointing depend on.
package repositories
