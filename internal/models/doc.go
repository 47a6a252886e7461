// Package models defines the domain entities for the castro podcast client.
//
// The package contains two categories of types:
//
// 1. Core entities owned by the persistence layer:
//   - [Podcast] : A subscribed feed
//   - [Episode] : A single episode with download state and local media path
//   - [EpisodeProgress] : Playback progress for one episode
//
// 2. Join views returned by the read surface:
//   - [EpisodeWithPodcast] : Episode paired with its podcast metadata
//   - [EpisodeWithProgress] : Episode paired with its playback progress
//
// Download state transitions are monotone: not_downloaded -> downloading ->
// downloaded, with the error path returning to not_downloaded. The
// [DownloadState.CanTransition] helper encodes the allowed moves.
package models
