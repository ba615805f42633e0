// Package tasks orchestrates song-to-track resolution with progress reporting.
//
// # Core Components
//
//  1. [Resolver] : single-song resolution pipeline
//     - Searches the track backend with field-filtered queries
//     - Scores every candidate against the song and picks the best
//     - Persists the winning mapping; below-threshold songs leave no trace
//     - Supports manual pinning via [Resolver.SetMapping]
//
//  2. [Router] : cover-art routing
//     - Anime songs resolve through the anime image backend by origin title
//     - Everything else resolves through the mapping store and [Resolver]
//     - Caches resolved URLs per song, misses included
//
//  3. [BatchMapper] : whole-catalog driver
//     - Skips already-mapped songs up front (manual overrides re-confirmed)
//     - Resolves in fixed windows of MaxConcurrent with a delay between
//     - Reports progress once per processed song via [BatchOptions.OnProgress]
//
// # Error Handling
//
// Remote lookups are best-effort and degrade to nil or empty results. Only
// persistence writes surface errors; the batch driver counts per-song
// failures without aborting the run.
package tasks
