// Package models defines domain entities and persistence interfaces for the cover-art mapping service.
//
// The package contains two categories of types:
//
// 1. Catalog input: [Song], an immutable record owned by the catalog layer.
// Songs carry an optional type tag ("anime" routes image lookups to the
// anime-image backend) and an optional origin (series name) used as the
// anime search query.
//
// 2. Persistent output: [Mapping], the durable join between a song ID and a
// resolved remote track. Mappings hold the selected album image triple
// (large/medium/small), preview and external URLs, a 0-100 confidence score,
// and bookkeeping timestamps. A manual override always carries confidence 100.
//
// [MappingStore] abstracts the key-value persistence collaborator
// (get/put/delete/list/clear keyed by song ID); implementations live in the
// repositories package.
package models
