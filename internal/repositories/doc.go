// Package repositories implements persistence for song -> track mappings.
//
// Both implementations satisfy [models.MappingStore], the key-value
// collaborator the resolver and batch driver depend on:
//   - [MappingRepository] : durable SQLite persistence, one row per song ID,
//     overwritten in place on re-resolution
//   - [MemoryStore] : process-local map, used by tests and as a scratch store
//
// Lookups for absent songs return (nil, nil) so callers can tell "never
// looked up" apart from a storage failure.
package repositories
