// Package storage provides key-value backends for persisted store records.
//
// Every backend implements StateStorage, the three-operation contract used by
// the persistence middleware:
//   - GetItem: read one serialized record, reporting absence separately
//   - SetItem: replace the record under a key
//   - RemoveItem: delete a record (not supported by the HTTP backend)
//
// # Backends
//
//   - HTTP: remote JSON document store, GET/PUT <base>/<key>.json
//   - SQLite: local kv table with WAL mode and user_version migrations
//   - Redis: one string key per record, optional key prefix
//   - Memory: process-local map for tests and throwaway sessions
//
// Transport and decoding failures are returned as *AdapterError. Absence is
// not an error: GetItem returns ok=false.
package storage
