// Package cache provides a policy-driven value cache with three backing
// locations: process-local memory, a temp-directory file store and a
// persistent per-user file store.
//
// Every lookup goes through GetOrSet or GetOrSetWithPolicy. A live entry is
// returned without calling the fetcher; otherwise the fetcher runs and its
// result is stored with a fresh timestamp. Expiration is evaluated lazily at
// read time, there is no background sweep.
//
// Memory entries are private to one Store. File-backed entries are shared
// with every Store (in this or another process) that resolves to the same
// directory; access to a directory is serialized with an advisory file lock.
package cache
