// Package store defines persistence interfaces for the application's
// entities, the DBTX abstraction over connections and transactions,
// and the sentinel errors implementations translate database failures
// into. Concrete implementations live in platform/postgres.
package store
