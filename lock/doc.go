// Package lock provides per-key mutual exclusion.
//
// A [Locker] serializes critical sections that share a key. The store uses
// one around every load, mutate and save cycle so that concurrent adds to the
// same collection cannot lose each other's inserts.
//
// Implementations:
//
//   - [KeyedMutex]: goroutines within one process
//   - [FileLocker]: processes on one host sharing a directory (flock(2))
//   - lock/redis: a lease held in Redis (SET NX PX)
//   - lock/dynamodb: a lease held in a DynamoDB item (conditional writes)
//
// [Chain] combines lockers; the store always puts a KeyedMutex first so that
// goroutines queue in process before contending for a distributed lease.
package lock
