// Package redis provides a BlobStore backed by Redis string keys.
//
// SET replaces a value atomically, so readers never observe a partially
// written snapshot. Keys are namespaced with a prefix ("imgdedup:" by
// default). Redis holds whole snapshots in memory; it suits deployments
// whose collections fit comfortably in the server's maxmemory.
//
//	rdb := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	store := redis.NewStore(rdb, "imgdedup:")
package redis
