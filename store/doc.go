// Package store persists binary index collections.
//
// A collection is identified by its name and bit width and is kept as a
// single snapshot blob named "<name>_<bitwidth>" in a blobstore.BlobStore.
// Loading a collection that was never saved yields an empty index. A blob
// that exists but cannot be decoded is reported as [ErrCorrupt] and is never
// silently replaced by an empty collection.
//
// Writes are serialized per key. [Store.Update] holds the key's lock for the
// whole load, mutate and save cycle, so concurrent adds to one collection
// never lose entries. Readers do not lock: backends replace blobs
// atomically, so a load sees either the previous or the next snapshot.
//
//	s := store.New(blobstore.NewMemoryStore())
//	err := s.Update(ctx, "faiss_index", 256, func(idx *index.Flat) error {
//	    _, err := idx.Insert(code, "cat.png")
//	    return err
//	})
package store
