// Package imgdedup detects near-duplicate images.
//
// Every upload is reduced to fixed-width binary fingerprints and tested
// against a persisted collection with a bounded Hamming-distance query.
// Raster images, and images embedded in glTF/GLB models, are fingerprinted
// perceptually with a difference hash, so re-encodes and light edits land
// within a few bits of the original. Other assets are fingerprinted by
// content and only match exact copies.
//
// # Quick Start
//
//	blobs, _ := blobstore.NewLocalStore("./data")
//	svc := imgdedup.New(store.New(blobs))
//
//	_, _ = svc.Add(ctx, imgdedup.Upload{Filename: "cat.png", Data: png})
//	res, _ := svc.Check(ctx, imgdedup.Upload{Filename: "cat.jpg", Data: jpg}, 10)
//	fmt.Println(res.Duplicated)
//
// # Collections
//
// A collection is identified by a name and a bit width and is stored as one
// blob named "<name>_<bitwidth>". Perceptual codes of hash size n go to the
// n² collection (256 bits by default); content codes always go to the
// 144-bit collection. Collections are created on first add and are never
// deleted.
//
// Adds to the same collection are serialized by the store's per-key lock,
// in-process and, with a distributed locker, across processes. Checks read
// the last saved snapshot without locking.
//
// # Errors
//
// Errors match one of [ErrDecode], [ErrConfig], [ErrDimensionMismatch],
// [ErrStoreCorrupt] or [ErrStoreUnavailable] with errors.Is; [KindOf] names
// the kind for transports.
package imgdedup
