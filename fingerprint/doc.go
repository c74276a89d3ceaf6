// Package fingerprint reduces assets to fixed-width binary codes.
//
// Two hashers implement [Hasher]:
//
//   - [DHash]: a perceptual difference hash over decoded raster images. The
//     image is converted to 8-bit luma, resized to (hashSize+1)×hashSize with
//     a Lanczos filter, and each pixel is compared with its right-hand
//     neighbour. Visually similar images produce codes at a small Hamming
//     distance.
//   - [ContentHash]: a 144-bit code cut from the SHA-256 digest of opaque
//     bytes. Any change to the input yields an unrelated code, so this path
//     only detects exact duplicates and should be queried with a threshold of
//     zero or close to it.
//
// Codes are packed 8 bits per byte, most significant bit first, with unused
// trailing bits cleared.
package fingerprint
