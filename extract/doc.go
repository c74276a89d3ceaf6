// Package extract decides how an uploaded asset is fingerprinted.
//
// A raster image is hashed perceptually as-is. A glTF or GLB model is
// searched for embedded images (buffer views and data: URIs); if it has
// any, each one is hashed perceptually. Everything else, including models
// without embedded images, is hashed by content.
//
// Extraction happens entirely in memory. External image URIs are not
// resolved.
package extract
