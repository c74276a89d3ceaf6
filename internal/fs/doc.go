// Package fs provides filesystem abstractions for testability and fault injection.
//
//   - [LocalFS]: production implementation over the os package
//   - [FaultyFS]: injects write, sync, close and rename failures
//
// Tests can inject [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule(".tmp-", fs.Fault{FailAfterBytes: 16})
package fs
