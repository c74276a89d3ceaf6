// Package index provides the binary similarity index.
//
// A [Flat] index stores fixed-width packed codes back to back and answers
// range queries by a linear Hamming scan. Every code whose distance to the
// query is at most the threshold is returned, so results are exact and a
// larger threshold never returns fewer matches.
//
// Entries are append-only. Each insert is assigned the next sequence ID,
// starting at 0, and may carry a label such as the original filename.
//
// # Example
//
//	idx, _ := index.NewFlat(256)
//	id, _ := idx.Insert(code, "cat.png")
//	res, _ := idx.RangeSearch(query, 10)
//	if res.Len() > 0 {
//	    // near-duplicate of res.Matches[0].Label
//	}
package index
