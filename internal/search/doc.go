// Package search finds transcript segments matching a free-text query.
//
// A case-insensitive substring hit scores 100 and is flagged exact.
// Otherwise the query is compared with windows of the segment's word
// tokens using a SequenceMatcher similarity ratio, so misspellings and
// ASR mistakes still match.
package search
