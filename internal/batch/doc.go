// Package batch fans an ordered slice out into fixed-size groups, runs a
// transform over the groups with bounded concurrency, retries failed
// groups with rate-limit aware backoff, and reassembles the results in
// input order.
//
// Map is for 1:1 transforms (corrected segment i replaces segment i);
// FlatMap is for transforms whose output count differs from their input
// (many segments become a few edited paragraphs). Both wait for every
// group before returning.
package batch
