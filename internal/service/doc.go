// Package service holds the application use cases that sit between the
// task handlers and the stores.
//
// LessonService is the only writer of stage outputs. Each Save method
// loads the lesson, replaces one stage and its metadata, and writes the
// lesson back inside a single transaction, so a reader never observes a
// stage output without the metadata describing how it was produced.
package service
