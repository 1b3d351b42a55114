// Package task schedules and executes lesson processing jobs.
//
// A Task is a persisted record with a forward-only status lifecycle
// (pending → running → completed | failed). The Worker polls the TaskStore
// for the oldest pending task, claims it with a guarded transition,
// decodes its typed parameters and dispatches it to the Handler for its
// type. Handlers for transcription, correction, edition and summary live
// in this package and persist their output through a LessonService.
package task
