// Package events decouples callers that want work done from the task
// package that schedules it.
//
// The ops HTTP handlers and the MCP tools emit a TaskRequestEvent; a
// handler registered with the emitter turns it into a persisted pending
// task.
package events
