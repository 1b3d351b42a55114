// Package generation defines the boundary between the worker and external
// language model services. Stage handlers depend only on Engine; provider
// packages under internal/platform implement it and translate provider
// failures into the errors declared here so retry policy can classify them.
package generation
