// Package batchrunner hosts the shared abstraction for configuration-driven
// multi-target batch operations. Every dsk command (mounting remotes, cleanup
// steps, scaffold steps, permission resets, archive extraction) is the same
// loop: evaluate a precondition per target, optionally confirm, perform a
// side-effecting external action, optionally measure bytes freed, classify
// the outcome, and continue regardless of individual failures. The runner
// performs no console output of its own; callers render the returned
// RunResult and map it to a process exit code.
package batchrunner
