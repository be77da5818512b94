// Package orchestrator drives a pinning run. For every repository it lists
// the workflow files, backs them up, walks all documents concurrently against
// one shared lookup gate, writes back the documents that changed, and
// collects the outcome into a summary.
//
// Failures are contained at the smallest scope: a reference that cannot be
// resolved is left as it was, a document that cannot be parsed or written is
// skipped, and a repository that cannot be listed is skipped. None of these
// stop the run.
package orchestrator
