// Package operations runs quality of life inversions in the background.
//
// A JobQueue owns a fixed pool of workers fed by a bounded channel. Enqueue
// records a pending Job in the JobStore and returns immediately; callers
// poll GetJob for progress and the final qol.Result.
//
// Job lifecycle:
//
//	pending → running → completed | failed
//	pending | running → cancelled (CancelJob or queue shutdown)
//
// Progress is reported as a percentage of the iteration budget
// (MaxIter per Theta column). It never decreases and stays below 100
// until the job completes. A job that stops at MaxIter without meeting
// the tolerance still completes; its Result reports Converged == false.
//
// MemoryJobStore keeps jobs in process memory. Finished jobs older than
// the configured retention are removed by a background janitor.
package operations
