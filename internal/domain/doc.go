// Package domain contains the core entities exchanged with the task analysis
// service: task records, analysis results, derived suggestions, and the
// display tiers scores are bucketed into. It has no knowledge of transport,
// rendering, or where a task batch came from.
package domain
