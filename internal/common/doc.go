// Package common holds small helpers shared by the pipeline, the batch
// scanner and the CLI: stage timers and runtime memory snapshots.
package common
