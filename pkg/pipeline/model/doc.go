// Package model holds the types shared by the pipeline engine and its options:
// step descriptions, the start and end sentinels, and the PipelineOption hooks.
package model
