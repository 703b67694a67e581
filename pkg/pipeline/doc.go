// Package pipeline provides a channel based step engine.
//
// A pipeline is a graph of steps. Root steps produce values, steps transform them, splitters broadcast them to
// several branches and sinks consume them. Every step runs in its own goroutine and values travel through
// unbuffered channels, so a step with a concurrency of one processes its input strictly in order and never
// starts the next element before the current one is done.
//
// The pipeline stops on the first error returned by any step. The error is wrapped with the name of the step
// that produced it and every other step is cancelled through the pipeline context.
//
// Options implementing model.PipelineOption are notified when steps are added and each time a value goes
// through a step. The measure and drawer packages use these hooks to time a run and render its graph.
package pipeline
