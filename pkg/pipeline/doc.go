// Package pipeline is the channel based step engine the scene processing runs on.
//
// A pipeline is assembled from a root step, which produces entries, followed by
// steps that transform them (one to one or one to many), splitters that copy every
// entry to several branches, mergers that join branches back together and sinks
// that consume the final entries. Every step runs in its own goroutines and talks
// to its neighbours through channels, so independent entries are processed
// concurrently and a step can be given several workers with StepConcurrency.
//
// Nothing runs until Run is called. The first error returned by any step cancels
// the whole pipeline and is returned by Run, wrapped with the name of the step
// that failed.
//
// Options implementing model.PipelineOption observe the construction and the
// execution of the pipeline; the measure and drawer packages use this to record
// step timings and render the step graph.
package pipeline
