// Package model holds the types shared by the step engine and its options:
// step descriptors, the well-known start and end steps, and the hook interface
// a pipeline option implements to observe a run.
package model
