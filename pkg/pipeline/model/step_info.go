package model

// StepType tells which engine primitive produced a step.
type StepType string

const (
	RootStepType     StepType = "root"
	NormalStepType   StepType = "step"
	SplitterStepType StepType = "splitter"
	SinkStepType     StepType = "sink"
	MergerStepType   StepType = "merger"
)

// StepInfo describes a step independently of the type flowing through it.
type StepInfo struct {
	Type       StepType
	Name       string
	Concurrent int
	BufferSize int
}

var (
	StartStep = &Step[any]{Details: &StepInfo{Name: "start"}}
	EndStep   = &Step[any]{Details: &StepInfo{Name: "end"}}
)

// Step is the output side of a step. Downstream steps read from Output until it
// is closed.
type Step[O any] struct {
	Output  chan O
	Details *StepInfo
}

// Name returns the step name, or an empty string for an anonymous step.
func (s *Step[O]) Name() string {
	if s == nil || s.Details == nil {
		return ""
	}

	return s.Details.Name
}
