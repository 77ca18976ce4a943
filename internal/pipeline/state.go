package pipeline

import "fmt"

// State is the coarse position of a job in the pipeline.
type State int

const (
	StateInitializing State = iota
	StateCloning
	StateCompiling
	StateUploading
	StateCompleted
	// StateAborted is terminal for fatal errors while cloning.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateCloning:
		return "cloning"
	case StateCompiling:
		return "compiling"
	case StateUploading:
		return "uploading"
	case StateCompleted:
		return "completed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome subtypes StateCompleted.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeBuildFailed
	OutcomeUploadFailed
	OutcomeBothFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeBuildFailed:
		return "build-failed"
	case OutcomeUploadFailed:
		return "upload-failed"
	case OutcomeBothFailed:
		return "both-failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

func outcomeOf(buildFailed, uploadFailed bool) Outcome {
	switch {
	case buildFailed && uploadFailed:
		return OutcomeBothFailed
	case buildFailed:
		return OutcomeBuildFailed
	case uploadFailed:
		return OutcomeUploadFailed
	default:
		return OutcomeSuccess
	}
}

// Progress is the structured status of a job.
type Progress struct {
	State   State
	Outcome Outcome // only meaningful in StateCompleted

	// File is the document being compiled or uploaded; empty while the
	// remote folder is prepared.
	File      string
	FileIndex int // zero-based
	FileTotal int

	Step      string
	StepIndex int // zero-based
	StepTotal int
}

// String renders the human-readable status reported to callers.
func (p Progress) String() string {
	switch p.State {
	case StateCompiling:
		if p.File == "" {
			return "compiling"
		}
		s := fmt.Sprintf("compiling %s (file %d/%d", p.File, p.FileIndex+1, p.FileTotal)
		if p.Step != "" {
			s += fmt.Sprintf(", step %d/%d: %s", p.StepIndex+1, p.StepTotal, p.Step)
		}
		return s + ")"
	case StateUploading:
		if p.File == "" {
			return "uploading (preparing remote folder)"
		}
		return fmt.Sprintf("uploading %s (file %d/%d)", p.File, p.FileIndex+1, p.FileTotal)
	case StateCompleted:
		switch p.Outcome {
		case OutcomeBuildFailed:
			return "completed with build errors"
		case OutcomeUploadFailed:
			return "completed with upload errors"
		case OutcomeBothFailed:
			return "completed with build and upload errors"
		default:
			return "completed"
		}
	default:
		return p.State.String()
	}
}
