package pipeline

import (
	"fmt"
	"strings"

	"shortgen/internal/domain"
)

// Step is what a caller asks the pipeline to run.
type Step string

const (
	StepFull    Step = "full"
	StepScript  Step = "script"
	StepPrompts Step = "prompts"
	StepMedia   Step = "media"
)

// ParseStep accepts a step name case-insensitively. An empty name means full.
func ParseStep(raw string) (Step, error) {
	switch s := Step(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return StepFull, nil
	case StepFull, StepScript, StepPrompts, StepMedia:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown step %q", domain.ErrValidation, raw)
	}
}

// Stage is one unit of the pipeline.
type Stage string

const (
	StageScript  Stage = "script"
	StagePrompts Stage = "prompts"
	StageMedia   Stage = "media"
)

// Status is the short status while the stage runs.
func (s Stage) Status() domain.ShortStatus {
	switch s {
	case StageScript:
		return domain.ShortStatusScripting
	case StagePrompts:
		return domain.ShortStatusPrompting
	default:
		return domain.ShortStatusGenerating
	}
}

// Progress checkpoints.
const (
	progressScriptStart  = 10
	progressScriptDone   = 30
	progressPromptsStart = 35
	progressPromptsDone  = 50
	progressMediaStart   = 55
	progressMediaSpan    = 40
	progressComplete     = 100
)

// StartProgress is the progress written when the stage begins.
func (s Stage) StartProgress() int {
	switch s {
	case StageScript:
		return progressScriptStart
	case StagePrompts:
		return progressPromptsStart
	default:
		return progressMediaStart
	}
}

// Plan is the ordered list of stages a run will execute.
type Plan struct {
	Step   Step
	Stages []Stage
	// Scenes is the number of existing scenes, zero before the script stage.
	Scenes int
	// Prompted is the number of scenes that already carry an image prompt.
	Prompted int
}

// Has reports whether the plan runs stage.
func (p Plan) Has(stage Stage) bool {
	for _, s := range p.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

// PlanRun decides which stages step runs against the given scenes. A full
// run skips the script stage when scenes exist and the prompt stage when
// every scene is already prompted.
func PlanRun(step Step, scenes []domain.Scene) (Plan, error) {
	plan := Plan{Step: step, Scenes: len(scenes)}
	for _, sc := range scenes {
		if strings.TrimSpace(sc.ImagePrompt) != "" {
			plan.Prompted++
		}
	}
	switch step {
	case StepScript:
		if len(scenes) > 0 {
			return Plan{}, fmt.Errorf("%w: delete the existing scenes before writing a new script", domain.ErrScenesExist)
		}
		plan.Stages = []Stage{StageScript}
	case StepPrompts:
		if len(scenes) == 0 {
			return Plan{}, fmt.Errorf("%w: short has no scenes, run the script step first", domain.ErrValidation)
		}
		plan.Stages = []Stage{StagePrompts}
	case StepMedia:
		if plan.Prompted == 0 {
			return Plan{}, fmt.Errorf("%w: no scene has an image prompt, run the prompts step first", domain.ErrValidation)
		}
		plan.Stages = []Stage{StageMedia}
	case StepFull:
		if len(scenes) == 0 {
			plan.Stages = append(plan.Stages, StageScript)
		}
		if len(scenes) == 0 || plan.Prompted < len(scenes) {
			plan.Stages = append(plan.Stages, StagePrompts)
		}
		plan.Stages = append(plan.Stages, StageMedia)
	default:
		return Plan{}, fmt.Errorf("%w: unknown step %q", domain.ErrValidation, step)
	}
	return plan, nil
}
