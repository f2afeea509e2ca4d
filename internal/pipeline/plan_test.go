package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"shortgen/internal/domain"
)

func TestParseStep(t *testing.T) {
	t.Parallel()
	cases := map[string]Step{"": StepFull, "FULL": StepFull, " media ": StepMedia, "prompts": StepPrompts}
	for in, want := range cases {
		got, err := ParseStep(in)
		if err != nil || got != want {
			t.Fatalf("ParseStep(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseStep("render"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ParseStep(render) error = %v", err)
	}
}

func TestPlanRun(t *testing.T) {
	t.Parallel()
	unprompted := []domain.Scene{{Order: 0}, {Order: 1, ImagePrompt: "p"}}
	prompted := []domain.Scene{{Order: 0, ImagePrompt: "p"}, {Order: 1, ImagePrompt: "p"}}

	cases := []struct {
		name    string
		step    Step
		scenes  []domain.Scene
		want    []Stage
		wantErr error
	}{
		{name: "full fresh", step: StepFull, want: []Stage{StageScript, StagePrompts, StageMedia}},
		{name: "full partially prompted", step: StepFull, scenes: unprompted, want: []Stage{StagePrompts, StageMedia}},
		{name: "full prompted", step: StepFull, scenes: prompted, want: []Stage{StageMedia}},
		{name: "script fresh", step: StepScript, want: []Stage{StageScript}},
		{name: "script with scenes", step: StepScript, scenes: prompted, wantErr: domain.ErrScenesExist},
		{name: "prompts without scenes", step: StepPrompts, wantErr: domain.ErrValidation},
		{name: "media without prompts", step: StepMedia, scenes: []domain.Scene{{Order: 0}}, wantErr: domain.ErrValidation},
		{name: "media", step: StepMedia, scenes: unprompted, want: []Stage{StageMedia}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, err := PlanRun(tc.step, tc.scenes)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("PlanRun returned error: %v", err)
			}
			if !reflect.DeepEqual(plan.Stages, tc.want) {
				t.Fatalf("stages = %v, want %v", plan.Stages, tc.want)
			}
		})
	}
}

func TestStageCheckpoints(t *testing.T) {
	t.Parallel()
	if StageScript.Status() != domain.ShortStatusScripting || StageScript.StartProgress() != 10 {
		t.Fatal("script checkpoint")
	}
	if StagePrompts.Status() != domain.ShortStatusPrompting || StagePrompts.StartProgress() != 35 {
		t.Fatal("prompts checkpoint")
	}
	if StageMedia.Status() != domain.ShortStatusGenerating || StageMedia.StartProgress() != 55 {
		t.Fatal("media checkpoint")
	}
}
