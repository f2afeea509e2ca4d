package pipeline

import (
	"fmt"

	"shortgen/internal/domain"
)

// StageError reports that a stage failed and the short was marked FAILED.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ScenesFailedError reports that the media stage finished with failed scenes.
type ScenesFailedError struct {
	Failed int
	Total  int
}

func (e *ScenesFailedError) Error() string {
	return scenesFailedMessage(e.Failed)
}

func (e *ScenesFailedError) Unwrap() error {
	return domain.ErrProviderFailure
}

func scenesFailedMessage(n int) string {
	return fmt.Sprintf("%d scene(s) failed", n)
}
