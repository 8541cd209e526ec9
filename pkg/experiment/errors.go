package experiment

import (
	"errors"
	"fmt"
)

// ErrContextPipeline marks an unrecovered failure within one context's
// pipeline. It is attached to that context's record as a failure sentinel and
// never propagates to other contexts.
var ErrContextPipeline = errors.New("context pipeline failure")

// pipelineErr wraps a stage failure so both ErrContextPipeline and the
// underlying cause (e.g. llm.ErrBackendUnavailable) remain matchable with
// errors.Is.
func pipelineErr(stage string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrContextPipeline, stage, err)
}
