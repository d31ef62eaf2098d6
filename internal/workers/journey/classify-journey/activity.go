package classifyjourney

import (
	"encoding/json"
	"fmt"
	"strings"

	"journey-board/internal/common/errors"
	"journey-board/internal/common/validation"
	"journey-board/pkg/registry"
)

// Activity describes the job contract for process modelers.
func Activity(cfg *Config) registry.Activity {
	if cfg == nil {
		cfg = LoadConfig(nil)
	}

	var inputSchema map[string]interface{}
	_ = json.Unmarshal([]byte(validation.JourneyJobInputSchema), &inputSchema)

	return registry.Activity{
		ID:           TaskType,
		DisplayName:  "Classify Journey",
		Description:  "Classifies a CRM deal and its contact into a customer journey stage, substage and score",
		TaskType:     TaskType,
		Version:      "1.0.0",
		InputSchema:  inputSchema,
		OutputFields: []string{"journey", "journeyStage", "journeySubstage", "journeyScore"},
		ErrorCodes: []string{
			errors.BPMNErrorMapping[errors.ErrCodeMissingInput],
			errors.BPMNErrorMapping[errors.ErrCodeValidationFailed],
			errors.BPMNErrorMapping[errors.ErrCodeRecordNotFound],
			errors.BPMNErrorMapping[errors.ErrCodeInternal],
		},
		Timeout: cfg.Timeout.String(),
		Retries: errors.GetRetryCount(errors.ErrCodeUpstreamFailure),
	}
}

// CheckRegistration verifies that the deployed registry describes this worker the way Activity
// does: same version and output fields, and every BPMN error code the worker can throw.
func CheckRegistration(reg *registry.ActivityRegistry, cfg *Config) error {
	want := Activity(cfg)
	got, ok := reg.Find(TaskType)
	if !ok {
		return fmt.Errorf("activity registry has no entry for task type %q", TaskType)
	}

	if got.Version != want.Version {
		return fmt.Errorf("activity %q: registry version %q, worker version %q", TaskType, got.Version, want.Version)
	}
	if strings.Join(got.OutputFields, ",") != strings.Join(want.OutputFields, ",") {
		return fmt.Errorf("activity %q: registry output fields %v, worker output fields %v", TaskType, got.OutputFields, want.OutputFields)
	}

	declared := make(map[string]struct{}, len(got.ErrorCodes))
	for _, code := range got.ErrorCodes {
		declared[code] = struct{}{}
	}
	var missing []string
	for _, code := range want.ErrorCodes {
		if _, ok := declared[code]; !ok {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("activity %q: registry is missing error codes %s", TaskType, strings.Join(missing, ", "))
	}
	return nil
}
