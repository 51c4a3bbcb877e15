package config

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	lorikeeterrors "github.com/alexisbeaulieu97/lorikeet/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	systemSelectors = map[string]struct{}{
		SystemLoadAvg1m:    {},
		SystemLoadAvg5m:    {},
		SystemLoadAvg15m:   {},
		SystemMemAvailable: {},
		SystemMemFree:      {},
		SystemMemTotal:     {},
		SystemDiskFree:     {},
		SystemDiskTotal:    {},
	}
)

// validatorInstance configures and returns the shared validator instance used
// across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("system_selector", func(fl validator.FieldLevel) bool {
			_, ok := systemSelectors[fl.Field().String()]
			return ok
		})

		validateInst = v
	})

	return validateInst
}

// validateStep enforces the structural rules a decoded step must satisfy:
// exactly one probe, at most one expectation (enforced during decoding),
// exclusive HTTP payload kinds, and well-formed numeric fields.
func validateStep(step *Step) error {
	switch count := step.probeCount(); {
	case count == 0:
		return lorikeeterrors.NewValidationError(step.Name, "step declares no probe", nil)
	case count > 1:
		return lorikeeterrors.NewValidationError(step.Name, "step declares more than one probe", nil)
	}

	v := validatorInstance()
	if err := v.Struct(step); err != nil {
		return lorikeeterrors.NewValidationError(step.Name, validationMessage(err), err)
	}

	if step.Shell != nil {
		if err := v.Struct(step.Shell); err != nil {
			return lorikeeterrors.NewValidationError(step.Name, validationMessage(err), err)
		}
	}

	if step.HTTP != nil {
		if err := v.Struct(step.HTTP); err != nil {
			return lorikeeterrors.NewValidationError(step.Name, validationMessage(err), err)
		}
		if err := validateHTTPPayload(step.HTTP); err != nil {
			return lorikeeterrors.NewValidationError(step.Name, err.Error(), nil)
		}
	}

	if step.System != nil {
		if err := v.Struct(step.System); err != nil {
			return lorikeeterrors.NewValidationError(step.Name,
				fmt.Sprintf("unknown system selector %q", step.System.Selector), err)
		}
	}

	if step.StepRef != nil && *step.StepRef == "" {
		return lorikeeterrors.NewValidationError(step.Name, "step reference must name a step", nil)
	}

	return nil
}

// validateHTTPPayload rejects requests declaring more than one payload kind.
func validateHTTPPayload(probe *HTTPProbe) error {
	kinds := 0
	if len(probe.Form) > 0 {
		kinds++
	}
	if len(probe.Multipart) > 0 {
		kinds++
	}
	if probe.BodySet() {
		kinds++
	}
	if kinds > 1 {
		return fmt.Errorf("form, multipart, and body are mutually exclusive")
	}
	return nil
}

func validationMessage(err error) string {
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		first := errs[0]
		return fmt.Sprintf("field %s failed %s validation", first.Field(), first.Tag())
	}
	return err.Error()
}
