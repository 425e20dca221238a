package domain

import (
	"errors"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// actorIDPattern matches lowercase kebab-case identifiers such as "power-user" or "billing_api".
var actorIDPattern = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

var (
	validatorOnce sync.Once
	inputRules    *validator.Validate
)

// rules returns the shared struct validator with the domain-specific tags registered.
func rules() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		_ = v.RegisterValidation("kebab", func(fl validator.FieldLevel) bool {
			return actorIDPattern.MatchString(fl.Field().String())
		})
		inputRules = v
	})
	return inputRules
}

// ValidActorID reports whether id is an acceptable actor identifier.
func ValidActorID(id string) bool {
	return actorIDPattern.MatchString(id)
}

// checkInput validates a tagged input struct and maps the first failing top-level field to a domain error.
func checkInput(in any, fieldErrs map[string]error) error {
	err := rules().Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	field := topLevelField(verrs[0].StructNamespace())
	if mapped, ok := fieldErrs[field]; ok {
		return mapped
	}
	return err
}

// topLevelField turns "ScenarioInput.Steps[0].Description" into "Steps".
func topLevelField(namespace string) string {
	_, rest, found := strings.Cut(namespace, ".")
	if !found {
		rest = namespace
	}
	if idx := strings.IndexAny(rest, ".["); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

// trimAll trims every entry of a string list, keeping order and empties so validation can reject them.
func trimAll(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
