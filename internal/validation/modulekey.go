// modulekey.go validates module catalog keys. Keys are stable machine
// identifiers (vacation_planning, task_management, ...) referenced from
// config, grants, and frontend routes, so the format is deliberately strict.
package validation

import (
	"fmt"
	"regexp"
)

const maxModuleKeyLength = 64

var moduleKeyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateModuleKey validates a module catalog key: lowercase snake_case,
// starting with a letter, at most 64 characters.
func ValidateModuleKey(key string) error {
	if key == "" {
		return fmt.Errorf("module key cannot be empty")
	}
	if len(key) > maxModuleKeyLength {
		return fmt.Errorf("module key exceeds %d characters", maxModuleKeyLength)
	}
	if !moduleKeyPattern.MatchString(key) {
		return fmt.Errorf("invalid module key %q: must be lowercase snake_case starting with a letter", key)
	}
	return nil
}
