package blend

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// InvalidMixError rejects a mix before anything is computed from it.
type InvalidMixError struct {
	Reason string
	SeedID string
}

func (e *InvalidMixError) Error() string {
	if e.SeedID != "" {
		return fmt.Sprintf("invalid mix: %s (seed %q)", e.Reason, e.SeedID)
	}
	return "invalid mix: " + e.Reason
}

// ConflictUnresolvedError rejects an override that would relax a safety prohibition.
type ConflictUnresolvedError struct {
	Prohibitions []string
}

func (e *ConflictUnresolvedError) Error() string {
	return fmt.Sprintf("override conflicts with safety prohibitions: %s", strings.Join(e.Prohibitions, "; "))
}

func IsInvalidMix(err error) bool {
	var target *InvalidMixError
	return errors.As(err, &target)
}

func IsConflictUnresolved(err error) bool {
	var target *ConflictUnresolvedError
	return errors.As(err, &target)
}
