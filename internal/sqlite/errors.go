package sqlite

import (
	"fmt"
	"strings"

	"github.com/rpggio/inboxtriage/internal/repository"
)

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "CHECK constraint failed")
}

// corrupt wraps a decode failure of a stored row.
func corrupt(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", repository.ErrCorrupt, what, err)
}
