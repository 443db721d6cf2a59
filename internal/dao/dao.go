package dao

import (
	"errors"
	"fmt"
	"strings"

	"vulx/internal/models"
	vxerrors "vulx/pkg/errors"

	"gorm.io/gorm"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// translate maps gorm's not-found sentinel onto the domain error.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return vxerrors.ErrNotFound
	}
	return err
}

func clampLimit(limit int) int {
	if limit < 1 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// severityOrder ranks findings CRITICAL first in SQL, built from the same
// rank table the models use.
var severityOrder = func() string {
	var b strings.Builder
	b.WriteString("CASE severity")
	for _, s := range models.Severities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", s, s.Rank())
	}
	fmt.Fprintf(&b, " ELSE %d END", len(models.Severities))
	return b.String()
}()
