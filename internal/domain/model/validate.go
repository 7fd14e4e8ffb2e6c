package model

import (
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// Package-level validator instance shared by every record type.
var validate = validator.New()

// ValidateEvent rejects events without ids, without a field set, with
// negative weights or points, or with duplicate field ids.
func ValidateEvent(e Event) error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: event %q: %w", ErrInvalidRecord, e.ID, err)
	}
	switch f := e.Fields.(type) {
	case Judged:
		if err := validate.Struct(f); err != nil {
			return fmt.Errorf("%w: event %q: %w", ErrInvalidRecord, e.ID, err)
		}
	case Quiz:
		if err := validate.Struct(f); err != nil {
			return fmt.Errorf("%w: event %q: %w", ErrInvalidRecord, e.ID, err)
		}
	default:
		return fmt.Errorf("%w: event %q has no field set", ErrInvalidRecord, e.ID)
	}
	seen := make(map[string]struct{})
	for _, f := range e.ActiveFields() {
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("%w: event %q: duplicate field %q", ErrInvalidRecord, e.ID, f.ID)
		}
		seen[f.ID] = struct{}{}
	}
	return nil
}

// ValidateParticipant rejects participants without ids or event reference.
func ValidateParticipant(p Participant) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: participant %q: %w", ErrInvalidRecord, p.ID, err)
	}
	return nil
}

// ValidateScore rejects scores with missing references, negative amounts or
// amounts that are not finite.
func ValidateScore(s Score) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: score %q: %w", ErrInvalidRecord, s.ID, err)
	}
	if !isFinite(s.Total) || !isFinite(s.Deduction) {
		return fmt.Errorf("%w: score %q: total and deduction must be finite", ErrInvalidRecord, s.ID)
	}
	for k, v := range s.Entries {
		if !isFinite(v) {
			return fmt.Errorf("%w: score %q: entry %q is not finite", ErrInvalidRecord, s.ID, k)
		}
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// ValidateUser rejects profiles with an unknown role.
func ValidateUser(u User) error {
	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("%w: user %q: %w", ErrInvalidRecord, u.ID, err)
	}
	return nil
}

// ValidateSetting rejects settings without a key.
func ValidateSetting(s Setting) error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: setting: %w", ErrInvalidRecord, err)
	}
	return nil
}

// ValidateChange rejects change notifications with unknown kinds or malformed scores.
func ValidateChange(c ScoreChange) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: change %q: %w", ErrInvalidRecord, c.ID, err)
	}
	return nil
}
