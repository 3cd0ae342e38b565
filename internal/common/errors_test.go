package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinels_MatchThroughWrapping(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("%w: put trip: %w", ErrStorageFailure, cause)

	assert.ErrorIs(t, err, ErrStorageFailure)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrorNotFound)
}

func TestSentinels_Distinct(t *testing.T) {
	all := []error{ErrorNotFound, ErrStorageFailure, ErrVersionConflict, ErrValidation}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.NotErrorIs(t, a, b)
			}
		}
	}
}
