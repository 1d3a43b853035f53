package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusPaid, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusPaid, StatusCompleted, true},
		{StatusPaid, StatusCancelled, true},
		{StatusPaid, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusPaid, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusPaid, false},
		{StatusPending, StatusPending, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTransitionEffect(t *testing.T) {
	assert.Equal(t, EffectCommit, TransitionEffect(StatusPending, StatusPaid))
	assert.Equal(t, EffectRelease, TransitionEffect(StatusPending, StatusCancelled))

	// Cancelling after payment restores nothing: the stock already left
	// the ledger at commit time.
	assert.Equal(t, EffectNone, TransitionEffect(StatusPaid, StatusCancelled))
	assert.Equal(t, EffectNone, TransitionEffect(StatusPaid, StatusCompleted))
}
