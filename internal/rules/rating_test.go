package rules

import (
	"testing"

	"creche-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestComputeRating_Empty(t *testing.T) {
	r := ComputeRating(nil)
	assert.Zero(t, r.Total)
	assert.Zero(t, r.Average)
	assert.Zero(t, r.RecommendPercent)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 0, 5: 0}, r.Distribution)
}

func TestComputeRating(t *testing.T) {
	reviews := []models.Review{
		{Stars: 5, Recommends: true, Verified: true},
		{Stars: 4, Recommends: true, Verified: false},
		{Stars: 4, Recommends: false, Verified: true},
	}
	r := ComputeRating(reviews)

	assert.Equal(t, 3, r.Total)
	assert.Equal(t, 2, r.Verified)
	assert.Equal(t, 2, r.Recommends)
	assert.Equal(t, 4.3, r.Average)
	assert.Equal(t, 66.7, r.RecommendPercent)
	assert.Equal(t, map[int]int{1: 0, 2: 0, 3: 0, 4: 2, 5: 1}, r.Distribution)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindConflict, KindOf(Conflict("x")))
	assert.Equal(t, KindInternal, KindOf(assert.AnError))
	assert.Equal(t, KindInternal, KindOf(Internal(assert.AnError)))
	assert.ErrorIs(t, Internal(assert.AnError), assert.AnError)
}
