package rules

import (
	"context"
	"math"

	"creche-backend/internal/models"
)

type Rating struct {
	Total            int         `json:"total"`
	Verified         int         `json:"verified"`
	Recommends       int         `json:"recommends"`
	RecommendPercent float64     `json:"recommend_percent"`
	Average          float64     `json:"average"`
	Distribution     map[int]int `json:"distribution"`
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ComputeRating aggregates reviews. Stars outside 1..5 are counted in the
// totals but not in the histogram.
func ComputeRating(reviews []models.Review) Rating {
	r := Rating{Distribution: make(map[int]int, models.MaxStars)}
	for s := models.MinStars; s <= models.MaxStars; s++ {
		r.Distribution[s] = 0
	}

	sum := 0
	for _, rv := range reviews {
		r.Total++
		sum += rv.Stars
		if rv.Verified {
			r.Verified++
		}
		if rv.Recommends {
			r.Recommends++
		}
		if _, ok := r.Distribution[rv.Stars]; ok {
			r.Distribution[rv.Stars]++
		}
	}

	if r.Total > 0 {
		r.Average = round1(float64(sum) / float64(r.Total))
		r.RecommendPercent = round1(float64(r.Recommends) * 100 / float64(r.Total))
	}
	return r
}

// DaycareRating recomputes the rating from the current review rows. It does
// not check that the daycare exists; an unknown id yields an empty rating.
func (e *Engine) DaycareRating(ctx context.Context, daycareID uint) (Rating, error) {
	reviews, err := e.store.ListReviewsByDaycare(ctx, daycareID, nil)
	if err != nil {
		return Rating{}, Internal(err)
	}
	return ComputeRating(reviews), nil
}
