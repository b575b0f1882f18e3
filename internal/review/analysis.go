package review

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/store"
)

// Distribution counts active items per priority level.
type Distribution struct {
	Critical int
	High     int
	Medium   int
	Low      int
}

func (d *Distribution) add(score int) {
	switch LevelOf(score) {
	case LevelCritical:
		d.Critical++
	case LevelHigh:
		d.High++
	case LevelMedium:
		d.Medium++
	default:
		d.Low++
	}
}

// CategoryBreakdown summarizes the review items of one category.
type CategoryBreakdown struct {
	Category        answer.Category
	Total           int
	NeedsReview     int
	PriorityReview  int
	AveragePriority float64
}

// Statistics summarizes the review queue.
type Statistics struct {
	TotalItems     int
	NeedsReview    int
	PriorityReview int
	Mastered       int
	Distribution   Distribution
	ByCategory     []CategoryBreakdown // in answer.Categories order, empty categories included
}

// Category returns the breakdown for c.
func (st *Statistics) Category(c answer.Category) CategoryBreakdown {
	for _, b := range st.ByCategory {
		if b.Category == c {
			return b
		}
	}
	return CategoryBreakdown{Category: c}
}

// Statistics computes review queue totals.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	items, err := s.items.List(ctx, store.ReviewFilter{})
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}

	st := &Statistics{}
	sums := make(map[answer.Category]int)
	byCat := make(map[answer.Category]*CategoryBreakdown)
	for _, c := range answer.Categories {
		byCat[c] = &CategoryBreakdown{Category: c}
	}

	for _, it := range items {
		st.TotalItems++
		switch it.Status {
		case store.StatusNeedsReview:
			st.NeedsReview++
		case store.StatusPriorityReview:
			st.PriorityReview++
		case store.StatusMastered:
			st.Mastered++
			continue
		}
		st.Distribution.add(it.PriorityScore)

		b, ok := byCat[it.Category]
		if !ok {
			b = &CategoryBreakdown{Category: it.Category}
			byCat[it.Category] = b
		}
		b.Total++
		if it.Status == store.StatusPriorityReview {
			b.PriorityReview++
		} else {
			b.NeedsReview++
		}
		sums[it.Category] += it.PriorityScore
	}

	for _, c := range answer.Categories {
		st.ByCategory = append(st.ByCategory, *byCat[c])
		delete(byCat, c)
	}
	// Rows with a category outside the known set still get reported.
	extra := make([]answer.Category, 0, len(byCat))
	for c := range byCat {
		extra = append(extra, c)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, c := range extra {
		st.ByCategory = append(st.ByCategory, *byCat[c])
	}

	for i := range st.ByCategory {
		b := &st.ByCategory[i]
		if b.Total > 0 {
			b.AveragePriority = float64(sums[b.Category]) / float64(b.Total)
		}
	}
	return st, nil
}

// Recommendation is the suggested study intensity for a category.
type Recommendation string

const (
	RecommendNone      Recommendation = "none"
	RecommendIntensive Recommendation = "intensive"
	RecommendRegular   Recommendation = "regular"
	RecommendLight     Recommendation = "light"
)

// WeakArea is the review load of one category.
type WeakArea struct {
	Category        answer.Category
	ReviewCount     int
	AveragePriority int
	Recommendation  Recommendation
}

func recommend(count, avg int) Recommendation {
	switch {
	case count == 0:
		return RecommendNone
	case avg >= 70:
		return RecommendIntensive
	case avg >= 50:
		return RecommendRegular
	default:
		return RecommendLight
	}
}

// AnalyzeWeakAreas ranks categories by average review priority, highest
// first. Ties keep exam order.
func (s *Service) AnalyzeWeakAreas(ctx context.Context) ([]WeakArea, error) {
	st, err := s.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	areas := make([]WeakArea, 0, len(st.ByCategory))
	for _, b := range st.ByCategory {
		avg := int(math.Round(b.AveragePriority))
		areas = append(areas, WeakArea{
			Category:        b.Category,
			ReviewCount:     b.Total,
			AveragePriority: avg,
			Recommendation:  recommend(b.Total, avg),
		})
	}
	sort.SliceStable(areas, func(i, j int) bool {
		return areas[i].AveragePriority > areas[j].AveragePriority
	})
	return areas, nil
}
