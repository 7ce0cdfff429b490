package matching

import (
	"sort"

	"github.com/senyabanana/organ-match-service/internal/models"
)

// Strategy распределяет доноров пула по запросам.
type Strategy interface {
	RunPass(pool *Pool) []models.MatchProposal
}

// GreedyScheduler - жадный однопроходный подбор по приоритету запросов.
// Срочные и дольше ожидающие запросы выбирают донора первыми.
type GreedyScheduler struct {
	evaluator *Evaluator
}

// NewGreedyScheduler создает новый экземпляр GreedyScheduler.
func NewGreedyScheduler(evaluator *Evaluator) *GreedyScheduler {
	return &GreedyScheduler{evaluator: evaluator}
}

type candidate struct {
	donorID string
	score   float64
}

// RunPass возвращает не больше одного предложения на запрос и на донора.
func (s *GreedyScheduler) RunPass(pool *Pool) []models.MatchProposal {
	if pool == nil || len(pool.OpenRequests) == 0 || len(pool.FreeDonors) == 0 {
		return nil
	}

	// матрица допустимых пар считается целиком до распределения
	eligible := make(map[string][]candidate, len(pool.OpenRequests))
	for _, r := range pool.OpenRequests {
		for _, d := range pool.FreeDonors {
			v := s.evaluator.Evaluate(d, r)
			if !v.Eligible {
				continue
			}
			eligible[r.ID] = append(eligible[r.ID], candidate{donorID: d.ID, score: v.Score})
		}
	}

	requests := make([]models.Request, len(pool.OpenRequests))
	copy(requests, pool.OpenRequests)
	SortByPriority(requests)

	claimed := make(map[string]bool, len(pool.FreeDonors))
	var proposals []models.MatchProposal
	for _, r := range requests {
		best, ok := pickBest(eligible[r.ID], claimed)
		if !ok {
			continue
		}
		claimed[best.donorID] = true
		proposals = append(proposals, models.MatchProposal{
			DonorID:   best.donorID,
			RequestID: r.ID,
			Score:     best.score,
		})
	}
	return proposals
}

// SortByPriority упорядочивает запросы: срочность по убыванию, затем время создания, затем id.
func SortByPriority(requests []models.Request) {
	sort.SliceStable(requests, func(i, j int) bool {
		a, b := requests[i], requests[j]
		if a.UrgencyLevel.Rank() != b.UrgencyLevel.Rank() {
			return a.UrgencyLevel.Rank() > b.UrgencyLevel.Rank()
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func pickBest(candidates []candidate, claimed map[string]bool) (candidate, bool) {
	var best candidate
	found := false
	for _, c := range candidates {
		if claimed[c.donorID] {
			continue
		}
		if !found || c.score > best.score || (c.score == best.score && c.donorID < best.donorID) {
			best = c
			found = true
		}
	}
	return best, found
}
