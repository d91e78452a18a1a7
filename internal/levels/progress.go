package levels

import (
	"maps"
	"math"
	"slices"

	"github.com/meltforce/repcoach/internal/models"
)

// NewProgress returns the starting position for userID: only the first level
// unlocked and nothing scored.
func (c Catalogue) NewProgress(userID int) models.UserProgress {
	first := c.First()
	return models.UserProgress{
		UserID:         userID,
		CurrentLevel:   first,
		UnlockedLevels: []int{first},
		Scores:         map[int]int{},
	}
}

// Record folds a finished attempt into p and returns the updated progress.
// The best score per level is kept; passing unlocks the next level and makes
// it current the first time it is unlocked. Surrendered attempts change
// nothing.
func (c Catalogue) Record(p models.UserProgress, levelID int, o Outcome) models.UserProgress {
	if o.Surrendered {
		return p
	}
	level, ok := c.Find(levelID)
	if !ok {
		return p
	}

	p = c.normalize(p)
	if prev, ok := p.Scores[levelID]; !ok || o.Score > prev {
		p.Scores[levelID] = o.Score
	}
	p.TotalXP += o.XP

	if o.Score >= level.RequiredScore {
		if next := c.Next(levelID); next != 0 && !slices.Contains(p.UnlockedLevels, next) {
			p.UnlockedLevels = append(p.UnlockedLevels, next)
			p.CurrentLevel = next
		}
	}
	return p
}

// Unlocked reports whether levelID may be attempted.
func (c Catalogue) Unlocked(p models.UserProgress, levelID int) bool {
	return levelID == c.First() || slices.Contains(p.UnlockedLevels, levelID)
}

// Summarize aggregates the best scores of every attempted level.
func (c Catalogue) Summarize(p models.UserProgress) models.ProgressSummary {
	s := models.ProgressSummary{TotalLevels: len(c), TotalXP: p.TotalXP}
	for _, score := range p.Scores {
		s.Total += score
		s.CompletedLevels++
	}
	if s.CompletedLevels > 0 {
		s.Average = int(math.Round(float64(s.Total) / float64(s.CompletedLevels)))
	}
	return s
}

// Report bundles p with its summary.
func (c Catalogue) Report(p models.UserProgress) models.ProgressReport {
	p = c.normalize(p)
	return models.ProgressReport{UserProgress: p, Summary: c.Summarize(p)}
}

// normalize fills in the defaults a freshly loaded or zero progress lacks.
func (c Catalogue) normalize(p models.UserProgress) models.UserProgress {
	p.Scores = maps.Clone(p.Scores)
	if p.Scores == nil {
		p.Scores = map[int]int{}
	}
	p.UnlockedLevels = slices.Clone(p.UnlockedLevels)
	if first := c.First(); first != 0 && !slices.Contains(p.UnlockedLevels, first) {
		p.UnlockedLevels = append([]int{first}, p.UnlockedLevels...)
	}
	if p.CurrentLevel == 0 {
		p.CurrentLevel = c.First()
	}
	return p
}
