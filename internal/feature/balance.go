package feature

import (
	"math/rand/v2"

	"github.com/sells-group/collision-cli/internal/model"
)

// DefaultSeed is the sampling seed used when none is configured.
const DefaultSeed = 42

// Downsample reduces the majority category to the combined size of every other
// category, sampling without replacement with a seeded generator. The result lists
// the sampled majority records first, then all other records in input order.
// The input slice is not modified.
func Downsample(records []model.Collision, majority model.SeverityCategory, seed uint64) []model.Collision {
	var major, rest []model.Collision
	for _, r := range records {
		if r.SeverityCategory == majority {
			major = append(major, r)
		} else {
			rest = append(rest, r)
		}
	}

	n := len(rest)
	if n > len(major) {
		n = len(major)
	}

	rng := rand.New(rand.NewPCG(seed, seed))
	idx := rng.Perm(len(major))[:n]

	out := make([]model.Collision, 0, n+len(rest))
	for _, i := range idx {
		out = append(out, major[i])
	}
	return append(out, rest...)
}

// CategoryCounts counts records per severity category.
func CategoryCounts(records []model.Collision) map[model.SeverityCategory]int {
	counts := make(map[model.SeverityCategory]int, 3)
	for i := range records {
		counts[records[i].SeverityCategory]++
	}
	return counts
}
