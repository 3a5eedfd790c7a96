package perception

import (
	"sort"

	"kairo/internal/config"
	"kairo/internal/logging"
	"kairo/internal/types"
)

// Thresholds are the classifier's tunable cut-offs.
type Thresholds struct {
	ConfidenceBonus        int
	DominantThreshold      int
	MultiDomainThreshold   int
	MultiDomainGap         int
	SupportingThreshold    int
	ComprehensiveThreshold int
	ComprehensiveBoost     int
}

// ThresholdsFromConfig converts the classifier config section.
func ThresholdsFromConfig(c config.ClassifierConfig) Thresholds {
	return Thresholds{
		ConfidenceBonus:        c.ConfidenceBonus,
		DominantThreshold:      c.DominantThreshold,
		MultiDomainThreshold:   c.MultiDomainThreshold,
		MultiDomainGap:         c.MultiDomainGap,
		SupportingThreshold:    c.SupportingThreshold,
		ComprehensiveThreshold: c.ComprehensiveThreshold,
		ComprehensiveBoost:     c.ComprehensiveBoost,
	}
}

// DefaultThresholds returns the default cut-offs.
func DefaultThresholds() Thresholds {
	return ThresholdsFromConfig(config.DefaultConfig().Classifier)
}

// Classifier scores requests against the weight store's latest snapshot.
// It is safe for concurrent use.
type Classifier struct {
	store *WeightStore
	th    Thresholds
}

// NewClassifier creates a classifier over store.
func NewClassifier(store *WeightStore, th Thresholds) *Classifier {
	if store == nil {
		store = NewWeightStore(nil)
	}
	return &Classifier{store: store, th: th}
}

// Store returns the weight store the classifier reads.
func (c *Classifier) Store() *WeightStore {
	return c.store
}

// Classify scores req. It never fails: a request that matches nothing
// yields the first declared domain with confidence 0.
func (c *Classifier) Classify(req types.Request) types.ClassificationResult {
	snap := c.store.Snapshot()
	return classifyWith(snap.Table, c.th, req.Text)
}

// classifyWith is the pure scoring function over one table.
func classifyWith(table *RuleTable, th Thresholds, raw string) types.ClassificationResult {
	text := types.NormalizeText(raw)
	res := types.ClassificationResult{
		Text:   text,
		Scores: make(map[types.DomainID]int, len(types.CapabilityDomains)),
	}
	for _, d := range types.CapabilityDomains {
		res.Scores[d] = 0
	}

	// 1. strongest single signal per domain
	for _, p := range table.Patterns {
		if p.Weight > res.Scores[p.Domain] && p.Pattern.Match(text) {
			res.Scores[p.Domain] = types.ClampScore(p.Weight)
		}
	}

	// 2. disambiguation pairs
	for _, d := range table.Disambiguations {
		if res.Scores[d.Favored] == 0 || res.Scores[d.Penalized] == 0 {
			continue
		}
		if !allMatch(d.When, text) {
			continue
		}
		adjust(&res, types.AdjustDisambiguation, d.Name, d.Favored, d.Boost)
		adjust(&res, types.AdjustDisambiguation, d.Name, d.Penalized, -d.Penalty)
	}

	// 3. word combinations
	for _, wc := range table.Combinations {
		if wc.Phrase.Match(text) {
			adjust(&res, types.AdjustCombination, wc.Name, wc.Domain, wc.Delta)
		}
	}

	// 4. single dominant intent
	dominant := types.DomainID("")
	count := 0
	for _, d := range types.CapabilityDomains {
		if res.Scores[d] >= th.DominantThreshold {
			dominant = d
			count++
		}
	}
	if count == 1 && th.ConfidenceBonus > 0 {
		adjust(&res, types.AdjustConfidence, "single-dominant", dominant, th.ConfidenceBonus)
	}

	// 5. multi-domain detection, before any comprehensive boost
	res.NeedsMultipleDomains = closeContenders(res.Scores, th)
	for _, m := range table.ComprehensiveMarkers {
		if m.Match(text) {
			res.Comprehensive = true
			break
		}
	}
	lead := argMax(res.Scores)
	if res.NeedsMultipleDomains || res.Comprehensive {
		res.Supporting = supporting(res.Scores, lead, th.SupportingThreshold)
	}

	// 6. comprehensive override
	if res.Comprehensive {
		res.NeedsMultipleDomains = true
		for _, d := range types.CapabilityDomains {
			if res.Scores[d] >= th.ComprehensiveThreshold {
				adjust(&res, types.AdjustComprehensive, "comprehensive", d, th.ComprehensiveBoost)
			}
		}
	}

	// primary: arg-max, ties by declaration order
	res.Primary = argMax(res.Scores)
	res.Confidence = res.Scores[res.Primary]
	if res.Confidence == 0 {
		res.Adjustments = append(res.Adjustments, types.Adjustment{
			Kind:   types.AdjustDegenerate,
			Rule:   "no-match",
			Domain: res.Primary,
		})
	}
	// a boost clamped at 100 can hand the tie-break to a supporting domain
	for i, d := range res.Supporting {
		if d == res.Primary {
			res.Supporting[i] = lead
		}
	}

	logging.PerceptionDebug("Classified %q: primary=%s confidence=%d multi=%v supporting=%v",
		text, res.Primary, res.Confidence, res.NeedsMultipleDomains, res.Supporting)
	return res
}

// argMax returns the highest-scoring domain, ties by declaration order.
func argMax(scores map[types.DomainID]int) types.DomainID {
	best := types.CapabilityDomains[0]
	for _, d := range types.CapabilityDomains {
		if scores[d] > scores[best] {
			best = d
		}
	}
	return best
}

// closeContenders reports whether at least two domains qualify and some
// neighbouring pair of qualifying scores is within the gap. The top two
// are always a neighbouring pair.
func closeContenders(scores map[types.DomainID]int, th Thresholds) bool {
	var qualifying []int
	for _, d := range types.CapabilityDomains {
		if s := scores[d]; s >= th.MultiDomainThreshold {
			qualifying = append(qualifying, s)
		}
	}
	if len(qualifying) < 2 {
		return false
	}
	sort.Sort(sort.Reverse(sort.IntSlice(qualifying)))
	for i := 1; i < len(qualifying); i++ {
		if qualifying[i-1]-qualifying[i] <= th.MultiDomainGap {
			return true
		}
	}
	return false
}

func supporting(scores map[types.DomainID]int, primary types.DomainID, floor int) []types.DomainID {
	var out []types.DomainID
	for _, d := range types.CapabilityDomains {
		if d != primary && scores[d] >= floor {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return scores[out[i]] > scores[out[j]]
	})
	return out
}

// adjust applies delta to one domain score, clamped, and records the
// effective change.
func adjust(res *types.ClassificationResult, kind types.AdjustmentKind, rule string, d types.DomainID, delta int) {
	before := res.Scores[d]
	after := types.ClampScore(before + delta)
	res.Scores[d] = after
	res.Adjustments = append(res.Adjustments, types.Adjustment{
		Kind:   kind,
		Rule:   rule,
		Domain: d,
		Delta:  after - before,
	})
}

func allMatch(ms []types.Matcher, text string) bool {
	for _, m := range ms {
		if !m.Match(text) {
			return false
		}
	}
	return true
}
