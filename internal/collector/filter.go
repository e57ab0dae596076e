package collector

import (
	"regexp"
	"strings"

	"github.com/marketwatch/anomaly-engine/internal/model"
)

// FilterConfig controls DiscoveryFilter's accept/reject decision (spec §10,
// ported from the teacher's strategy.GammaSelector score-and-filter pass,
// generalized from "pick top N" to "accept/reject for tracking").
type FilterConfig struct {
	MinLiquidity    float64
	MinVolume24hr   float64
	CategoryAllow   []string // empty allows every category
	TagDeny         []string
	QuestionDeny    []string // word-boundary matched against the market question, case-insensitive
}

// DiscoveryFilter builds a MarketPredicate from FilterConfig. Every
// threshold defaults to "no floor" when zero, and every list defaults to
// "no restriction" when empty, so a zero-value FilterConfig accepts
// everything (matching Config.Predicate's default).
func DiscoveryFilter(cfg FilterConfig) MarketPredicate {
	allow := toLowerSet(cfg.CategoryAllow)
	deny := toLowerSet(cfg.TagDeny)
	questionRes := make([]*regexp.Regexp, 0, len(cfg.QuestionDeny))
	for _, word := range cfg.QuestionDeny {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		questionRes = append(questionRes, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}

	return func(m model.Market) bool {
		if cfg.MinLiquidity > 0 && m.Liquidity < cfg.MinLiquidity {
			return false
		}
		if cfg.MinVolume24hr > 0 && m.Volume < cfg.MinVolume24hr {
			return false
		}
		if len(allow) > 0 && !allow[strings.ToLower(m.Category)] {
			return false
		}
		for _, tag := range m.Tags {
			if deny[strings.ToLower(tag)] {
				return false
			}
		}
		for _, re := range questionRes {
			if re.MatchString(m.Question) {
				return false
			}
		}
		return true
	}
}

func toLowerSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, it := range items {
		set[strings.ToLower(strings.TrimSpace(it))] = true
	}
	return set
}
