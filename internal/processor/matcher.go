package processor

import (
	"sort"
	"strings"

	"resume-ats-go/internal/types"
)

// MatchSkills 把关键词集合划分为命中与缺失。
// 关键词与某个技能相等、是其子串或包含该技能时记为命中（双向包含，"Java" 会命中 "javascript"）。
func MatchSkills(skills []string, target types.KeywordTarget) types.MatchResult {
	lowered := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = strings.ToLower(s); s != "" {
			lowered = append(lowered, s)
		}
	}

	matching := make(map[string]struct{})
	missing := make(map[string]struct{})
	matchedCount := 0
	for keyword := range target {
		if containsEitherWay(keyword, lowered) {
			matchedCount++
			matching[Capitalize(keyword)] = struct{}{}
		} else {
			missing[Capitalize(keyword)] = struct{}{}
		}
	}

	result := types.MatchResult{
		Matching: sortedKeys(matching),
		Missing:  sortedKeys(missing),
	}
	if len(target) > 0 {
		result.Percent = float64(matchedCount) / float64(len(target)) * 100
	}
	return result
}

func containsEitherWay(keyword string, skills []string) bool {
	for _, s := range skills {
		if keyword == s || strings.Contains(s, keyword) || strings.Contains(keyword, s) {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
