package processor

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode"

	"resume-ats-go/internal/types"

	"github.com/rs/zerolog"
)

const (
	// 低置信度拼写规则，上下文少于3个词时不计入错误
	lowConfidenceSpellingRule = "MORFOLOGIK_RULE_EN_US"
	defaultGrammarSampleChars = 2000

	feedbackContactIncomplete  = "Contact info incomplete."
	feedbackContactMissing     = "Missing contact info."
	feedbackGrammarUnavailable = "Grammar check unavailable."
)

var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bexperience\b`),
	regexp.MustCompile(`(?i)\beducation\b`),
	regexp.MustCompile(`(?i)\bskills\b`),
	regexp.MustCompile(`(?i)\bprojects\b`),
}

// Scorer 计算质量分并负责语法检查调用
type Scorer struct {
	grammar     GrammarChecker
	timeout     time.Duration
	sampleChars int
	logger      zerolog.Logger
}

// NewScorer 创建评分器
func NewScorer(grammar GrammarChecker, timeout time.Duration, sampleChars int, logger zerolog.Logger) *Scorer {
	if sampleChars <= 0 {
		sampleChars = defaultGrammarSampleChars
	}
	return &Scorer{grammar: grammar, timeout: timeout, sampleChars: sampleChars, logger: logger}
}

// QualityScore 结构、联系方式、技能数量与语法四项累加，再加10分基础分，上限100
func (s *Scorer) QualityScore(ctx context.Context, text string, contact types.ContactInfo, skills []string) (int, []string, types.QualitySignals) {
	signals := types.QualitySignals{
		SectionCount: CountSections(text),
		HasEmail:     contact.HasEmail(),
		HasPhone:     contact.HasPhone(),
		SkillCount:   len(skills),
	}
	feedback := []string{}

	score := signals.SectionCount * 10
	switch {
	case signals.HasEmail && signals.HasPhone:
		score += 10
	case signals.HasEmail || signals.HasPhone:
		score += 5
		feedback = append(feedback, feedbackContactIncomplete)
	default:
		feedback = append(feedback, feedbackContactMissing)
	}
	if signals.SkillCount >= 5 {
		score += 10
	}

	errCount, err := s.grammarErrors(ctx, text)
	if err != nil {
		s.logger.Warn().Err(err).Msg("语法检查失败，语法项不计分")
		feedback = append(feedback, feedbackGrammarUnavailable)
	} else {
		signals.GrammarChecked = true
		signals.GrammarErrorCount = errCount
		score += max(0, 20-errCount)
		if errCount > 0 {
			feedback = append(feedback, fmt.Sprintf("Found %d potential grammar issues.", errCount))
		}
	}

	return min(100, score+10), feedback, signals
}

func (s *Scorer) grammarErrors(ctx context.Context, text string) (int, error) {
	if s.grammar == nil {
		return 0, fmt.Errorf("grammar checker not configured")
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	issues, err := s.grammar.Check(ctx, CleanGrammarSample(text, s.sampleChars))
	if err != nil {
		return 0, err
	}
	return CountRealGrammarErrors(issues), nil
}

// CountSections 统计出现的章节关键词（整词、忽略大小写）
func CountSections(text string) int {
	n := 0
	for _, re := range sectionPatterns {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

// CleanGrammarSample 取前 limit 个字符，只保留字母数字、空白和 .,!?'"- ，并把连续空白压缩为一个空格
func CleanGrammarSample(text string, limit int) string {
	runes := []rune(text)
	if limit > 0 && len(runes) > limit {
		runes = runes[:limit]
	}

	var b strings.Builder
	b.Grow(len(runes))
	inSpace := false
	for _, r := range runes {
		switch {
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
		case r < unicode.MaxASCII && (isASCIIAlnum(byte(r)) || strings.ContainsRune(`.,!?'"-`, r)):
			b.WriteRune(r)
			inSpace = false
		}
	}
	return b.String()
}

// CountRealGrammarErrors 过滤掉上下文过短的低置信度拼写提示
func CountRealGrammarErrors(issues []types.GrammarIssue) int {
	n := 0
	for _, issue := range issues {
		if issue.RuleID == lowConfidenceSpellingRule && len(strings.Fields(issue.Context)) < 3 {
			continue
		}
		n++
	}
	return n
}

// RoleScore 技能匹配占 70%，质量分占 30%
func RoleScore(quality int, matchPct float64) int {
	return clampScore(math.RoundToEven(float64(quality)*0.3 + matchPct*0.7))
}

// JDScore 语义相似度 50%，JD关键词匹配 30%，质量分 20%，结果截断到 [0,100]
func JDScore(quality int, semantic, jdMatchPct float64) int {
	return clampScore(math.RoundToEven(semantic*0.5 + jdMatchPct*0.3 + float64(quality)*0.2))
}

func clampScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Max(0, math.Min(100, v)))
}

// CosineSimilarity 返回两个向量的余弦相似度；维度不同或零向量时返回0
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func isASCIIAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
