package processor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"resume-ats-go/internal/types"

	"github.com/rs/zerolog"
)

// SkillExtractor 通过实体识别从文本中提取技能集合
type SkillExtractor struct {
	recognizer EntityRecognizer
	logger     zerolog.Logger
}

// NewSkillExtractor 创建技能提取器
func NewSkillExtractor(recognizer EntityRecognizer, logger zerolog.Logger) *SkillExtractor {
	return &SkillExtractor{recognizer: recognizer, logger: logger}
}

// Extract 返回排序后的技能列表；识别失败时返回空列表
func (s *SkillExtractor) Extract(ctx context.Context, text string) (skills []string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("panic", fmt.Sprint(r)).Msg("技能提取异常")
			skills = []string{}
		}
	}()

	if s.recognizer == nil {
		return []string{}
	}
	ents, err := s.recognizer.ExtractEntities(ctx, text)
	if err != nil {
		s.logger.Warn().Err(err).Msg("实体识别失败，技能集合为空")
		return []string{}
	}
	return SkillsFromEntities(ents)
}

// SkillsFromEntities 优先取 SKILL 实体；没有时退回到少于4个词的 ORG/PRODUCT/LANGUAGE 实体
func SkillsFromEntities(ents []types.Entity) []string {
	var raw []string
	for _, e := range ents {
		if e.Label == types.LabelSkill {
			raw = append(raw, strings.TrimSpace(e.Text))
		}
	}
	if len(raw) == 0 {
		for _, e := range ents {
			switch e.Label {
			case types.LabelOrg, types.LabelProduct, types.LabelLanguage:
				if len(strings.Fields(e.Text)) < 4 {
					raw = append(raw, strings.TrimSpace(e.Text))
				}
			}
		}
	}
	return normalizeSkills(raw)
}

// normalizeSkills 首字母大写、按小写去重并排序
func normalizeSkills(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			continue
		}
		c := Capitalize(s)
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Capitalize 首字母大写，其余字母小写
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return strings.ToLower(s)
	}
	return string(unicode.ToTitle(r)) + strings.ToLower(s[size:])
}
