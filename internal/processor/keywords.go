package processor

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"resume-ats-go/internal/types"

	"github.com/rs/zerolog"
)

const rolePromptTemplate = "List top 20 technical skills and keywords for a '%s' resume. " +
	"Return ONLY comma-separated words. Do not include the job title itself."

var roleKeywordSeparators = regexp.MustCompile(`[,\n\r•*-]+`)

// fallbackRoleSkills 生成式服务不可用时使用的岗位关键词表
var fallbackRoleSkills = map[string][]string{
	"Software Engineer":         {"Python", "Java", "C++", "SQL", "Git", "Data Structures", "Algorithms", "System Design"},
	"Frontend Developer":        {"HTML", "CSS", "JavaScript", "React", "Angular", "Vue", "TypeScript", "Redux", "Responsive Design"},
	"Backend Developer":         {"Node.js", "Python", "Java", "Django", "Flask", "Spring Boot", "SQL", "NoSQL", "API Design"},
	"Full Stack Developer":      {"HTML", "CSS", "JavaScript", "React", "Node.js", "Python", "SQL", "MongoDB", "Git", "AWS"},
	"Data Scientist":            {"Python", "R", "SQL", "Machine Learning", "Pandas", "NumPy", "Scikit-learn", "TensorFlow", "Data Visualization"},
	"Machine Learning Engineer": {"Python", "TensorFlow", "PyTorch", "Deep Learning", "NLP", "Computer Vision", "MLOps", "SQL"},
	"DevOps Engineer":           {"Linux", "AWS", "Azure", "Docker", "Kubernetes", "Jenkins", "Terraform", "CI/CD", "Bash Scripting"},
	"Project Manager":           {"Agile", "Scrum", "JIRA", "Communication", "Risk Management", "Leadership", "Planning", "Stakeholder Management"},
	"UI/UX Designer":            {"Figma", "Adobe XD", "Sketch", "Prototyping", "User Research", "Wireframing", "Usability Testing", "Visual Design"},
	"QA Engineer":               {"Selenium", "Java", "Python", "Test Automation", "Manual Testing", "JIRA", "SQL", "API Testing"},
	"Business Analyst":          {"SQL", "Excel", "Tableau", "Power BI", "Data Analysis", "Requirements Gathering", "Communication", "Documentation"},
}

// 未知岗位的默认关键词
var defaultRoleSkills = []string{"communication", "teamwork", "problem solving"}

// KeywordSource 岗位关键词的来源
type KeywordSource string

const (
	KeywordSourceGenerated KeywordSource = "generated"
	KeywordSourceFallback  KeywordSource = "fallback"
)

// KeywordBuilder 构建岗位与职位描述的比较关键词集合
type KeywordBuilder struct {
	generator  TextGenerator
	recognizer EntityRecognizer
	timeout    time.Duration
	logger     zerolog.Logger
}

// NewKeywordBuilder 创建关键词构建器；generator 可以为 nil
func NewKeywordBuilder(generator TextGenerator, recognizer EntityRecognizer, timeout time.Duration, logger zerolog.Logger) *KeywordBuilder {
	return &KeywordBuilder{
		generator:  generator,
		recognizer: recognizer,
		timeout:    timeout,
		logger:     logger,
	}
}

// RoleTarget 先请求生成式服务；失败、超时或结果为空时使用静态关键词表
func (b *KeywordBuilder) RoleTarget(ctx context.Context, role string) (types.KeywordTarget, KeywordSource) {
	if b.generator != nil {
		if target := b.generateRoleTarget(ctx, role); len(target) > 0 {
			return target, KeywordSourceGenerated
		}
	}
	return FallbackRoleKeywords(role), KeywordSourceFallback
}

func (b *KeywordBuilder) generateRoleTarget(ctx context.Context, role string) (target types.KeywordTarget) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Str("panic", fmt.Sprint(r)).Str("role", role).Msg("生成岗位关键词异常")
			target = nil
		}
	}()

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := b.generator.Generate(ctx, fmt.Sprintf(rolePromptTemplate, role))
	if err != nil {
		b.logger.Warn().Err(err).Str("role", role).Dur("elapsed", time.Since(start)).Msg("生成岗位关键词失败，使用内置关键词表")
		return nil
	}
	target = ParseRoleKeywords(resp, role)
	b.logger.Debug().Str("role", role).Int("keywords", len(target)).Dur("elapsed", time.Since(start)).Msg("生成岗位关键词完成")
	return target
}

// ParseRoleKeywords 解析生成式服务返回的逗号分隔关键词
func ParseRoleKeywords(resp, role string) types.KeywordTarget {
	roleLower := strings.ToLower(role)
	target := types.NewKeywordTarget()
	for _, item := range roleKeywordSeparators.Split(resp, -1) {
		clean := strings.ToLower(strings.TrimSpace(item))
		clean = strings.ReplaceAll(clean, "skills", "")
		if roleLower != "" {
			clean = strings.ReplaceAll(clean, roleLower, "")
		}
		clean = strings.TrimSpace(clean)
		if utf8.RuneCountInString(clean) > 1 {
			target.Add(clean)
		}
	}
	return target
}

// FallbackRoleKeywords 按岗位名查静态关键词表（先精确匹配，再忽略大小写），未知岗位返回通用关键词
func FallbackRoleKeywords(role string) types.KeywordTarget {
	skills, ok := fallbackRoleSkills[role]
	if !ok {
		for name, list := range fallbackRoleSkills {
			if strings.EqualFold(name, strings.TrimSpace(role)) {
				skills, ok = list, true
				break
			}
		}
	}
	if !ok {
		skills = defaultRoleSkills
	}
	return types.NewKeywordTarget(skills...)
}

// Roles 返回内置关键词表中的岗位名称（已排序）
func Roles() []string {
	roles := make([]string, 0, len(fallbackRoleSkills))
	for name := range fallbackRoleSkills {
		roles = append(roles, name)
	}
	sort.Strings(roles)
	return roles
}

// JDTarget 取职位描述中 SKILL/ORG/PRODUCT/LANGUAGE 实体的小写文本；识别失败时返回空集合
func (b *KeywordBuilder) JDTarget(ctx context.Context, jd string) types.KeywordTarget {
	target := types.NewKeywordTarget()
	if b.recognizer == nil {
		return target
	}
	ents, err := b.recognizer.ExtractEntities(ctx, jd)
	if err != nil {
		b.logger.Warn().Err(err).Msg("职位描述实体识别失败，JD关键词为空")
		return target
	}
	for _, e := range ents {
		switch e.Label {
		case types.LabelSkill, types.LabelOrg, types.LabelProduct, types.LabelLanguage:
			target.Add(e.Text)
		}
	}
	return target
}
