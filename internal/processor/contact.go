package processor

import (
	"fmt"
	"regexp"
	"strings"

	"resume-ats-go/internal/types"

	"github.com/rs/zerolog"
)

var (
	longDigitRun = regexp.MustCompile(`\d{5,}`)
	// 邮箱前须有一个非字母数字字符，文本开头的邮箱不命中
	emailClean      = regexp.MustCompile(`[^a-zA-Z0-9]([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})\b`)
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)
	emailFull       = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	whitespaceOrBar = regexp.MustCompile(`[\s|]+`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	phoneStrict     = regexp.MustCompile(`\+?\d{9,15}\b`)
	phoneFormatted  = regexp.MustCompile(`(\(?\+?\d{1,3}\)?[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)
	nonDigit        = regexp.MustCompile(`\D`)
)

// 出现这些词的行被视为章节标题而不是姓名
var nameStopWords = []string{"experience", "education", "skills", "projects", "summary", "profile"}

// ContactExtractor 基于正则启发式提取姓名、邮箱、电话
type ContactExtractor struct {
	logger zerolog.Logger
}

// NewContactExtractor 创建联系方式提取器
func NewContactExtractor(logger zerolog.Logger) *ContactExtractor {
	return &ContactExtractor{logger: logger}
}

// ExtractContactInfo 使用静默日志的便捷入口
func ExtractContactInfo(text string) types.ContactInfo {
	return NewContactExtractor(zerolog.Nop()).Extract(text)
}

// Extract 从规范化文本中提取联系方式，从不返回错误；内部异常只会让对应字段缺失
func (c *ContactExtractor) Extract(text string) (info types.ContactInfo) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Str("panic", fmt.Sprint(r)).Msg("联系方式提取异常，保留已得到的字段")
		}
	}()

	info.Name = extractName(text)
	info.Email = extractEmail(text, info.Name)
	info.Phone = extractPhone(text)
	return info
}

// extractName 取第一条像姓名的行
func extractName(text string) *string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "@") || longDigitRun.MatchString(line) {
			continue
		}
		if len(strings.Fields(line)) >= 5 {
			continue
		}
		lower := strings.ToLower(line)
		stop := false
		for _, w := range nameStopWords {
			if strings.Contains(lower, w) {
				stop = true
				break
			}
		}
		if stop {
			continue
		}
		return &line
	}
	return nil
}

func extractEmail(text string, name *string) *string {
	email := findCleanEmail(text)
	if email == "" {
		email = findMergedEmail(text, name)
	}
	if email == "" {
		return nil
	}
	return &email
}

// findMergedEmail 去掉空白和竖线后再查找；姓名和邮箱在原文中紧挨着时去掉姓名前缀
func findMergedEmail(text string, name *string) string {
	merged := whitespaceOrBar.ReplaceAllString(text, "")
	candidate := emailPattern.FindString(merged)
	if candidate == "" || name == nil {
		return candidate
	}

	nameNoSpace := []rune(strings.ToLower(whitespaceRun.ReplaceAllString(*name, "")))
	runes := []rune(candidate)
	if len(nameNoSpace) > len(runes) || !strings.HasPrefix(strings.ToLower(candidate), string(nameNoSpace)) {
		return candidate
	}
	if rest := string(runes[len(nameNoSpace):]); emailFull.MatchString(rest) {
		return rest
	}
	return candidate
}

// findCleanEmail 返回第一个前面紧跟非字母数字字符的邮箱
func findCleanEmail(text string) string {
	m := emailClean.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}

func extractPhone(text string) *string {
	stripped := whitespaceRun.ReplaceAllString(text, "")
	raw := phoneStrict.FindString(stripped)
	if raw != "" {
		digits := strings.ReplaceAll(raw, "+", "")
		if len(digits) > 10 {
			digits = digits[len(digits)-10:]
		}

		// 原文中数字之间允许任意非数字分隔符
		parts := make([]string, len(digits))
		for i := range digits {
			parts[i] = digits[i : i+1]
		}
		if re, err := regexp.Compile(strings.Join(parts, `\D*`)); err == nil {
			if m := re.FindString(text); m != "" {
				phone := strings.TrimSpace(m)
				return &phone
			}
		}
	}

	// 带括号或连字符的号码在去空白后不是连续数字，直接按分组格式查找
	for _, candidate := range phoneFormatted.FindAllString(text, -1) {
		if len(nonDigit.ReplaceAllString(candidate, "")) >= 9 {
			phone := strings.TrimSpace(candidate)
			return &phone
		}
	}
	if raw != "" {
		return &raw
	}
	return nil
}
