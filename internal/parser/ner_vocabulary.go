package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"resume-ats-go/internal/types"
)

// LoadSkillVocabulary 读取技能词表（JSON字符串数组）
func LoadSkillVocabulary(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取技能词表失败: %w", err)
	}
	var phrases []string
	if err := json.Unmarshal(data, &phrases); err != nil {
		return nil, fmt.Errorf("解析技能词表失败: %w", err)
	}
	return phrases, nil
}

// token 文本中的一个词元及其字节区间
type token struct {
	lower string
	start int
	end   int
}

// VocabularyRuler 按词表做大小写不敏感的短语匹配，命中的片段标注为 SKILL。
// 匹配以词元为单位，重叠时取最长的短语，从左到右不重叠。
type VocabularyRuler struct {
	// 首词元 -> 以该词元开头的短语（按长度降序）
	index     map[string][][]string
	maxTokens int
	size      int
}

// NewVocabularyRuler 由短语列表构建匹配器
func NewVocabularyRuler(phrases []string) *VocabularyRuler {
	r := &VocabularyRuler{index: make(map[string][][]string)}
	seen := make(map[string]struct{}, len(phrases))
	for _, phrase := range phrases {
		toks := tokenize(phrase)
		if len(toks) == 0 {
			continue
		}
		words := make([]string, len(toks))
		for i, t := range toks {
			words[i] = t.lower
		}
		key := strings.Join(words, " ")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		r.index[words[0]] = append(r.index[words[0]], words)
		if len(words) > r.maxTokens {
			r.maxTokens = len(words)
		}
		r.size++
	}
	for first := range r.index {
		candidates := r.index[first]
		sort.SliceStable(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })
	}
	return r
}

// Size 返回去重后的短语数量
func (r *VocabularyRuler) Size() int {
	return r.size
}

// ExtractEntities 实现实体识别接口，只产出 SKILL 标签
func (r *VocabularyRuler) ExtractEntities(_ context.Context, text string) ([]types.Entity, error) {
	toks := tokenize(text)
	offsets := runeOffsets{text: text}
	var entities []types.Entity
	for i := 0; i < len(toks); {
		matched := 0
		for _, phrase := range r.index[toks[i].lower] {
			if i+len(phrase) > len(toks) {
				continue
			}
			ok := true
			for k := 1; k < len(phrase); k++ {
				if toks[i+k].lower != phrase[k] {
					ok = false
					break
				}
			}
			if ok {
				matched = len(phrase)
				break
			}
		}
		if matched == 0 {
			i++
			continue
		}
		start, end := toks[i].start, toks[i+matched-1].end
		entities = append(entities, types.Entity{
			Text:  text[start:end],
			Label: types.LabelSkill,
			Start: offsets.at(start),
			End:   offsets.at(end),
		})
		i += matched
	}
	return entities, nil
}

// runeOffsets 把单调递增的字节偏移换算为码点偏移
type runeOffsets struct {
	text    string
	byteOff int
	runeOff int
}

func (o *runeOffsets) at(b int) int {
	o.runeOff += utf8.RuneCountInString(o.text[o.byteOff:b])
	o.byteOff = b
	return o.runeOff
}

// 作为独立词元切出的标点
const splitPunct = `,;:()[]{}"!?<>|•*`

// tokenize 以空白切分，并把首尾标点切成独立词元；词内的 . + # / - 保留（如 node.js、c++、c#、ci/cd）
func tokenize(text string) []token {
	var toks []token
	i := 0
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}
		start := i
		for i < len(text) {
			r, size = utf8.DecodeRuneInString(text[i:])
			if unicode.IsSpace(r) {
				break
			}
			i += size
		}
		toks = append(toks, splitWord(text, start, i)...)
	}
	return toks
}

// splitWord 把 [start,end) 的单词拆成 前缀标点 + 主体 + 后缀标点
func splitWord(text string, start, end int) []token {
	var prefix, suffix []token
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:end])
		if !strings.ContainsRune(splitPunct, r) {
			break
		}
		prefix = append(prefix, token{lower: text[start : start+size], start: start, end: start + size})
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[start:end])
		// 句末的点号与其他标点单独成词，但保留 "c++" 等末尾符号
		if !strings.ContainsRune(splitPunct, r) && r != '.' {
			break
		}
		suffix = append([]token{{lower: text[end-size : end], start: end - size, end: end}}, suffix...)
		end -= size
	}
	out := prefix
	if end > start {
		out = append(out, token{lower: strings.ToLower(text[start:end]), start: start, end: end})
	}
	return append(out, suffix...)
}
