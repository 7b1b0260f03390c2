package processor

import (
	"context"
	"errors"
	"strings"
	"sync"

	"resume-ats-go/internal/types"

	"github.com/cloudwego/eino/components/embedding"
)

// fakeExtractor 按文件名返回预设文本
type fakeExtractor struct {
	texts map[string]string
}

func (f *fakeExtractor) Extract(_ context.Context, doc types.RawDocument) (string, bool) {
	text, ok := f.texts[doc.FileName]
	if !ok || strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// vocabRecognizer 对文本中出现的词表短语打 SKILL 标签，对 orgs 中的词打 ORG 标签
type vocabRecognizer struct {
	skills []string
	orgs   []string
	err    error
}

func (r *vocabRecognizer) ExtractEntities(_ context.Context, text string) ([]types.Entity, error) {
	if r.err != nil {
		return nil, r.err
	}
	lower := strings.ToLower(text)
	var ents []types.Entity
	for _, s := range r.skills {
		if i := strings.Index(lower, strings.ToLower(s)); i >= 0 {
			ents = append(ents, types.Entity{Text: text[i : i+len(s)], Label: types.LabelSkill, Start: i, End: i + len(s)})
		}
	}
	for _, o := range r.orgs {
		if i := strings.Index(lower, strings.ToLower(o)); i >= 0 {
			ents = append(ents, types.Entity{Text: text[i : i+len(o)], Label: types.LabelOrg, Start: i, End: i + len(o)})
		}
	}
	return ents, nil
}

type fakeEmbedder struct {
	vectors [][]float64
	err     error
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors, nil
}

type fakeGrammar struct {
	issues []types.GrammarIssue
	err    error
	got    string
}

func (f *fakeGrammar) Check(_ context.Context, text string) ([]types.GrammarIssue, error) {
	f.got = text
	return f.issues, f.err
}

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

type fakeSink struct {
	mu      sync.Mutex
	records []*types.AnalysisRecord
	err     error
}

func (f *fakeSink) SaveAnalysis(_ context.Context, rec *types.AnalysisRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeObserver struct {
	degraded []string
	reports  int
	source   KeywordSource
}

func (f *fakeObserver) ObserveDegraded(capability string) {
	f.degraded = append(f.degraded, capability)
}

func (f *fakeObserver) ObserveReport(_ *types.AnalysisReport, source KeywordSource) {
	f.reports++
	f.source = source
}

var errBoom = errors.New("boom")
