package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"resume-ats-go/internal/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entityTexts(ents []types.Entity) []string {
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.Text)
	}
	return out
}

func TestVocabularyRuler_LongestMatch(t *testing.T) {
	ruler := NewVocabularyRuler([]string{"Machine Learning", "machine", "Go", "C++", "Node.js", "ci/cd", "GO"})
	assert.Equal(t, 6, ruler.Size(), "大小写不同的重复短语应只计一次")

	text := "Skills: Go, C++, Node.js. Built machine learning pipelines with CI/CD."
	ents, err := ruler.ExtractEntities(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, []string{"Go", "C++", "Node.js", "machine learning", "CI/CD"}, entityTexts(ents))
	for _, e := range ents {
		assert.Equal(t, types.LabelSkill, e.Label)
		assert.Equal(t, e.Text, text[e.Start:e.End], "偏移量应指向原文")
	}
}

func TestVocabularyRuler_BulletAndParentheses(t *testing.T) {
	ruler := NewVocabularyRuler([]string{"Docker", "Kubernetes"})
	ents, err := ruler.ExtractEntities(context.Background(), "•Docker (Kubernetes)")
	require.NoError(t, err)
	assert.Equal(t, []string{"Docker", "Kubernetes"}, entityTexts(ents))
}

func TestVocabularyRuler_NoPartialWord(t *testing.T) {
	ruler := NewVocabularyRuler([]string{"Go"})
	ents, err := ruler.ExtractEntities(context.Background(), "Google Golang gopher")
	require.NoError(t, err)
	assert.Empty(t, ents)
}

func TestLoadSkillVocabulary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "skills.json")
	require.NoError(t, os.WriteFile(path, []byte(`["Go","Redis","Machine Learning"]`), 0o644))

	phrases, err := LoadSkillVocabulary(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "Redis", "Machine Learning"}, phrases)

	_, err = LoadSkillVocabulary(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not":"an array"}`), 0o644))
	_, err = LoadSkillVocabulary(bad)
	assert.Error(t, err)
}

type stubRecognizer struct {
	ents []types.Entity
	err  error
}

func (s stubRecognizer) ExtractEntities(context.Context, string) ([]types.Entity, error) {
	return s.ents, s.err
}

func TestRulerPipeline_DropsOverlappingModelEntities(t *testing.T) {
	text := "Go developer at Acme Corp"
	ruler := NewVocabularyRuler([]string{"Go"})
	model := stubRecognizer{ents: []types.Entity{
		{Text: "Go developer", Label: types.LabelOrg, Start: 0, End: 12},
		{Text: "Acme Corp", Label: types.LabelOrg, Start: 16, End: 25},
	}}

	pipeline, err := NewRulerPipeline(ruler, model, zerolog.Nop())
	require.NoError(t, err)

	ents, err := pipeline.ExtractEntities(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, ents, 2)
	assert.Equal(t, types.Entity{Text: "Go", Label: types.LabelSkill, Start: 0, End: 2}, ents[0])
	assert.Equal(t, "Acme Corp", ents[1].Text)
}

func TestRulerPipeline_CodePointOffsets(t *testing.T) {
	text := "•••••••• Java is used at Acme Corp"
	ruler := NewVocabularyRuler([]string{"Java"})
	model := stubRecognizer{ents: []types.Entity{
		{Text: "Java", Label: types.LabelProduct, Start: 9, End: 13},
		{Text: "Acme Corp", Label: types.LabelOrg, Start: 25, End: 34},
	}}

	pipeline, err := NewRulerPipeline(ruler, model, zerolog.Nop())
	require.NoError(t, err)

	ents, err := pipeline.ExtractEntities(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, []types.Entity{
		{Text: "Java", Label: types.LabelSkill, Start: 9, End: 13},
		{Text: "Acme Corp", Label: types.LabelOrg, Start: 25, End: 34},
	}, ents)
}

func TestRulerPipeline_ModelFailure(t *testing.T) {
	ruler := NewVocabularyRuler([]string{"Python"})
	failing := stubRecognizer{err: errors.New("connection refused")}

	pipeline, err := NewRulerPipeline(ruler, failing, zerolog.Nop())
	require.NoError(t, err)
	ents, err := pipeline.ExtractEntities(context.Background(), "Python and SQL")
	require.NoError(t, err, "有词表时模型失败应降级")
	assert.Equal(t, []string{"Python"}, entityTexts(ents))

	modelOnly, err := NewRulerPipeline(nil, failing, zerolog.Nop())
	require.NoError(t, err)
	_, err = modelOnly.ExtractEntities(context.Background(), "Python")
	assert.Error(t, err)

	_, err = NewRulerPipeline(nil, nil, zerolog.Nop())
	assert.Error(t, err)
}
