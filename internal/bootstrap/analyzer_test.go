package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"resume-ats-go/internal/config"
	"resume-ats-go/internal/parser"
	"resume-ats-go/internal/processor"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRecognizer(t *testing.T) {
	log := zerolog.Nop()
	assert.Nil(t, BuildRecognizer(&config.Config{}, log))

	path := filepath.Join(t.TempDir(), "skills.json")
	require.NoError(t, os.WriteFile(path, []byte(`["Go","Kubernetes"]`), 0644))
	cfg := &config.Config{Parser: config.ParserConfig{SkillsVocabularyPath: path}}

	recognizer := BuildRecognizer(cfg, log)
	require.NotNil(t, recognizer)
	ents, err := recognizer.ExtractEntities(context.Background(), "Go and kubernetes")
	require.NoError(t, err)
	assert.Len(t, ents, 2)

	// 词表读取失败且没有远程NER
	cfg.Parser.SkillsVocabularyPath = filepath.Join(t.TempDir(), "missing.json")
	assert.Nil(t, BuildRecognizer(cfg, log))
}

func TestBuildGenerator(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	assert.Nil(t, BuildGenerator(ctx, &config.Config{Generator: config.GeneratorConfig{Provider: "none"}}, log))
	assert.Nil(t, BuildGenerator(ctx, &config.Config{Generator: config.GeneratorConfig{Provider: "gemini"}}, log))
	assert.Nil(t, BuildGenerator(ctx, &config.Config{Generator: config.GeneratorConfig{Provider: "qwen"}}, log))

	cfg := &config.Config{
		Generator: config.GeneratorConfig{Provider: "qwen"},
		Aliyun:    config.AliyunConfig{APIKey: "test-key", Model: "qwen-turbo"},
	}
	assert.NotNil(t, BuildGenerator(ctx, cfg, log))
}

func TestBuildPDFBackend(t *testing.T) {
	backend := BuildPDFBackend(context.Background(), &config.Config{}, zerolog.Nop())
	assert.IsType(t, &parser.PageTextPDFExtractor{}, backend)
}

func TestBuildAnalyzer_MissingModels(t *testing.T) {
	analyzer := BuildAnalyzer(context.Background(), &config.Config{}, nil, nil, zerolog.Nop())
	err := analyzer.Ready()
	require.Error(t, err)
	assert.Equal(t, processor.CodeModelsUnavailable, processor.CodeOf(err))
}
