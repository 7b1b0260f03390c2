package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"resume-ats-go/internal/types"

	"github.com/rs/zerolog"
)

// RemoteRecognizer 调用远程 NER 服务（spaCy 风格的 HTTP 接口）
//
//	POST {server}/ner  {"text": "..."}
//	-> {"entities": [{"text": "Go", "label": "PRODUCT", "start": 0, "end": 2}]}
//
// start/end 为 Unicode 码点偏移（spaCy 的 start_char/end_char），不是字节偏移。
type RemoteRecognizer struct {
	endpoint   string
	httpClient *http.Client
}

// NewRemoteRecognizer 创建远程实体识别客户端
func NewRemoteRecognizer(serverURL string, timeout time.Duration) (*RemoteRecognizer, error) {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		return nil, errors.New("NER服务地址不能为空")
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &RemoteRecognizer{
		endpoint:   serverURL + "/ner",
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type nerRequest struct {
	Text string `json:"text"`
}

type nerResponse struct {
	Entities []types.Entity `json:"entities"`
	Error    string         `json:"error,omitempty"`
}

// ExtractEntities 实现实体识别接口
func (r *RemoteRecognizer) ExtractEntities(ctx context.Context, text string) ([]types.Entity, error) {
	payload, err := json.Marshal(nerRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("序列化NER请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("创建NER请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NER请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取NER响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("NER服务返回状态码 %d: %s", resp.StatusCode, truncateText(string(body), 200))
	}

	var parsed nerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("解析NER响应失败: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("NER服务错误: %s", parsed.Error)
	}
	return parsed.Entities, nil
}

// EntityRecognizer 实体识别能力
type EntityRecognizer interface {
	ExtractEntities(ctx context.Context, text string) ([]types.Entity, error)
}

// RulerPipeline 先运行词表匹配（SKILL），再运行统计模型；模型实体与 SKILL 片段重叠时丢弃。
// 模型调用失败时只返回 SKILL 实体并记录警告。
type RulerPipeline struct {
	ruler  *VocabularyRuler
	model  EntityRecognizer
	logger zerolog.Logger
}

// NewRulerPipeline 组合词表匹配器和模型；两者都可以为 nil，但不能同时为 nil
func NewRulerPipeline(ruler *VocabularyRuler, model EntityRecognizer, logger zerolog.Logger) (*RulerPipeline, error) {
	if ruler == nil && model == nil {
		return nil, errors.New("至少需要一个实体识别来源")
	}
	return &RulerPipeline{ruler: ruler, model: model, logger: logger}, nil
}

// ExtractEntities 实现实体识别接口
func (p *RulerPipeline) ExtractEntities(ctx context.Context, text string) ([]types.Entity, error) {
	var skills []types.Entity
	if p.ruler != nil {
		skills, _ = p.ruler.ExtractEntities(ctx, text)
	}
	if p.model == nil {
		return skills, nil
	}

	modelEnts, err := p.model.ExtractEntities(ctx, text)
	if err != nil {
		if p.ruler == nil {
			return nil, err
		}
		p.logger.Warn().Err(err).Msg("NER模型调用失败，仅使用词表实体")
		return skills, nil
	}

	out := make([]types.Entity, 0, len(skills)+len(modelEnts))
	out = append(out, skills...)
	for _, e := range modelEnts {
		if overlapsAny(e, skills) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func overlapsAny(e types.Entity, spans []types.Entity) bool {
	if e.End <= e.Start {
		return false
	}
	for _, s := range spans {
		if e.Start < s.End && s.Start < e.End {
			return true
		}
	}
	return false
}
