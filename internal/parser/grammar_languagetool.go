package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"resume-ats-go/internal/types"
)

// LanguageToolChecker 调用 LanguageTool HTTP API (/v2/check)
type LanguageToolChecker struct {
	endpoint   string
	language   string
	httpClient *http.Client
}

// NewLanguageToolChecker 创建语法检查客户端
func NewLanguageToolChecker(serverURL, language string, timeout time.Duration) (*LanguageToolChecker, error) {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		return nil, errors.New("LanguageTool服务地址不能为空")
	}
	if language == "" {
		language = "en-US"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &LanguageToolChecker{
		endpoint:   serverURL + "/v2/check",
		language:   language,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type languageToolResponse struct {
	Matches []struct {
		Message string `json:"message"`
		Context struct {
			Text   string `json:"text"`
			Offset int    `json:"offset"`
			Length int    `json:"length"`
		} `json:"context"`
		Rule struct {
			ID string `json:"id"`
		} `json:"rule"`
	} `json:"matches"`
}

// Check 返回语法检查发现的问题
func (c *LanguageToolChecker) Check(ctx context.Context, text string) ([]types.GrammarIssue, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("创建语法检查请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("语法检查请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取语法检查响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("LanguageTool返回状态码 %d: %s", resp.StatusCode, truncateText(string(body), 200))
	}

	var parsed languageToolResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("解析语法检查响应失败: %w", err)
	}

	issues := make([]types.GrammarIssue, 0, len(parsed.Matches))
	for _, m := range parsed.Matches {
		issues = append(issues, types.GrammarIssue{
			RuleID:  m.Rule.ID,
			Context: m.Context.Text,
			Message: m.Message,
		})
	}
	return issues, nil
}
