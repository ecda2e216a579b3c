package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"resume-coach-go/internal/logger"
)

const (
	defaultOpenAIAPIURL    = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModelName = "gpt-3.5-turbo"
)

// --- OpenAI Chat Completions 请求/响应结构 ---

type openAIChatCompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"` // schema.Message 的 role/content 与 OpenAI 消息兼容
	MaxTokens   int               `json:"max_tokens,omitempty"`
	Temperature *float32          `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type openAIChatChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAICompletionResponse struct {
	Id      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []openAIChatChoice `json:"choices"`
}

// OpenAIChatModel 实现 model.BaseChatModel 接口，
// 通过 OpenAI Chat Completions API（或任意兼容端点）完成单轮文本生成。
// 分析流程的输出长度和创造性参数在构造时固定，保证结果可控。
type OpenAIChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	maxTokens   int
	temperature float32
	httpClient  *http.Client
	logger      zerolog.Logger
}

// OpenAIOption 模型客户端的配置选项
type OpenAIOption func(*OpenAIChatModel)

// WithMaxTokens 限制单次生成的输出长度
func WithMaxTokens(n int) OpenAIOption {
	return func(m *OpenAIChatModel) {
		m.maxTokens = n
	}
}

// WithTemperature 设置采样温度上限
func WithTemperature(t float32) OpenAIOption {
	return func(m *OpenAIChatModel) {
		m.temperature = t
	}
}

// WithHTTPClient 替换底层HTTP客户端（测试时指向本地桩服务）
func WithHTTPClient(c *http.Client) OpenAIOption {
	return func(m *OpenAIChatModel) {
		m.httpClient = c
	}
}

// NewOpenAIChatModel 创建一个新的 OpenAIChatModel 实例
func NewOpenAIChatModel(apiKey, modelName, apiURL string, options ...OpenAIOption) (*OpenAIChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}

	mn := modelName
	if strings.TrimSpace(mn) == "" {
		mn = defaultOpenAIModelName
	}

	url := apiURL
	if strings.TrimSpace(url) == "" {
		url = defaultOpenAIAPIURL
	}

	m := &OpenAIChatModel{
		apiKey:     apiKey,
		modelName:  mn,
		apiURL:     url,
		httpClient: &http.Client{},
		logger:     logger.Logger.With().Str("component", "openai_chat_model").Logger(),
	}

	for _, option := range options {
		option(m)
	}

	m.logger.Info().Str("api_url", url).Str("model", mn).Msg("OpenAI 聊天模型客户端已初始化")
	return m, nil
}

// Generate 实现 model.BaseChatModel 接口
func (m *OpenAIChatModel) Generate(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.Message, error) {
	for _, opt := range options {
		_ = opt // 调用级选项由构造参数覆盖，这里仅消费以满足接口
	}

	reqPayload := openAIChatCompletionRequest{
		Model:    m.modelName,
		Messages: messages,
	}
	if m.maxTokens > 0 {
		reqPayload.MaxTokens = m.maxTokens
	}
	if m.temperature > 0 {
		t := m.temperature
		reqPayload.Temperature = &t
	}

	jsonData, err := json.Marshal(reqPayload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	m.logger.Debug().Str("model", m.modelName).Int("messages", len(messages)).Msg("发送模型请求")

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	bodyBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, truncate(string(bodyBytes), 512))
	}

	var resp openAICompletionResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项")
	}

	apiMessage := resp.Choices[0].Message
	content := ""
	if apiMessage.Content != nil {
		content = *apiMessage.Content
	}

	role := schema.RoleType(apiMessage.Role)
	if role == "" {
		role = schema.Assistant
	}

	return &schema.Message{Role: role, Content: content}, nil
}

// Stream 实现 model.BaseChatModel 接口。分析流程只用单轮非流式生成
func (m *OpenAIChatModel) Stream(ctx context.Context, messages []*schema.Message, options ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("OpenAIChatModel 的 Stream 方法未实现")
}

// truncate 限制日志中响应体的长度
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}

var _ model.BaseChatModel = (*OpenAIChatModel)(nil)
