package feedback

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/drummonds/resumefeedback/config"
	openai "github.com/sashabaranov/go-openai"
)

// ErrNotConfigured is returned when no API key is available
var ErrNotConfigured = errors.New("AI feedback is not configured")

// maxResumeText bounds the extracted text sent with the prompt
const maxResumeText = 20000

// Request is one resume to analyze
type Request struct {
	JobTitle       string
	JobDescription string
	ResumeText     string
	Image          []byte // PNG of the first page
	ImageType      string
}

// Analyzer produces feedback for a resume
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Feedback, error)
}

// OpenAIAnalyzer asks an OpenAI compatible chat model for feedback
type OpenAIAnalyzer struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIAnalyzer creates an analyzer from the feedback settings
func NewOpenAIAnalyzer(cfg config.FeedbackConfig) *OpenAIAnalyzer {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = cfg.OpenAIBaseURL
	}
	model := cfg.OpenAIModel
	if model == "" {
		model = openai.GPT4oMini
	}
	a := &OpenAIAnalyzer{model: model, maxTokens: cfg.MaxTokens}
	if cfg.OpenAIAPIKey != "" {
		a.client = openai.NewClientWithConfig(clientConfig)
	}
	return a
}

// Analyze sends the prompt, resume text and page image and parses the reply
func (a *OpenAIAnalyzer) Analyze(ctx context.Context, req Request) (*Feedback, error) {
	if a.client == nil {
		return nil, ErrNotConfigured
	}
	start := time.Now()

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: PrepareInstructions(req.JobTitle, req.JobDescription)},
	}
	if req.ResumeText != "" {
		resumeText := truncateText(req.ResumeText, maxResumeText)
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: "Resume text:\n" + resumeText,
		})
	}
	if len(req.Image) > 0 {
		imageType := req.ImageType
		if imageType == "" {
			imageType = "image/png"
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:%s;base64,%s", imageType, base64.StdEncoding.EncodeToString(req.Image)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrInvalidFeedback)
	}

	fb, err := ParseFeedback(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	Logger.Info("Resume analyzed", "model", a.model, "overallScore", fb.OverallScore,
		"tokens", resp.Usage.TotalTokens, "duration", time.Since(start))
	return fb, nil
}

// truncateText cuts text to at most max bytes without splitting a rune
func truncateText(text string, max int) string {
	if len(text) <= max {
		return text
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
