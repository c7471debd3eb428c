package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/questlog/questlog/internal/model"
)

// FallbackInsight is the deterministic text used whenever generation fails
// or returns nothing usable.
const FallbackInsight = "Keep up the consistent effort. Review your weekly numbers and pick one goal to push further next week."

// chatCompleter is the slice of the OpenAI client insights need. The
// abstraction enables testing without calling the real API.
type chatCompleter interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// InsightService turns a weekly summary into one natural-language paragraph.
// Best-effort: the fallback sentence is always available.
type InsightService struct {
	completions chatCompleter
	model       string
}

func NewInsightService(apiKey, model string) *InsightService {
	if apiKey == "" {
		return &InsightService{model: model}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &InsightService{completions: client.Chat.Completions, model: model}
}

// WeeklyInsight never fails; any error path degrades to FallbackInsight.
func (s *InsightService) WeeklyInsight(ctx context.Context, summary *model.WeeklySummary) string {
	if s.completions == nil {
		return FallbackInsight
	}

	prompt := fmt.Sprintf(
		"Write a short, encouraging weekly recap (2-3 sentences) for a user with this activity: "+
			"%d problems solved, %d commits, %d active minutes, %.1f km covered, %d goals completed. "+
			"Mention one concrete suggestion for next week.",
		summary.ProblemsSolved, summary.Commits, summary.ActiveMinutes,
		summary.DistanceMeters/1000, summary.GoalsCompleted,
	)

	resp, err := s.completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}),
		Model: openai.F(openai.ChatModel(s.model)),
	})
	if err != nil {
		slog.Warn("insight generation failed, using fallback", "error", err, "user_id", summary.UserID)
		return FallbackInsight
	}
	if len(resp.Choices) == 0 {
		return FallbackInsight
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return FallbackInsight
	}
	return content
}
