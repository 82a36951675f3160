package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

type AIService struct {
	client *openai.Client
}

// TaskDraft is a suggested task that has not been stored.
type TaskDraft struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	DutyDate    *time.Time `json:"duty_date"`
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
	}
}

// DraftTasks asks the model to split a free-form description of work into tasks for a project
func (s *AIService) DraftTasks(ctx context.Context, projectTitle string, projectDutyDate time.Time, text string) ([]TaskDraft, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	prompt := fmt.Sprintf(`You split work descriptions into concrete tasks for a project.

Current time: %s
Project: %s
Project deadline: %s

Text:
%s

Return a JSON array of tasks in this format:
[
  {
    "title": "short task title",
    "description": "what has to be done",
    "priority": "LOW, MEDIUM or HIGH",
    "duty_date": "deadline in ISO8601 (e.g. 2025-10-28T23:59:59Z), or null when the text gives none"
  }
]

Rules:
- Return [] when the text contains no tasks
- Convert relative dates ("tomorrow", "next week") into absolute dates
- Deadlines must not be later than the project deadline
- Return only JSON, no explanations`,
		time.Now().Format(time.DateTime), projectTitle, projectDutyDate.Format(time.DateOnly), text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: openai.GPT4o,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```json"), "```")

	var drafts []TaskDraft
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return drafts, nil
}
