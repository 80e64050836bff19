package service

import (
	"context"

	aiRequest "DeskLink/internal/modules/ai/application/dto/request"
	aiRespond "DeskLink/internal/modules/ai/application/dto/respond"
	"DeskLink/internal/modules/ai/infrastructure/pipeline"
	"DeskLink/pkg/xerr"
)

// AssistService 助手聊天入口，一次调用对应循环的一个完整回合
type AssistService interface {
	Chat(ctx context.Context, tenantID string, req aiRequest.AssistChatRequest) (*aiRespond.AssistChatRespond, error)
}

type assistServiceImpl struct {
	loop *pipeline.AssistLoop
}

func NewAssistService(loop *pipeline.AssistLoop) AssistService {
	return &assistServiceImpl{loop: loop}
}

func (s *assistServiceImpl) Chat(ctx context.Context, tenantID string, req aiRequest.AssistChatRequest) (*aiRespond.AssistChatRespond, error) {
	if req.Message == "" {
		return nil, xerr.ErrParam
	}

	history := make([]pipeline.AssistTurn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, pipeline.AssistTurn{Role: turn.Role, Content: turn.Content})
	}

	result := s.loop.Run(ctx, &pipeline.AssistRequest{
		TenantID: tenantID,
		Message:  req.Message,
		History:  history,
		Context:  req.Context,
	})

	invocations := make([]aiRespond.ToolInvocationView, 0, len(result.ToolInvocations))
	for _, inv := range result.ToolInvocations {
		invocations = append(invocations, aiRespond.ToolInvocationView{
			Tool:       inv.Tool,
			Input:      inv.Input,
			Output:     inv.Output,
			Error:      inv.Error,
			Status:     inv.Status,
			DurationMs: inv.DurationMs,
		})
	}
	return &aiRespond.AssistChatRespond{
		Answer:          result.Answer,
		ToolInvocations: invocations,
		NeedsEscalation: result.NeedsEscalation,
		Confidence:      result.Confidence,
		State:           result.State,
	}, nil
}
