package request

// AssistTurnRequest 带角色标注的历史回合
type AssistTurnRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistChatRequest 助手聊天请求
type AssistChatRequest struct {
	Message string              `json:"message" binding:"required"`
	History []AssistTurnRequest `json:"history"`
	Context map[string]string   `json:"context"`
}
