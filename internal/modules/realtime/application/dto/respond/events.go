package respond

// 下行事件名
const (
	EventAuthenticated       = "authenticated"
	EventAuthenticationError = "authentication_error"
	EventNewMessage          = "new_message"
	EventAIClassification    = "ai_classification"
	EventAIDraft             = "ai_draft"
	EventTypingStart         = "typing_start"
	EventTypingStop          = "typing_stop"
	EventAgentOnline         = "agent_online"
	EventAgentOffline        = "agent_offline"
	EventConversationAssigned   = "conversation_assigned"
	EventConversationUnassigned = "conversation_unassigned"
	EventConversationStatus     = "conversation_status_changed"
	EventError               = "error"
)

// AuthenticatedData 认证成功回执
type AuthenticatedData struct {
	TenantId string `json:"tenant_id"`
	UserId   string `json:"user_id"`
	Role     string `json:"role"`
}

// ErrorData 错误推送
type ErrorData struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// PresenceData 客服状态变更
type PresenceData struct {
	TenantId string `json:"tenant_id"`
	AgentId  string `json:"agent_id"`
	Status   string `json:"status"`
}

// TypingData 输入状态变更
type TypingData struct {
	AgentId        string `json:"agent_id"`
	ConversationId string `json:"conversation_id"`
}

// MessageData 新消息
type MessageData struct {
	Uuid           string `json:"uuid"`
	ConversationId string `json:"conversation_id"`
	SenderKind     string `json:"sender_kind"`
	SenderId       string `json:"sender_id"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

// ClassificationData 分类结果推送
type ClassificationData struct {
	Uuid             string  `json:"uuid"`
	ConversationId   string  `json:"conversation_id"`
	MessageId        string  `json:"message_id"`
	Category         string  `json:"category"`
	Priority         string  `json:"priority"`
	Sentiment        string  `json:"sentiment"`
	Language         string  `json:"language"`
	Confidence       float64 `json:"confidence"`
	Reasoning        string  `json:"reasoning,omitempty"`
	SuggestedTeamId  string  `json:"suggested_team_id,omitempty"`
	SuggestedAgentId string  `json:"suggested_agent_id,omitempty"`
}

// DraftData 回复草稿推送
type DraftData struct {
	Uuid           string  `json:"uuid"`
	ConversationId string  `json:"conversation_id"`
	MessageId      string  `json:"message_id"`
	Content        string  `json:"content"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning,omitempty"`
	Status         string  `json:"status"`
}

// AssignmentData 会话指派变更
type AssignmentData struct {
	ConversationId string `json:"conversation_id"`
	AgentId        string `json:"agent_id,omitempty"`
	TeamId         string `json:"team_id,omitempty"`
}

// StatusData 会话状态变更
type StatusData struct {
	ConversationId string `json:"conversation_id"`
	Status         string `json:"status"`
}
