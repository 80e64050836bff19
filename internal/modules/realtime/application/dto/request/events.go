package request

import "encoding/json"

// 上行事件名
const (
	EventAuthenticate     = "authenticate"
	EventJoinConversation = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventJoinTeam         = "join_team"
	EventLeaveTeam        = "leave_team"
	EventSendMessage      = "send_message"
	EventTypingStart      = "typing_start"
	EventTypingStop       = "typing_stop"
	EventAgentStatus      = "agent_status"
	EventUpdateStatus     = "update_conversation_status"
	EventAssign           = "assign_conversation"
	EventUnassign         = "unassign_conversation"
)

// Envelope 客户端消息信封，Data 按 Event 延迟解析
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type AuthenticateData struct {
	Token string `json:"token"`
}

type ConversationData struct {
	ConversationId string `json:"conversation_id"`
}

type TeamData struct {
	TeamId string `json:"team_id"`
}

type SendMessageData struct {
	ConversationId string `json:"conversation_id"`
	Content        string `json:"content"`
}

type TypingData struct {
	ConversationId string `json:"conversation_id"`
}

type AgentStatusData struct {
	Status string `json:"status"`
}

type UpdateStatusData struct {
	ConversationId string `json:"conversation_id"`
	Status         string `json:"status"`
}

type AssignData struct {
	ConversationId string `json:"conversation_id"`
	AgentId        string `json:"agent_id"`
	TeamId         string `json:"team_id"`
}
