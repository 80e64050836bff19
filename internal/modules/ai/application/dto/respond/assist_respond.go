package respond

// ToolInvocationView 单次技能调用的对外视图
type ToolInvocationView struct {
	Tool       string `json:"tool"`
	Input      string `json:"input"`
	Output     string `json:"output,omitempty"`
	Error      string `json:"error,omitempty"`
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
}

// AssistChatRespond 助手聊天响应
type AssistChatRespond struct {
	Answer          string               `json:"answer"`
	ToolInvocations []ToolInvocationView `json:"tool_invocations"`
	NeedsEscalation bool                 `json:"needs_escalation"`
	Confidence      float64              `json:"confidence"`
	State           string               `json:"state"`
}
