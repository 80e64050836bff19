package ws

// Scope 广播作用域，四类：tenant / agent / conversation / team。
// 只能通过下面的构造函数创建，避免不同业务 ID 拼出相同的 key。
type Scope string

func TenantScope(tenantID string) Scope {
	return Scope("tenant:" + tenantID)
}

func AgentScope(agentID string) Scope {
	return Scope("agent:" + agentID)
}

func ConversationScope(conversationID string) Scope {
	return Scope("conversation:" + conversationID)
}

func TeamScope(teamID string) Scope {
	return Scope("team:" + teamID)
}
