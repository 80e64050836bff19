package skills

import (
	"github.com/cloudwego/eino/schema"
)

// Skill 技能枚举。助手循环只能调用这里列出的技能，
// 不做运行期工具发现，新技能必须改代码上线。
type Skill string

const (
	SkillLookupCustomer  Skill = "lookup_customer"
	SkillLookupOrder     Skill = "lookup_order"
	SkillSearchKnowledge Skill = "search_knowledge"
	SkillCreateTicket    Skill = "create_ticket"
	SkillIssueRefund     Skill = "issue_refund"
	SkillEscalate        Skill = "escalate"
)

// ParseSkill 模型返回的工具名转技能枚举
func ParseSkill(name string) (Skill, bool) {
	switch Skill(name) {
	case SkillLookupCustomer, SkillLookupOrder, SkillSearchKnowledge,
		SkillCreateTicket, SkillIssueRefund, SkillEscalate:
		return Skill(name), true
	}
	return "", false
}

// Catalog 每次 Deciding 都把全量技能目录交给模型
func Catalog() []*schema.ToolInfo {
	return []*schema.ToolInfo{
		{
			Name: string(SkillLookupCustomer),
			Desc: "Look up a customer profile (name, email, tier) by customer id.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"customer_id": {
					Type:     schema.String,
					Desc:     "The customer uuid to look up.",
					Required: true,
				},
			}),
		},
		{
			Name: string(SkillLookupOrder),
			Desc: "Look up an order (status, amount, items) in the CRM by order id.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"order_id": {
					Type:     schema.String,
					Desc:     "The order id to look up.",
					Required: true,
				},
			}),
		},
		{
			Name: string(SkillSearchKnowledge),
			Desc: "Search the knowledge base for articles relevant to a question.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"query": {
					Type:     schema.String,
					Desc:     "Natural language search query.",
					Required: true,
				},
				"top_k": {
					Type: schema.Integer,
					Desc: "How many articles to return, default 3.",
				},
			}),
		},
		{
			Name: string(SkillCreateTicket),
			Desc: "Create a follow-up support ticket for work that cannot be resolved in chat.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"subject": {
					Type:     schema.String,
					Desc:     "Short ticket subject.",
					Required: true,
				},
				"description": {
					Type:     schema.String,
					Desc:     "Detailed description of the issue.",
					Required: true,
				},
				"priority": {
					Type: schema.String,
					Desc: "Ticket priority: low, normal, high or urgent. Default normal.",
					Enum: []string{"low", "normal", "high", "urgent"},
				},
			}),
		},
		{
			Name: string(SkillIssueRefund),
			Desc: "Issue a refund for an order through the CRM.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"order_id": {
					Type:     schema.String,
					Desc:     "The order to refund.",
					Required: true,
				},
				"amount": {
					Type:     schema.Number,
					Desc:     "Refund amount. Must not exceed the order amount.",
					Required: true,
				},
				"reason": {
					Type:     schema.String,
					Desc:     "Why the refund is issued.",
					Required: true,
				},
			}),
		},
		{
			Name: string(SkillEscalate),
			Desc: "Hand the conversation over to a human agent. Use when the issue is outside your abilities or the customer asks for a human.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"reason": {
					Type:     schema.String,
					Desc:     "Why a human needs to take over.",
					Required: true,
				},
			}),
		},
	}
}
