package service

import (
	"encoding/json"
	"time"

	"DeskLink/internal/modules/ai/infrastructure/mq"
	"DeskLink/internal/modules/ai/infrastructure/pipeline"
	deskEntity "DeskLink/internal/modules/desk/domain/entity"
)

// EventRelay 把分类与指派事件转成审计记录投给 kafka。
// 火忘式：发布失败在 Publisher 内部消化，不影响业务链路。
type EventRelay struct {
	pub   mq.Publisher
	topic string
}

var _ pipeline.AuditSink = (*EventRelay)(nil)

func NewEventRelay(pub mq.Publisher, topic string) *EventRelay {
	return &EventRelay{pub: pub, topic: topic}
}

type auditRecord struct {
	Kind             string  `json:"kind"`
	TenantId         string  `json:"tenant_id"`
	ConversationUuid string  `json:"conversation_uuid"`
	AgentId          string  `json:"agent_id,omitempty"`
	TeamId           string  `json:"team_id,omitempty"`
	Source           string  `json:"source,omitempty"`
	Category         string  `json:"category,omitempty"`
	Priority         string  `json:"priority,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
	OccurredAt       string  `json:"occurred_at"`
}

func (r *EventRelay) ClassificationCreated(c *deskEntity.Classification) {
	if r == nil || r.pub == nil || c == nil {
		return
	}
	r.emit(auditRecord{
		Kind:             "classification_created",
		TenantId:         c.TenantId,
		ConversationUuid: c.ConversationUuid,
		Category:         c.Category,
		Priority:         c.Priority,
		Confidence:       c.Confidence,
		OccurredAt:       time.Now().UTC().Format(time.RFC3339),
	}, c.ConversationUuid)
}

func (r *EventRelay) ConversationAssigned(tenantID, conversationUuid, agentID, teamID, source string) {
	if r == nil || r.pub == nil {
		return
	}
	r.emit(auditRecord{
		Kind:             "conversation_assigned",
		TenantId:         tenantID,
		ConversationUuid: conversationUuid,
		AgentId:          agentID,
		TeamId:           teamID,
		Source:           source,
		OccurredAt:       time.Now().UTC().Format(time.RFC3339),
	}, conversationUuid)
}

func (r *EventRelay) emit(rec auditRecord, key string) {
	value, err := json.Marshal(rec)
	if err != nil {
		return
	}
	r.pub.Publish(mq.Message{
		Topic: r.topic,
		Key:   []byte(key),
		Value: value,
	})
}
