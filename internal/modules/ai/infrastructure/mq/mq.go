package mq

// Message 审计消息，Key 用于分区（同会话进同分区保序）
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// Publisher 火忘式发布，失败由实现内部记日志，不回传调用方
type Publisher interface {
	Publish(msg Message)
	Close() error
}
