package repository

// Store AI 管线依赖的持久层集合，按接口注入便于在测试里替换
type Store struct {
	Conversations   ConversationRepository
	Messages        MessageRepository
	Contacts        ContactRepository
	Teams           TeamRepository
	Classifications ClassificationRepository
	Drafts          DraftRepository
}
