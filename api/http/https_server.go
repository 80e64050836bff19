package http

import (
	"context"
	"time"

	"DeskLink/internal/config"
	"DeskLink/internal/initial"
	jwtMiddleware "DeskLink/internal/middleware/jwt"
	aiService "DeskLink/internal/modules/ai/application/service"
	"DeskLink/internal/modules/ai/infrastructure/embedding"
	"DeskLink/internal/modules/ai/infrastructure/llm"
	"DeskLink/internal/modules/ai/infrastructure/mq/kafka"
	aiPipeline "DeskLink/internal/modules/ai/infrastructure/pipeline"
	"DeskLink/internal/modules/ai/infrastructure/skills"
	"DeskLink/internal/modules/ai/infrastructure/vectordb"
	aiHandler "DeskLink/internal/modules/ai/interface/http"
	deskService "DeskLink/internal/modules/desk/application/service"
	deskRepository "DeskLink/internal/modules/desk/domain/repository"
	deskPersistence "DeskLink/internal/modules/desk/infrastructure/persistence"
	deskHandler "DeskLink/internal/modules/desk/interface/http"
	realtimeService "DeskLink/internal/modules/realtime/application/service"
	presenceInfra "DeskLink/internal/modules/realtime/infrastructure/presence"
	realtimeHandler "DeskLink/internal/modules/realtime/interface/http"
	"DeskLink/pkg/ssl"
	"DeskLink/pkg/ws"
	"DeskLink/pkg/zlog"

	milvusEntity "github.com/milvus-io/milvus-sdk-go/v2/entity"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var GE *gin.Engine

func init() {
	conf := config.GetConfig()

	GE = gin.Default()
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	GE.Use(cors.New(corsConfig))
	GE.Use(ssl.TlsHandler(conf.MainConfig.Host, conf.MainConfig.Port))

	wsHub := ws.NewHub()

	store := &deskRepository.Store{
		Conversations:   deskPersistence.NewConversationRepository(initial.GormDB),
		Messages:        deskPersistence.NewMessageRepository(initial.GormDB),
		Contacts:        deskPersistence.NewContactRepository(initial.GormDB),
		Teams:           deskPersistence.NewTeamRepository(initial.GormDB),
		Classifications: deskPersistence.NewClassificationRepository(initial.GormDB),
		Drafts:          deskPersistence.NewDraftRepository(initial.GormDB),
	}

	broadcaster := realtimeService.NewBroadcaster(wsHub)
	presenceSvc := realtimeService.NewPresenceService(
		wsHub,
		presenceInfra.NewRedisStore(),
		broadcaster,
		time.Duration(conf.AssistConfig.TypingTTLSeconds)*time.Second,
	)
	registrySvc := realtimeService.NewRegistryService(wsHub, presenceSvc, store.Conversations, store.Teams)
	availabilitySvc := deskService.NewAvailabilityService(store.Teams, presenceSvc)
	conversationSvc := deskService.NewConversationService(store.Conversations, broadcaster)
	draftSvc := deskService.NewDraftService(store.Drafts)

	ctx := context.Background()

	chatModel, cmMeta, err := llm.NewChatModelFromConfig(ctx, conf)
	if err != nil {
		zlog.Fatal("chat model init failed: " + err.Error())
	}
	zlog.Info("chat model ready: " + cmMeta.Provider + "/" + cmMeta.Model)
	completer := llm.NewCompleter(chatModel, time.Duration(conf.AssistConfig.CompleterTimeoutSeconds)*time.Second)

	// 知识库链路可选：Milvus 未配置时，草稿不带 KB 依据、
	// search_knowledge 技能返回空集，其余功能不受影响
	var knowledgeSvc aiService.KnowledgeService
	if initial.MilvusClient != nil {
		embedder, embMeta, err := embedding.NewEmbedderFromConfig(ctx, conf)
		if err != nil {
			zlog.Fatal("embedder init failed: " + err.Error())
		}
		metricType := milvusEntity.MetricType(conf.MilvusConfig.MetricType)
		if metricType == "" {
			metricType = milvusEntity.COSINE
		}
		collection := conf.MilvusConfig.CollectionName
		if collection == "" {
			collection = "kb_article_chunks"
		}
		vectorStore, err := vectordb.NewMilvusStore(initial.MilvusClient, collection, "vector", embMeta.Dim, metricType)
		if err != nil {
			zlog.Fatal("milvus store init failed: " + err.Error())
		}
		knowledgeSvc, err = aiService.NewKnowledgeService(ctx, embedder, vectorStore, embMeta.Dim)
		if err != nil {
			zlog.Fatal("knowledge service init failed: " + err.Error())
		}
	} else {
		zlog.Info("Milvus 未配置，知识库检索降级为空结果")
	}

	// 审计链路可选：Kafka 未配置时分类与指派事件只进库不外发
	var audit aiPipeline.AuditSink
	if len(conf.KafkaConfig.Brokers) > 0 {
		pub, err := kafka.NewSaramaPublisher(kafka.PublisherConfig{
			Brokers:  conf.KafkaConfig.Brokers,
			ClientID: conf.KafkaConfig.ClientID,
		})
		if err != nil {
			zlog.Fatal("kafka publisher init failed: " + err.Error())
		}
		audit = aiService.NewEventRelay(pub, conf.KafkaConfig.AuditTopic)
	}

	classifyPipeline, err := aiPipeline.NewClassifyPipeline(
		store, completer, availabilitySvc, broadcaster, audit,
		conf.AssistConfig.AutoAssignThreshold,
	)
	if err != nil {
		zlog.Fatal("classify pipeline init failed: " + err.Error())
	}
	draftPipeline, err := aiPipeline.NewDraftPipeline(
		store, completer, knowledgeSvc, broadcaster,
		conf.AssistConfig.DraftHistoryLimit,
		conf.AssistConfig.DraftConfidenceCap,
		conf.AssistConfig.KBBoostMax,
	)
	if err != nil {
		zlog.Fatal("draft pipeline init failed: " + err.Error())
	}
	assistLoop, err := aiPipeline.NewAssistLoop(
		completer,
		skills.NewDeskExecutor(store.Contacts, knowledgeSvc, skills.NewMemoryCRMClient()),
		conf.AssistConfig.MaxToolIterations,
	)
	if err != nil {
		zlog.Fatal("assist loop init failed: " + err.Error())
	}

	triageSvc := aiService.NewTriageService(store, classifyPipeline, draftPipeline, broadcaster)
	assistSvc := aiService.NewAssistService(assistLoop)

	deskH := deskHandler.NewDeskHandler(draftSvc, availabilitySvc)
	assistH := aiHandler.NewAssistHandler(assistSvc)
	knowledgeH := aiHandler.NewKnowledgeHandler(knowledgeSvc)
	wsH := realtimeHandler.NewWsHandler(wsHub, registrySvc, presenceSvc, conversationSvc, triageSvc)

	GE.GET("/wss", wsH.Connect)

	authed := GE.Group("/")
	authed.Use(jwtMiddleware.Auth())
	authed.GET("/auth/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"uuid":      c.GetString("uuid"),
			"tenant_id": c.GetString("tenant_id"),
			"role":      c.GetString("role"),
		})
	})
	authed.POST("/assist/chat", assistH.Chat)
	authed.POST("/kb/articles", knowledgeH.IngestArticle)
	authed.PATCH("/desk/drafts/:uuid/status", deskH.UpdateDraftStatus)
	authed.GET("/desk/teams/availability", deskH.TeamsAvailability)
}
