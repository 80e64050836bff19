package config

import (
	"log"

	"github.com/BurntSushi/toml"
)

type MainConfig struct {
	AppName string `toml:"appName"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

type MysqlConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	DatabaseName string `toml:"databaseName"`
}

type LogConfig struct {
	LogPath string `toml:"logPath"`
}

type JwtConfig struct {
	Key         string `toml:"key"`
	ExpireHours int    `toml:"expireHours"`
	Issuer      string `toml:"issuer"`
}

type RedisConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Password     string `toml:"password"`
	DB           int    `toml:"db"`
	PoolSize     int    `toml:"poolSize"`
	MinIdleConns int    `toml:"minIdleConns"`
}

type MilvusConfig struct {
	Address        string `toml:"address"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	DBName         string `toml:"dbName"`
	CollectionName string `toml:"collectionName"`
	VectorDim      int    `toml:"vectorDim"`
	MetricType     string `toml:"metricType"`
}

type KafkaConfig struct {
	Brokers    []string `toml:"brokers"`
	ClientID   string   `toml:"clientID"`
	AuditTopic string   `toml:"auditTopic"`
}

type AIChatModelConfig struct {
	Provider        string `toml:"provider"`
	APIKey          string `toml:"apiKey"`
	AccessKey       string `toml:"accessKey"`
	SecretKey       string `toml:"secretKey"`
	BaseURL         string `toml:"baseURL"`
	Region          string `toml:"region"`
	Model           string `toml:"model"`
	TimeoutSeconds  int    `toml:"timeoutSeconds"`
	RetryTimes      int    `toml:"retryTimes"`
	ByAzure         bool   `toml:"byAzure"`
	AzureAPIVersion string `toml:"azureApiVersion"`
}

type AIEmbeddingConfig struct {
	Provider       string `toml:"provider"`
	APIKey         string `toml:"apiKey"`
	BaseURL        string `toml:"baseURL"`
	Model          string `toml:"model"`
	Dimensions     int    `toml:"dimensions"`
	TimeoutSeconds int    `toml:"timeoutSeconds"`
}

type AIConfig struct {
	ChatModel AIChatModelConfig `toml:"chatModel"`
	Embedding AIEmbeddingConfig `toml:"embedding"`
}

// AssistConfig AI 决策层的阈值参数。
// 这些默认值来自线上运行经验，按配置保留，不在代码里推导。
type AssistConfig struct {
	AutoAssignThreshold     float64 `toml:"autoAssignThreshold"`
	DraftConfidenceCap      float64 `toml:"draftConfidenceCap"`
	KBBoostMax              float64 `toml:"kbBoostMax"`
	MaxToolIterations       int     `toml:"maxToolIterations"`
	TypingTTLSeconds        int     `toml:"typingTTLSeconds"`
	CompleterTimeoutSeconds int     `toml:"completerTimeoutSeconds"`
	DraftHistoryLimit       int     `toml:"draftHistoryLimit"`
}

type Config struct {
	MainConfig   `toml:"mainConfig"`
	MysqlConfig  `toml:"mysqlConfig"`
	JwtConfig    `toml:"jwtConfig"`
	RedisConfig  `toml:"redisConfig"`
	MilvusConfig `toml:"milvusConfig"`
	KafkaConfig  `toml:"kafkaConfig"`
	AIConfig     `toml:"aiConfig"`
	AssistConfig `toml:"assistConfig"`
	LogConfig    `toml:"logConfig"`
}

var config *Config

func LoadConfig() error {
	configPath := "configs/config_local.toml"
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		log.Printf("failed to load config file: %v, falling back to defaults", err)
		return err
	}
	return nil
}

func GetConfig() *Config {
	if config == nil {
		config = defaultConfig()
		_ = LoadConfig()
		applyDefaults(config)
	}
	return config
}

func defaultConfig() *Config {
	return &Config{
		MainConfig: MainConfig{
			AppName: "DeskLink",
			Host:    "0.0.0.0",
			Port:    8000,
		},
	}
}

func applyDefaults(c *Config) {
	a := &c.AssistConfig
	if a.AutoAssignThreshold <= 0 {
		a.AutoAssignThreshold = 0.85
	}
	if a.DraftConfidenceCap <= 0 {
		a.DraftConfidenceCap = 0.95
	}
	if a.KBBoostMax <= 0 {
		a.KBBoostMax = 0.2
	}
	if a.MaxToolIterations <= 0 {
		a.MaxToolIterations = 5
	}
	if a.TypingTTLSeconds <= 0 {
		a.TypingTTLSeconds = 5
	}
	if a.CompleterTimeoutSeconds <= 0 {
		a.CompleterTimeoutSeconds = 30
	}
	if a.DraftHistoryLimit <= 0 {
		a.DraftHistoryLimit = 5
	}
}
