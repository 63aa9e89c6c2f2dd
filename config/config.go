package config

import "time"

// Config 聊天机器人完整配置。
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Qdrant 向量索引配置
	Qdrant QdrantConfig `yaml:"qdrant" env:"QDRANT"`

	// LLM 语言模型配置
	LLM LLMConfig `yaml:"llm" env:"LLM"`

	// Embedding 嵌入模型配置
	Embedding EmbeddingConfig `yaml:"embedding" env:"EMBEDDING"`

	// WebSearch 网络搜索配置
	WebSearch WebSearchConfig `yaml:"web_search" env:"WEB_SEARCH"`

	// Retrieval 混合检索配置
	Retrieval RetrievalConfig `yaml:"retrieval" env:"RETRIEVAL"`

	// Context 上下文组装配置
	Context ContextConfig `yaml:"context" env:"CONTEXT"`

	// History 对话历史存储配置
	History HistoryConfig `yaml:"history" env:"HISTORY"`

	// Redis 缓存配置（网络搜索结果缓存，可选）
	Redis RedisConfig `yaml:"redis" env:"REDIS"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	// 监听地址
	Host string `yaml:"host" env:"HOST"`
	// HTTP 端口
	Port int `yaml:"port" env:"PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// QdrantConfig Qdrant 向量索引配置
type QdrantConfig struct {
	// REST 地址
	URL string `yaml:"url" env:"URL"`
	// API Key（可选）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 集合名
	Collection string `yaml:"collection" env:"COLLECTION"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 自动建集合
	AutoCreateCollection bool `yaml:"auto_create_collection" env:"AUTO_CREATE_COLLECTION"`
}

// LLMConfig 语言模型配置（OpenAI 兼容端点，默认 OpenRouter）
type LLMConfig struct {
	// 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 模型名
	Model string `yaml:"model" env:"MODEL"`
	// 最大生成 Token 数
	MaxTokens int `yaml:"max_tokens" env:"MAX_TOKENS"`
	// 温度参数
	Temperature float64 `yaml:"temperature" env:"TEMPERATURE"`
	// 请求超时（模型是每个请求唯一的长尾操作）
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// EmbeddingConfig 嵌入模型配置
type EmbeddingConfig struct {
	// 基础 URL
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 模型名
	Model string `yaml:"model" env:"MODEL"`
	// 向量维度
	Dimensions int `yaml:"dimensions" env:"DIMENSIONS"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// WebSearchConfig 网络搜索配置
type WebSearchConfig struct {
	// 提供商: brave, serper
	Provider string `yaml:"provider" env:"PROVIDER"`
	// API Key
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 单次搜索最大结果数
	MaxResults int `yaml:"max_results" env:"MAX_RESULTS"`
	// 搜索超时，超时降级而非失败
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
	// 知识库置信度下限，低于此值触发搜索
	MinConfidence float64 `yaml:"min_confidence" env:"MIN_CONFIDENCE"`
	// 结果缓存 TTL，0 关闭缓存
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`
	// 每分钟最大外部调用数
	RequestsPerMinute int `yaml:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
}

// RetrievalConfig 混合检索配置
type RetrievalConfig struct {
	// 向量检索 Top-K
	TopK int `yaml:"top_k" env:"TOP_K"`
	// 图扩展深度，0 关闭扩展
	ExpandDepth int `yaml:"expand_depth" env:"EXPAND_DEPTH"`
	// 图扩展最多新增的 chunk 数
	ExpandLimit int `yaml:"expand_limit" env:"EXPAND_LIMIT"`
	// 向量分权重 α（α > β，图扩展只补充不覆盖）
	VectorWeight float64 `yaml:"vector_weight" env:"VECTOR_WEIGHT"`
	// 图分权重 β
	GraphWeight float64 `yaml:"graph_weight" env:"GRAPH_WEIGHT"`
	// 逐跳衰减因子
	Decay float64 `yaml:"decay" env:"DECAY"`
	// 构图时建边的相似度阈值
	LinkThreshold float64 `yaml:"link_threshold" env:"LINK_THRESHOLD"`
	// 扩展候选无法重算相似度时的兜底向量分
	DefaultVectorScore float64 `yaml:"default_vector_score" env:"DEFAULT_VECTOR_SCORE"`
	// 向量索引查询超时
	VectorTimeout time.Duration `yaml:"vector_timeout" env:"VECTOR_TIMEOUT"`
}

// ContextConfig 上下文组装配置
type ContextConfig struct {
	// 上下文 Token 预算
	Budget int `yaml:"budget" env:"BUDGET"`
	// 引用来源上限
	MaxSources int `yaml:"max_sources" env:"MAX_SOURCES"`
	// tiktoken 模型名，失败时回退字符估算
	TokenizerModel string `yaml:"tokenizer_model" env:"TOKENIZER_MODEL"`
	// 注入提示词的历史轮数上限
	HistoryLimit int `yaml:"history_limit" env:"HISTORY_LIMIT"`
}

// HistoryConfig 对话历史存储配置
type HistoryConfig struct {
	// SQLite 文件路径，":memory:" 为内存库
	Path string `yaml:"path" env:"PATH"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// 地址，留空则网络搜索缓存退回进程内缓存
	Addr string `yaml:"addr" env:"ADDR"`
	// 密码
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库编号
	DB int `yaml:"db" env:"DB"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Qdrant: QdrantConfig{
			URL:                  "http://localhost:6333",
			Collection:           "documents",
			Timeout:              5 * time.Second,
			AutoCreateCollection: true,
		},
		LLM: LLMConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "openai/gpt-3.5-turbo",
			MaxTokens:   1000,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Embedding: EmbeddingConfig{
			BaseURL:    "http://localhost:8080/v1",
			Model:      "all-MiniLM-L6-v2",
			Dimensions: 384,
			Timeout:    15 * time.Second,
		},
		WebSearch: WebSearchConfig{
			Provider:          "brave",
			MaxResults:        5,
			Timeout:           10 * time.Second,
			MinConfidence:     0.35,
			CacheTTL:          30 * time.Minute,
			RequestsPerMinute: 30,
		},
		Retrieval: RetrievalConfig{
			TopK:               5,
			ExpandDepth:        2,
			ExpandLimit:        10,
			VectorWeight:       0.7,
			GraphWeight:        0.3,
			Decay:              0.5,
			LinkThreshold:      0.7,
			DefaultVectorScore: 0.25,
			VectorTimeout:      5 * time.Second,
		},
		Context: ContextConfig{
			Budget:         2048,
			MaxSources:     8,
			TokenizerModel: "gpt-3.5-turbo",
			HistoryLimit:   10,
		},
		History: HistoryConfig{
			Path: "chatbot.db",
		},
		Redis: RedisConfig{},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
