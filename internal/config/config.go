package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个进程的配置项。
type Config struct {
	Server Server
	AI     AI
	Agent  Agent
	Speech Speech
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServer()
	if err != nil {
		return nil, err
	}

	ai, err := loadAI()
	if err != nil {
		return nil, err
	}

	agent, err := loadAgent()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeech()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Agent: agent, Speech: speech}, nil
}

// Server describes the local control endpoint that serves the overlay
// stream, the interrupt endpoint and audio-frame ingest.
type Server struct {
	Addr string
}

func loadServer() (Server, error) {
	addr := strings.TrimSpace(os.Getenv("STEWARD_LISTEN_ADDR"))
	if addr == "" {
		addr = "127.0.0.1:8732"
	}
	if strings.Contains(addr, " ") {
		return Server{}, fmt.Errorf("invalid STEWARD_LISTEN_ADDR value: %q", addr)
	}
	if !strings.Contains(addr, ":") {
		addr = "127.0.0.1:" + addr
	}
	return Server{Addr: addr}, nil
}

// AI 描述大模型相关配置。
type AI struct {
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	ToolModel    string
	VisionModel  string
	BaseURL      string
	Region       string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	EmbedModel   string
	EmbedBaseURL string
}

// Enabled 表示是否提供了必需的密钥。
func (c AI) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。An empty modelName falls back to
// the primary conversational model.
func (c AI) NewChatModel(ctx context.Context, modelName string) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or AK/SK")
	}
	if modelName == "" {
		modelName = c.Model
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       modelName,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAI() (AI, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AI{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AI{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AI{}, err
	}

	primary := strings.TrimSpace(os.Getenv("ARK_MODEL"))

	return AI{
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        primary,
		ToolModel:    getEnvOrDefault("ARK_TOOL_MODEL", primary),
		VisionModel:  strings.TrimSpace(os.Getenv("ARK_VISION_MODEL")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		EmbedModel:   strings.TrimSpace(os.Getenv("ARK_EMBED_MODEL")),
		EmbedBaseURL: getEnvOrDefault("ARK_EMBED_BASE_URL", getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3")),
	}, nil
}

// Agent holds the conversation-loop knobs: trigger phrase, wake-word
// threshold, memory depth, timeouts and persistence paths.
type Agent struct {
	TriggerPhrase       string
	WakeThreshold       float32
	MaxMemoryDepth      int
	SummaryInterval     int
	InactivityTimeout   time.Duration
	BackendTimeout      time.Duration
	BackendRetries      int
	Voice               string
	MemoryFile          string
	BrainFile           string
	VectorDir           string
	RephraseToolResults bool
	PlayerCommand       string
}

func loadAgent() (Agent, error) {
	threshold := float32(0.5)
	if raw, err := parseOptionalFloatEnv("STEWARD_WAKE_THRESHOLD"); err != nil {
		return Agent{}, err
	} else if raw != nil {
		if *raw <= 0 || *raw > 1 {
			return Agent{}, fmt.Errorf("STEWARD_WAKE_THRESHOLD must be in (0,1], got %v", *raw)
		}
		threshold = float32(*raw)
	}

	depth := 10
	if raw, err := parseOptionalIntEnv("STEWARD_MAX_MEMORY_DEPTH"); err != nil {
		return Agent{}, err
	} else if raw != nil && *raw > 0 {
		depth = *raw
	}

	interval := 10
	if raw, err := parseOptionalIntEnv("STEWARD_SUMMARY_INTERVAL"); err != nil {
		return Agent{}, err
	} else if raw != nil && *raw > 0 {
		interval = *raw
	}

	inactivity := 30 * time.Second
	if raw, err := parseOptionalIntEnv("STEWARD_INACTIVITY_TIMEOUT"); err != nil {
		return Agent{}, err
	} else if raw != nil && *raw > 0 {
		inactivity = time.Duration(*raw) * time.Second
	}

	backendTimeout := 30 * time.Second
	if raw, err := parseOptionalIntEnv("STEWARD_BACKEND_TIMEOUT"); err != nil {
		return Agent{}, err
	} else if raw != nil && *raw > 0 {
		backendTimeout = time.Duration(*raw) * time.Second
	}

	retries := 1
	if raw, err := parseOptionalIntEnv("STEWARD_BACKEND_RETRIES"); err != nil {
		return Agent{}, err
	} else if raw != nil && *raw >= 0 {
		retries = *raw
	}

	rephrase, err := parseBoolEnv("STEWARD_REPHRASE_TOOL_RESULTS", false)
	if err != nil {
		return Agent{}, err
	}

	return Agent{
		TriggerPhrase:       getEnvOrDefault("STEWARD_TRIGGER_PHRASE", "steward"),
		WakeThreshold:       threshold,
		MaxMemoryDepth:      depth,
		SummaryInterval:     interval,
		InactivityTimeout:   inactivity,
		BackendTimeout:      backendTimeout,
		BackendRetries:      retries,
		Voice:               getEnvOrDefault("STEWARD_VOICE", "en-GB-RyanNeural"),
		MemoryFile:          getEnvOrDefault("STEWARD_MEMORY_FILE", "data/ledger.jsonl"),
		BrainFile:           getEnvOrDefault("STEWARD_BRAIN_FILE", "data/brain.txt"),
		VectorDir:           getEnvOrDefault("STEWARD_VECTOR_DIR", "data/vectors"),
		RephraseToolResults: rephrase,
		PlayerCommand:       getEnvOrDefault("STEWARD_PLAYER_COMMAND", "ffplay -nodisp -autoexit -loglevel quiet"),
	}, nil
}

// Speech 描述语音网关相关配置。声学模型是外部协作方，这里只保存连接边界
// 所需的凭证与端点。
type Speech struct {
	AppID       string
	AccessToken string
	ASRURL      string
	TTSURL      string
	WakeURL     string
	Language    string
	Timeout     time.Duration
	Enabled     bool
}

func loadSpeech() (Speech, error) {
	timeoutSeconds := 30
	if raw, err := parseOptionalIntEnv("SPEECH_TIMEOUT"); err != nil {
		return Speech{}, err
	} else if raw != nil && *raw > 0 {
		timeoutSeconds = *raw
	}

	appID := strings.TrimSpace(os.Getenv("SPEECH_APP_ID"))
	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	if accessToken == "" {
		accessToken = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
	}

	asrURL := strings.TrimSpace(os.Getenv("SPEECH_ASR_URL"))
	enabled := asrURL != "" && accessToken != ""

	return Speech{
		AppID:       appID,
		AccessToken: accessToken,
		ASRURL:      asrURL,
		TTSURL:      getEnvOrDefault("SPEECH_TTS_URL", ""),
		WakeURL:     getEnvOrDefault("SPEECH_WAKE_URL", ""),
		Language:    getEnvOrDefault("SPEECH_LANGUAGE", "en-US"),
		Timeout:     time.Duration(timeoutSeconds) * time.Second,
		Enabled:     enabled,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
