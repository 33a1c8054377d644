package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"variation-canvas-server/modules/common/fallback"
)

// Config 구조체 - 모든 환경변수를 담음
type Config struct {
	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string
	SupabaseBucket         string
	SignedURLTTLSeconds    int

	// Gemini API
	GeminiAPIKey      string
	GeminiImageModel  string
	GeminiVisionModel string
	GeminiPromptModel string

	// Video API (외부 렌더러)
	VideoModel       string
	VideoAPIEndpoint string
	VideoAPIKey      string

	// Variation Engine
	EnableStyleAnalysis  bool
	PreviewPixelSize     int // pixelated preview 저해상도 기준 (px)
	MaxRenderLongEdge    int // 생성 이미지 긴 변 최대값 (px)
	MaxConcurrentRenders int // worker 동시 렌더 수

	// Server
	Port string
}

var globalConfig *Config

// LoadConfig - 환경변수 로드
func LoadConfig() (*Config, error) {
	// .env 파일 로드 (있으면)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	globalConfig = &Config{
		// Redis
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   getEnvBool("REDIS_USE_TLS", true),

		// Supabase
		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),
		SupabaseBucket:         getEnv("SUPABASE_BUCKET", "attachments"),
		SignedURLTTLSeconds:    getEnvInt("SIGNED_URL_TTL_SECONDS", 3600),

		// Gemini API
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-2.5-flash"),
		GeminiPromptModel: getEnv("GEMINI_PROMPT_MODEL", "gemini-2.5-flash"),

		// Video API
		VideoModel:       getEnv("VIDEO_MODEL", "sora-video"),
		VideoAPIEndpoint: getEnv("VIDEO_API_ENDPOINT", ""),
		VideoAPIKey:      getEnv("VIDEO_API_KEY", ""),

		// Variation Engine
		EnableStyleAnalysis:  getEnvBool("ENABLE_STYLE_ANALYSIS", true),
		PreviewPixelSize:     getEnvInt("PREVIEW_PIXEL_SIZE", 32),
		MaxRenderLongEdge:    getEnvInt("MAX_RENDER_LONG_EDGE", 1536),
		MaxConcurrentRenders: getEnvInt("MAX_CONCURRENT_RENDERS", 2),

		// Server
		Port: getEnv("PORT", "8080"),
	}

	// 필수 환경변수 검증
	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	log.Printf("   Supabase: %s (bucket: %s)", globalConfig.SupabaseURL, globalConfig.SupabaseBucket)
	log.Printf("   Gemini: image=%s, vision=%s", globalConfig.GeminiImageModel, globalConfig.GeminiVisionModel)
	log.Printf("   Style analysis: %v", globalConfig.EnableStyleAnalysis)

	return globalConfig, nil
}

// GetConfig - 로드된 설정 가져오기
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

// SetConfigForTest - 테스트에서 설정 직접 주입
func SetConfigForTest(cfg *Config) {
	globalConfig = cfg
}

// validate - 필수 환경변수 검증
func (c *Config) validate() error {
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	return nil
}

// getEnv - 환경변수 가져오기 (기본값 지원, 공백은 미설정 취급)
func getEnv(key, defaultValue string) string {
	return fallback.SafeString(os.Getenv(key), defaultValue)
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt - 양수만 유효. 0/음수/파싱 불가는 기본값으로.
func getEnvInt(key string, defaultValue int) int {
	return fallback.SafeInt(os.Getenv(key), defaultValue)
}

// GetRedisAddr - Redis 연결 문자열 생성
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
