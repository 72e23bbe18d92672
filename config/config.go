package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Prismic PrismicConfig `yaml:"prismic"`
	Site    SiteConfig    `yaml:"site"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Kafka   KafkaConfig   `yaml:"kafka"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PrismicConfig 는 콘텐츠 저장소(Prismic) 접속 정보다.
// AccessToken 과 WebhookSecret 은 config.yaml 대신 .env 로 주입하는 것을 권장한다.
type PrismicConfig struct {
	Endpoint      string `yaml:"endpoint"`
	AccessToken   string `yaml:"access_token"`
	WebhookSecret string `yaml:"webhook_secret"`
	// PageSize 는 documents/search 한 번에 받아오는 결과 수다. (Prismic 최대 100)
	PageSize int `yaml:"page_size"`
	// Paginate 가 false 면 경로 수집 시 첫 페이지만 사용한다.
	Paginate *bool `yaml:"paginate"`
	// TimeoutSeconds 는 Prismic 호출 1회당 타임아웃이다.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type SiteConfig struct {
	Title    string `yaml:"title"`
	Addr     string `yaml:"addr"`
	Locale   string `yaml:"locale"`
	Timezone string `yaml:"timezone"`
	// OutputDir 는 cmd/build 가 정적 파일을 쓰는 디렉터리다.
	OutputDir string `yaml:"output_dir"`
	// PrerenderConcurrency 는 페이지를 동시에 생성하는 최대 개수다.
	PrerenderConcurrency int `yaml:"prerender_concurrency"`
	// AllowedOrigins 는 /api 경로의 CORS 허용 origin 목록이다.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type MongoConfig struct {
	URI    string `yaml:"uri"`
	DBName string `yaml:"db_name"`
}

type KafkaConfig struct {
	Enabled          bool   `yaml:"enabled"`
	BootstrapServers string `yaml:"bootstrap_servers"`
	GroupID          string `yaml:"group_id"`
	Partitions       int    `yaml:"partitions"`
}

// PaginateEnabled 는 Paginate 가 지정되지 않았으면 true 를 반환한다.
func (p PrismicConfig) PaginateEnabled() bool {
	return p.Paginate == nil || *p.Paginate
}

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	c, err := Load(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}
	config = c
}

// Load 는 주어진 경로의 yaml 파일을 읽고 환경변수 override 와 기본값을 적용한다.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var c AppConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnv(&c)
	applyDefaults(&c)
	return &c, nil
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

func applyEnv(c *AppConfig) {
	overrides := []struct {
		key string
		dst *string
	}{
		{"PRISMIC_API_ENDPOINT", &c.Prismic.Endpoint},
		{"PRISMIC_ACCESS_TOKEN", &c.Prismic.AccessToken},
		{"PRISMIC_WEBHOOK_SECRET", &c.Prismic.WebhookSecret},
		{"MONGO_URI", &c.Mongo.URI},
		{"KAFKA_BOOTSTRAP_SERVERS", &c.Kafka.BootstrapServers},
		{"KAFKA_GROUP_ID", &c.Kafka.GroupID},
		{"SITE_ADDR", &c.Site.Addr},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.key)); v != "" {
			*o.dst = v
		}
	}
}

func applyDefaults(c *AppConfig) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Prismic.PageSize <= 0 || c.Prismic.PageSize > 100 {
		c.Prismic.PageSize = 100
	}
	if c.Prismic.TimeoutSeconds <= 0 {
		c.Prismic.TimeoutSeconds = 10
	}
	if c.Site.Title == "" {
		c.Site.Title = "spacetraveling"
	}
	if c.Site.Addr == "" {
		c.Site.Addr = ":3000"
	}
	if c.Site.Locale == "" {
		c.Site.Locale = "pt-BR"
	}
	if c.Site.Timezone == "" {
		c.Site.Timezone = "UTC"
	}
	if c.Site.OutputDir == "" {
		c.Site.OutputDir = "out"
	}
	if c.Site.PrerenderConcurrency <= 0 {
		c.Site.PrerenderConcurrency = 4
	}
	if c.Mongo.DBName == "" {
		c.Mongo.DBName = "spacetraveling"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "spacetraveling-revalidator"
	}
	if c.Kafka.Partitions <= 0 {
		c.Kafka.Partitions = 3
	}
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
