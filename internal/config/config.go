package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DatabaseURL string // postgres://... 形式に揃える

	JWTSecret  string        // JWT署名シークレット
	JWTTTL     time.Duration // アクセストークンの有効期限（24h）
	BcryptCost int

	ShippingFee    int64 // 配送料（VND）
	MinOrderAmount int64 // 最低注文金額（VND）

	KafkaBrokers    []string // 空なら注文イベントを送らない
	KafkaOrderTopic string

	OTLPEndpoint   string // 空ならトレースを出さない
	ServiceName    string
	ServiceVersion string
}

// .envがあれば読み込む（無くてもエラーにしない）
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Loadは環境変数
func Load() (Config, error) {
	jwtTTL, err := durationOr("JWT_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	bcryptCost, err := intOr("BCRYPT_COST", 12)
	if err != nil {
		return Config{}, err
	}
	shippingFee, err := int64Or("SHIPPING_FEE", 30000)
	if err != nil {
		return Config{}, err
	}
	minOrder, err := int64Or("MIN_ORDER_AMOUNT", 50000)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:  getenv("PORT", "8080"),
		GoEnv: getenv("GO_ENV", "dev"),

		DatabaseURL: DatabaseURLFromEnv(),

		JWTSecret:  os.Getenv("JWT_SECRET"),
		JWTTTL:     jwtTTL,
		BcryptCost: bcryptCost,

		ShippingFee:    shippingFee,
		MinOrderAmount: minOrder,

		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic: getenv("KAFKA_ORDER_TOPIC", "order.events"),

		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:    getenv("SERVICE_NAME", "fooddelivery-api"),
		ServiceVersion: getenv("SERVICE_VERSION", "dev"),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL or POSTGRES_* is required")
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if cfg.ShippingFee < 0 {
		return Config{}, fmt.Errorf("SHIPPING_FEE must be >= 0")
	}
	if cfg.MinOrderAmount < 0 {
		return Config{}, fmt.Errorf("MIN_ORDER_AMOUNT must be >= 0")
	}

	return cfg, nil
}

func (c Config) IsProd() bool {
	return c.GoEnv == "prod"
}

// DATABASE_URL があれば最優先で使う（無ければPOSTGRES_*から組み立て）
func DatabaseURLFromEnv() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	port := getenv("POSTGRES_PORT", "5432")
	user := getenv("POSTGRES_USER", "postgres")
	pass := getenv("POSTGRES_PASSWORD", "postgres")
	name := getenv("POSTGRES_DB", "fooddelivery")
	ssl := getenv("POSTGRES_SSLMODE", "disable")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=" + url.QueryEscape(ssl),
	}
	return u.String()
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func intOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func int64Or(key string, def int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	out := make([]string, 0)
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
