package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	ManifestURL   string
	DecompilerCmd string
	IndexWorkers  int
	SettingsFile  string
	JavadocURL    string

	JarCache JarCacheConfig
}

// JarCacheConfig picks where downloaded jars are kept. S3 wins over
// Postgres, Postgres over a directory; nothing configured means memory.
type JarCacheConfig struct {
	Dir         string
	PostgresDSN string
	S3          S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs reads .env, the environment and then args. Flags override the
// environment.
func LoadArgs(args []string) (*Config, error) {
	_ = godotenv.Load()

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	manifest := fs.String("manifest-url", strings.TrimSpace(os.Getenv("MCSRC_MANIFEST_URL")), "version manifest URL")
	decompiler := fs.String("decompiler", strings.TrimSpace(os.Getenv("MCSRC_DECOMPILER_CMD")), "external decompiler command line")
	workers := fs.Int("index-workers", envInt("MCSRC_INDEX_WORKERS", 0), "jar index workers (0 = cpu count)")
	settingsFile := fs.String("settings", firstNonEmpty(strings.TrimSpace(os.Getenv("MCSRC_SETTINGS_FILE")), "tmp/settings.toml"), "settings file")
	cacheDir := fs.String("jar-cache-dir", strings.TrimSpace(os.Getenv("MCSRC_JAR_CACHE_DIR")), "directory for downloaded jars")
	javadocURL := fs.String("javadoc-url", strings.TrimSpace(os.Getenv("MCSRC_JAVADOC_URL")), "javadoc editor API base URL")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	return &Config{
		Port:          *port,
		Env:           env,
		ManifestURL:   *manifest,
		DecompilerCmd: *decompiler,
		IndexWorkers:  *workers,
		SettingsFile:  *settingsFile,
		JavadocURL:    *javadocURL,
		JarCache: JarCacheConfig{
			Dir:         *cacheDir,
			PostgresDSN: strings.TrimSpace(os.Getenv("MCSRC_JAR_CACHE_PG_DSN")),
			S3:          loadS3Config(env),
		},
	}, nil
}

func loadS3Config(env string) S3Config {
	return S3Config{
		Endpoint:  strings.TrimSpace(os.Getenv("JAR_S3_ENDPOINT")),
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("JAR_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("JAR_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("JAR_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("JAR_S3_BUCKET")), "mcsrc-jars"),
		UseSSL:    resolveUseSSL(env),
	}
}

func resolveUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("JAR_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
