package app

import (
	"fmt"
	"log"
	"strings"

	"mcsrc/internal/gateway/config"
	"mcsrc/internal/jarstore"
)

// Stores is the download cache and whatever must be closed with it.
type Stores struct {
	jars  *jarstore.CachedStore
	close func() error
}

func initJarStores(cfg *config.Config) (*Stores, error) {
	origin, closer, label, err := chooseJarOrigin(cfg)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, fmt.Errorf("jar origin store is nil")
	}
	log.Printf("jar store: using %s", label)
	if closer == nil {
		closer = func() error { return nil }
	}
	return &Stores{
		jars:  jarstore.NewCachedStore(origin, jarstore.DefaultCacheConfig()),
		close: closer,
	}, nil
}

// chooseJarOrigin prefers object storage, then Postgres, then a local
// directory. Without any of them jars live in memory for the process.
func chooseJarOrigin(cfg *config.Config) (jarstore.Store, func() error, string, error) {
	c := cfg.JarCache
	s3Cfg := jarstore.S3Config{
		Endpoint:  c.S3.Endpoint,
		Region:    c.S3.Region,
		AccessKey: c.S3.AccessKey,
		SecretKey: c.S3.SecretKey,
		Bucket:    c.S3.Bucket,
		UseSSL:    c.S3.UseSSL,
	}
	if s3Cfg.CanUse() {
		s3Store, err := jarstore.NewS3Store(s3Cfg)
		if err != nil {
			return nil, nil, "", fmt.Errorf("failed to initialize jar s3 store: %w", err)
		}
		return s3Store, nil, fmt.Sprintf("s3 bucket=%s endpoint=%s", s3Cfg.Bucket, s3Cfg.Endpoint), nil
	}
	if strings.TrimSpace(c.S3.Endpoint) != "" {
		log.Printf("jar store: s3 config incomplete, falling back")
	}
	if dsn := strings.TrimSpace(c.PostgresDSN); dsn != "" {
		pg, err := jarstore.OpenPostgres(dsn)
		if err != nil {
			return nil, nil, "", err
		}
		return pg, pg.Close, "postgres", nil
	}
	if dir := strings.TrimSpace(c.Dir); dir != "" {
		return jarstore.NewDiskStore(dir), nil, "disk dir=" + dir, nil
	}
	return jarstore.NewMemoryStore(), nil, "in-memory", nil
}
