package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/studyabroad-api/pkg/config"
)

// Key namespaces shared by the services that read through the cache.
const (
	NamespaceCatalog     = "catalog"
	NamespaceDashboard   = "dashboard"
	NamespacePermissions = "permissions"
)

// NewRedis returns a configured Redis client.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}

// Key joins a namespace and parts with ':'.
func Key(namespace string, parts ...string) string {
	return strings.Join(append([]string{namespace}, parts...), ":")
}

// Pattern matches every key under namespace.
func Pattern(namespace string) string {
	return namespace + ":*"
}

// QueryKey derives a stable key from a set of query parameters.
// Empty values are skipped and parameter order does not matter.
func QueryKey(namespace, resource string, params map[string]string) string {
	names := make([]string, 0, len(params))
	for name, value := range params {
		if value != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(params[name])
		b.WriteByte('&')
	}
	sum := sha1.Sum([]byte(b.String()))
	return Key(namespace, resource, hex.EncodeToString(sum[:8]))
}
