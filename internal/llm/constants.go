// In file: internal/llm/constants.go
package llm

import "time"

// Constants shared across the clients in this package.
const (
	defaultTimeout   = 120 * time.Second
	defaultMaxTokens = 4096

	embeddingCachePrefix = "embedding:"
	embeddingCacheTTL    = 7 * 24 * time.Hour

	DefaultChatModel      = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)
