package api

// bearerAuth marks an operation as requiring an access token.
var bearerAuth = []map[string][]string{{"bearer": {}}}

// Cache-Control header values.
const (
	// CacheNoStore keeps shared pages out of intermediary caches.
	CacheNoStore = "no-store"
)
