package config

// Config is the full castfeed configuration.
//
// The file may be JSON or YAML; YAML is coerced to JSON before strict
// decoding so unknown keys are rejected in both formats.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Webhook  WebhookConfig  `json:"webhook"`
	Telegram TelegramConfig `json:"telegram"`
	Identity IdentityConfig `json:"identity"`
	Logging  LoggingConfig  `json:"logging"`
	Notifier NotifierConfig `json:"notifier,omitempty"`
	Cache    CacheConfig    `json:"cache,omitempty"`
}

type ServerConfig struct {
	// Addr is the listen address for the webhook HTTP server (default ":8080").
	Addr string `json:"addr,omitempty"`
	// Path is the webhook POST path (default "/webhook").
	Path string `json:"path,omitempty"`
}

// WebhookConfig controls inbound payload authentication.
//
// If Secret is empty, signature verification always passes. This is a
// documented permissive mode for environments that have not provisioned a
// shared secret yet, not an oversight.
type WebhookConfig struct {
	Secret string `json:"secret,omitempty"`
	// SignatureHeader overrides the header carrying the hex HMAC-SHA512
	// digest (default "X-Provider-Signature").
	SignatureHeader string `json:"signature_header,omitempty"`
	// DedupSize bounds the recently-seen event id window (default 5000).
	DedupSize int `json:"dedup_size,omitempty"`
}

type TelegramConfig struct {
	Token    string         `json:"token"`
	Channels ChannelsConfig `json:"channels"`
}

// ChannelsConfig maps event categories to Telegram chats.
//
// Activity and Trades fall back to Follows when unset. A category whose
// resolved chat id is 0 is silently skipped (partial configuration is
// supported, not an error).
type ChannelsConfig struct {
	Follows  int64 `json:"follows,omitempty"`
	Activity int64 `json:"activity,omitempty"`
	Trades   int64 `json:"trades,omitempty"`
	// ThreadID targets a forum topic inside the chats (0 = none).
	ThreadID int `json:"thread_id,omitempty"`
}

type IdentityConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key,omitempty"`
	// Timeout is a Go duration string for the lookup HTTP client (default "8s").
	Timeout string `json:"timeout,omitempty"`
	// CacheTTL is a Go duration string for profile snapshots (default "10m").
	CacheTTL string `json:"cache_ttl,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// NotifierConfig controls the async delivery pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// If the whole section is omitted, defaults apply.
type NotifierConfig struct {
	Workers       int    `json:"workers,omitempty"`
	QueueSize     int    `json:"queue_size,omitempty"`
	RatePerSec    int    `json:"rate_per_sec,omitempty"`
	RetryMax      int    `json:"retry_max,omitempty"`
	RetryBase     string `json:"retry_base,omitempty"`
	RetryMaxDelay string `json:"retry_max_delay,omitempty"`
}

type CacheConfig struct {
	// Size bounds the profile cache entry count (default 4096).
	Size int `json:"size,omitempty"`
}
