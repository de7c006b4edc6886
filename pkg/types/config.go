package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "smartlic/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// OvertimeConfig holds the thresholds for the reassurance copy shown when a
// search runs past its estimate. The tiers are UX tuning values, not contract.
type OvertimeConfig struct {
	// AlmostDone is the overrun below which the "quase pronto" message shows.
	AlmostDone time.Duration `json:"almost_done" yaml:"almost_done"`

	// StillWorking is the overrun below which the "ainda trabalhando" message shows.
	StillWorking time.Duration `json:"still_working" yaml:"still_working"`

	// SourceAware is the overrun below which the source-count message shows.
	SourceAware time.Duration `json:"source_aware" yaml:"source_aware"`

	// CancelFactor is the multiple of the estimate past which the
	// "you may cancel" message shows (default 2.0).
	CancelFactor float64 `json:"cancel_factor" yaml:"cancel_factor"`
}

// BuscaConfig holds settings for search execution.
type BuscaConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the backend base URL (e.g. "https://api.smartlic.com.br").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// RetryCountdown is the countdown, in whole seconds, shown before a
	// transient failure is retried automatically (default 10).
	RetryCountdown int `json:"retry_countdown" yaml:"retry_countdown"`

	// CountdownTick is the interval between countdown decrements (default 1s).
	CountdownTick time.Duration `json:"countdown_tick" yaml:"countdown_tick"`

	// Overtime holds the overrun-message thresholds.
	Overtime OvertimeConfig `json:"overtime" yaml:"overtime"`
}

// ProgressConfig holds settings for the live progress channel.
type ProgressConfig struct {
	// RetryDelay is the wait before the single reconnect attempt (default 2s).
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`

	// MaxRetries is the number of reconnect attempts after the first
	// transport error (default 1). A policy constant, kept configurable.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// PollInterval is the snapshot re-fetch interval for the polling
	// fallback transport (default 3s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

// SetoresConfig holds settings for the sector reference cache.
type SetoresConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the backend base URL for the sector list endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// TTL is the cache freshness window (default 5m).
	TTL time.Duration `json:"ttl" yaml:"ttl"`

	// FetchAttempts is the total number of fetch attempts on load,
	// initial try included (default 3).
	FetchAttempts int `json:"fetch_attempts" yaml:"fetch_attempts"`

	// BackoffBase is the delay before the first retry; it doubles per
	// attempt (default 1s, so 1s then 2s).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// RevalidateInterval is the delay between background revalidation
	// attempts while serving stale data (default 30s).
	RevalidateInterval time.Duration `json:"revalidate_interval" yaml:"revalidate_interval"`

	// RevalidateMax caps background revalidation attempts; after this many
	// consecutive failures revalidation stops for the process lifetime
	// (default 5). A policy constant, kept configurable.
	RevalidateMax int `json:"revalidate_max" yaml:"revalidate_max"`

	// CachePath is the file where the cache entry is persisted.
	CachePath string `json:"cache_path" yaml:"cache_path"`
}

// HealthConfig holds settings for the backend status monitor.
type HealthConfig struct {
	HTTPConfig `yaml:",inline"`

	// URL is the health endpoint (e.g. "https://api.smartlic.com.br/health").
	URL string `json:"url" yaml:"url"`

	// PollInterval is the steady-state poll interval (default 30s).
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`

	// RecoveringFor is how long the recovering state is shown after a
	// success that follows an offline state (default 3s).
	RecoveringFor time.Duration `json:"recovering_for" yaml:"recovering_for"`
}

// RelayConfig holds settings for the local progress relay server.
type RelayConfig struct {
	// Listen is the local listen address (default "127.0.0.1:8787").
	Listen string `json:"listen" yaml:"listen"`

	// Upstream is the backend base URL the relay proxies to.
	Upstream string `json:"upstream" yaml:"upstream"`
}

// TrackConfig holds settings for the usage tracker.
type TrackConfig struct {
	// Enabled turns event emission on. Off by default.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Endpoint is the ingestion URL events are posted to.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Token authenticates event posts.
	Token string `json:"token,omitempty" yaml:"token,omitempty"`

	// Buffer is the in-memory event queue size; events beyond it are
	// dropped (default 64).
	Buffer int `json:"buffer" yaml:"buffer"`
}

// SessionConfig holds settings for authenticated REST calls.
type SessionConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the backend base URL for billing and session endpoints.
	BaseURL string `json:"base_url" yaml:"base_url"`
}

// SalvasConfig holds settings for the saved-search store.
type SalvasConfig struct {
	// Path is the SQLite database file (default "smartlic.db").
	Path string `json:"path" yaml:"path"`

	// Max is the saved-search capacity (default 10).
	Max int `json:"max" yaml:"max"`
}

// ClientConfig groups all component configurations.
type ClientConfig struct {
	Busca    BuscaConfig    `json:"busca" yaml:"busca"`
	Progress ProgressConfig `json:"progress" yaml:"progress"`
	Setores  SetoresConfig  `json:"setores" yaml:"setores"`
	Health   HealthConfig   `json:"health" yaml:"health"`
	Relay    RelayConfig    `json:"relay" yaml:"relay"`
	Track    TrackConfig    `json:"track" yaml:"track"`
	Session  SessionConfig  `json:"session" yaml:"session"`
	Salvas   SalvasConfig   `json:"salvas" yaml:"salvas"`
}

// DefaultClientConfig returns the configuration defaults used when a value is
// absent from the config file and environment.
func DefaultClientConfig() ClientConfig {
	httpDefaults := HTTPConfig{
		Timeout:   30 * time.Second,
		UserAgent: "smartlic/0.1",
	}
	return ClientConfig{
		Busca: BuscaConfig{
			HTTPConfig:     HTTPConfig{Timeout: 120 * time.Second, UserAgent: httpDefaults.UserAgent},
			RetryCountdown: 10,
			CountdownTick:  time.Second,
			Overtime: OvertimeConfig{
				AlmostDone:   15 * time.Second,
				StillWorking: 45 * time.Second,
				SourceAware:  90 * time.Second,
				CancelFactor: 2.0,
			},
		},
		Progress: ProgressConfig{
			RetryDelay:   2 * time.Second,
			MaxRetries:   1,
			PollInterval: 3 * time.Second,
		},
		Setores: SetoresConfig{
			HTTPConfig:         httpDefaults,
			TTL:                5 * time.Minute,
			FetchAttempts:      3,
			BackoffBase:        time.Second,
			RevalidateInterval: 30 * time.Second,
			RevalidateMax:      5,
			CachePath:          "setores-cache.json",
		},
		Health: HealthConfig{
			HTTPConfig:    HTTPConfig{Timeout: 10 * time.Second, UserAgent: httpDefaults.UserAgent},
			PollInterval:  30 * time.Second,
			RecoveringFor: 3 * time.Second,
		},
		Relay: RelayConfig{
			Listen: "127.0.0.1:8787",
		},
		Track: TrackConfig{
			Buffer: 64,
		},
		Session: SessionConfig{
			HTTPConfig: httpDefaults,
		},
		Salvas: SalvasConfig{
			Path: "smartlic.db",
			Max:  10,
		},
	}
}
