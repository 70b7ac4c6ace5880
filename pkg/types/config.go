package types

// ImageConfig holds defaults for the image adapter.
type ImageConfig struct {
	// Quality is the JPEG quality used when an image is re-encoded (1-100, default 95).
	Quality int `json:"quality" yaml:"quality" mapstructure:"quality"`

	// Optimize selects maximum compression for lossless formats.
	Optimize bool `json:"optimize" yaml:"optimize" mapstructure:"optimize"`

	// IncludeMIME wraps encoded output in a data URL (data:image/png;base64,...).
	IncludeMIME bool `json:"include_mime" yaml:"include_mime" mapstructure:"include_mime"`
}

// PDFConfig holds defaults for the PDF adapter.
type PDFConfig struct {
	// Strict runs full structural validation in addition to the %PDF- signature check.
	Strict bool `json:"strict" yaml:"strict" mapstructure:"strict"`

	// IncludeMIME wraps encoded output in a data URL (data:application/pdf;base64,...).
	IncludeMIME bool `json:"include_mime" yaml:"include_mime" mapstructure:"include_mime"`
}

// SheetConfig holds defaults for the spreadsheet adapter.
type SheetConfig struct {
	// DefaultSheet is the sheet name used when writing records (default "Sheet1").
	DefaultSheet string `json:"default_sheet" yaml:"default_sheet" mapstructure:"default_sheet"`

	// ExpandFormat is the file format produced by reverse batches (xlsx, xlsm, ods or csv).
	ExpandFormat string `json:"expand_format" yaml:"expand_format" mapstructure:"expand_format"`
}

// QueryConfig holds settings for the PDF question-answering service.
type QueryConfig struct {
	// BaseURL overrides the completion API endpoint (OpenAI-compatible).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// APIKey authenticates against the completion API. Usually supplied via
	// .secrets/openai-api-key or the environment instead of the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Model is the chat model identifier (default "gpt-3.5-turbo").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// MaxTokens caps the answer length (default 500).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`

	// Temperature controls sampling randomness (default 0.7).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`

	// CacheCapacity bounds the extracted-text cache (default 10).
	CacheCapacity int `json:"cache_capacity" yaml:"cache_capacity" mapstructure:"cache_capacity"`
}

// HistoryConfig controls the conversion history database.
type HistoryConfig struct {
	// Enabled records every CLI conversion in the history database.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Dir is the directory holding history.db.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`
}

// Config groups all settings loaded from textbridge.yaml and the environment.
type Config struct {
	Image   ImageConfig   `json:"image" yaml:"image" mapstructure:"image"`
	PDF     PDFConfig     `json:"pdf" yaml:"pdf" mapstructure:"pdf"`
	Sheet   SheetConfig   `json:"sheet" yaml:"sheet" mapstructure:"sheet"`
	Query   QueryConfig   `json:"query" yaml:"query" mapstructure:"query"`
	History HistoryConfig `json:"history" yaml:"history" mapstructure:"history"`

	// LogLevel sets the slog level for diagnostics: debug, info, warn, error.
	LogLevel string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`

	// MetricsFile, when set, receives Prometheus text-format metrics on exit.
	MetricsFile string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty" mapstructure:"metrics_file"`
}
