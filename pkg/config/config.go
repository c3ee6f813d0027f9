// Package config holds the application configuration, loaded from a YAML
// file and environment variables.
package config

import "time"

// Config is the root application configuration.
type Config struct {
	Lexicon LexiconConfig `yaml:"lexicon"`
	Harvest HarvestConfig `yaml:"harvest"`
	Audio   AudioConfig   `yaml:"audio"`
	Cache   CacheConfig   `yaml:"cache"`
	Deck    DeckConfig    `yaml:"deck"`
	Log     LogConfig     `yaml:"log"`
}

// LexiconConfig locates the dictionary archive.
type LexiconConfig struct {
	ArchivePath string `yaml:"archive_path" env:"LEXICON_ARCHIVE_PATH" env-default:"./jmdict-eng.json.zip"`
}

// HarvestConfig holds tag-search scraping settings.
type HarvestConfig struct {
	BaseURL     string        `yaml:"base_url"     env:"HARVEST_BASE_URL"     env-default:"https://jisho.org/api/v1"`
	MaxPages    int           `yaml:"max_pages"    env:"HARVEST_MAX_PAGES"    env-default:"20"`
	MaxRetries  int           `yaml:"max_retries"  env:"HARVEST_MAX_RETRIES"  env-default:"3"`
	RetryBase   time.Duration `yaml:"retry_base"   env:"HARVEST_RETRY_BASE"   env-default:"500ms"`
	RetryCap    time.Duration `yaml:"retry_cap"    env:"HARVEST_RETRY_CAP"    env-default:"8s"`
	Timeout     time.Duration `yaml:"timeout"      env:"HARVEST_TIMEOUT"      env-default:"10s"`
	Concurrency int           `yaml:"concurrency"  env:"HARVEST_CONCURRENCY"  env-default:"2"`
}

// AudioConfig holds pronunciation-provider settings. TokenPath points to a
// file holding the bearer token; it is only required for the extended
// variant.
type AudioConfig struct {
	BaseURL     string        `yaml:"base_url"     env:"AUDIO_BASE_URL"     env-default:"https://api.wanikani.com"`
	TokenPath   string        `yaml:"token_path"   env:"AUDIO_TOKEN_PATH"   env-default:"./wanikani.token"`
	CatalogPath string        `yaml:"catalog_path" env:"AUDIO_CATALOG_PATH" env-default:"./data/audio-catalog.json"`
	MediaDir    string        `yaml:"media_dir"    env:"AUDIO_MEDIA_DIR"    env-default:"./data/media"`
	Timeout     time.Duration `yaml:"timeout"      env:"AUDIO_TIMEOUT"      env-default:"15s"`
	Workers     int           `yaml:"workers"      env:"AUDIO_WORKERS"      env-default:"4"`
	MaxRetries  int           `yaml:"max_retries"  env:"AUDIO_MAX_RETRIES"  env-default:"3"`
}

// CacheConfig holds local harvest-cache settings.
type CacheConfig struct {
	Path          string        `yaml:"path"           env:"CACHE_PATH"           env-default:"./data/jlptdeck.db"`
	BatchSize     int           `yaml:"batch_size"     env:"CACHE_BATCH_SIZE"     env-default:"50"`
	FlushInterval time.Duration `yaml:"flush_interval" env:"CACHE_FLUSH_INTERVAL" env-default:"2s"`
}

// DeckConfig holds assembly and export settings.
type DeckConfig struct {
	// Variant is "core" or "extended" (with audio).
	Variant string `yaml:"variant" env:"DECK_VARIANT" env-default:"core"`
	// LevelPolicy is "hardest" or "easiest", deciding which grade wins
	// when sources disagree.
	LevelPolicy   string `yaml:"level_policy"   env:"DECK_LEVEL_POLICY"   env-default:"hardest"`
	IncludeCommon bool   `yaml:"include_common" env:"DECK_INCLUDE_COMMON" env-default:"true"`
	OutputDir     string `yaml:"output_dir"     env:"DECK_OUTPUT_DIR"     env-default:"./out"`
	BundleName    string `yaml:"bundle_name"    env:"DECK_BUNDLE_NAME"    env-default:"jlptdeck.zip"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}
