package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeStorage()
	c.normalizeEncoder()
	c.normalizeProfiles()
	c.normalizeCategories()
	c.normalizeLogging()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	if c.Metrics.Bind == "" {
		c.Metrics.Bind = defaultMetricsBind
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(orDefault(c.Paths.DataDir, defaultDataDir)); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.StorageDir, err = expandPath(orDefault(c.Paths.StorageDir, defaultStorageDir)); err != nil {
		return fmt.Errorf("paths.storage_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(orDefault(c.Paths.WorkDir, defaultWorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(orDefault(c.Paths.LogDir, defaultLogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageLocal
	}
	c.Storage.GCSBucket = strings.TrimSpace(c.Storage.GCSBucket)
	if c.Storage.GCSBucket == "" {
		if value, ok := os.LookupEnv(gcsBucketEnv); ok {
			c.Storage.GCSBucket = strings.TrimSpace(value)
		}
	}
	c.Storage.GCSPrefix = strings.Trim(strings.TrimSpace(c.Storage.GCSPrefix), "/")
	c.Storage.GCSEndpoint = strings.TrimSpace(c.Storage.GCSEndpoint)
}

func (c *Config) normalizeEncoder() {
	c.Encoder.Binary = orDefault(strings.TrimSpace(c.Encoder.Binary), defaultEncoderBinary)
	c.Encoder.VideoCodec = orDefault(strings.TrimSpace(c.Encoder.VideoCodec), defaultVideoCodec)
	c.Encoder.AudioCodec = orDefault(strings.TrimSpace(c.Encoder.AudioCodec), defaultAudioCodec)
	c.Encoder.Container = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Encoder.Container)), ".")
	if c.Encoder.Container == "" {
		c.Encoder.Container = defaultContainer
	}
	args := c.Encoder.ExtraArgs[:0]
	for _, arg := range c.Encoder.ExtraArgs {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Encoder.ExtraArgs = args
}

func (c *Config) normalizeProfiles() {
	for i := range c.Profiles {
		c.Profiles[i].Name = strings.ToLower(strings.TrimSpace(c.Profiles[i].Name))
		c.Profiles[i].Size = strings.TrimSpace(c.Profiles[i].Size)
	}
}

func (c *Config) normalizeCategories() {
	if len(c.Categories) == 0 {
		if value, ok := os.LookupEnv(categoriesEnv); ok {
			c.Categories = strings.Split(value, ",")
		}
	}
	seen := make(map[string]struct{}, len(c.Categories))
	out := make([]string, 0, len(c.Categories))
	for _, category := range c.Categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if category == "" {
			continue
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		out = append(out, category)
	}
	c.Categories = out
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
