package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path: "pagewatch-test.db",
		},
		Fetch: FetchConfig{
			Timeout:   5 * time.Second,
			UserAgent: "pagewatch-test/1.0",
			MaxBodyMB: 10,
		},
		Schedule: ScheduleConfig{
			Tick:             100 * time.Millisecond,
			DefaultInterval:  1 * time.Minute,
			MisfireGrace:     5 * time.Minute,
			Timezone:         "UTC",
			ActiveHoursStart: 0,
			ActiveHoursEnd:   23,
		},
		Delivery: DeliveryConfig{
			MaxFileMB:        1,
			ManifestMaxChars: 4096,
			Concurrency:      2,
		},
		Telegram: TelegramConfig{
			Token:   "test-token",
			OwnerID: 1000,
		},
		Log: LogConfig{
			Level: "debug",
		},
	}
}
