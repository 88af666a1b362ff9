package config

import (
	"time"
)

type SecurityConfig interface {
	GetSessionSigningKey() string
	GetSessionLifetime() time.Duration
	GetMaxAttachmentBytes() int64
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetSessionSigningKey() string {
	return GetEnv("SESSION_SIGNING_KEY", "")
}

func (Security) GetSessionLifetime() time.Duration {
	raw := GetEnv("SESSION_LIFETIME", "")
	if raw == "" {
		return 8 * time.Hour
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 8 * time.Hour
	}
	return d
}

func (Security) GetMaxAttachmentBytes() int64 {
	return 10 * 1024 * 1024
}
