package config

import (
	"log"
	"time"
)

// Must* helpers abort startup; they are meant for cmd/ wiring only.

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustPositive(value time.Duration, envName string) {
	if value <= 0 {
		log.Fatalf("env %s must be a positive duration, got %s", envName, value)
	}
}
