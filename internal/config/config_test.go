package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.Store != "postgres" {
		t.Errorf("Store = %q, want postgres", cfg.Store)
	}
	if cfg.Notifier != "rabbitmq" {
		t.Errorf("Notifier = %q, want rabbitmq", cfg.Notifier)
	}
	if cfg.RabbitMQ.Exchange != "transfers.notifications" {
		t.Errorf("RabbitMQ.Exchange = %q, want transfers.notifications", cfg.RabbitMQ.Exchange)
	}
	if cfg.Engine.Workers != 8 {
		t.Errorf("Engine.Workers = %d, want 8", cfg.Engine.Workers)
	}
	if cfg.Engine.QueueSize != 300 {
		t.Errorf("Engine.QueueSize = %d, want 300", cfg.Engine.QueueSize)
	}
	if cfg.Engine.LockStripes != 32 {
		t.Errorf("Engine.LockStripes = %d, want 32", cfg.Engine.LockStripes)
	}
	if cfg.Engine.LockTimeout != 100*time.Millisecond {
		t.Errorf("Engine.LockTimeout = %s, want 100ms", cfg.Engine.LockTimeout)
	}
	if cfg.Engine.LockAttempts != 3 {
		t.Errorf("Engine.LockAttempts = %d, want 3", cfg.Engine.LockAttempts)
	}
	if !reflect.DeepEqual(cfg.Engine.SupportedCurrencies, []string{"USD"}) {
		t.Errorf("Engine.SupportedCurrencies = %v, want [USD]", cfg.Engine.SupportedCurrencies)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("STORE", "memory")
	t.Setenv("NOTIFIER", "kafka")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("WORKERS", "16")
	t.Setenv("QUEUE_SIZE", "500")
	t.Setenv("LOCK_TIMEOUT", "250ms")
	t.Setenv("LOCK_ATTEMPTS", "5")
	t.Setenv("SUPPORTED_CURRENCIES", "USD,EUR")

	cfg := Load()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.Store != "memory" {
		t.Errorf("Store = %q, want memory", cfg.Store)
	}
	if cfg.Notifier != "kafka" {
		t.Errorf("Notifier = %q, want kafka", cfg.Notifier)
	}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, []string{"broker-1:9092", "broker-2:9092"}) {
		t.Errorf("Kafka.Brokers = %v, want trimmed broker list", cfg.Kafka.Brokers)
	}
	if cfg.Engine.Workers != 16 {
		t.Errorf("Engine.Workers = %d, want 16", cfg.Engine.Workers)
	}
	if cfg.Engine.QueueSize != 500 {
		t.Errorf("Engine.QueueSize = %d, want 500", cfg.Engine.QueueSize)
	}
	if cfg.Engine.LockTimeout != 250*time.Millisecond {
		t.Errorf("Engine.LockTimeout = %s, want 250ms", cfg.Engine.LockTimeout)
	}
	if cfg.Engine.LockAttempts != 5 {
		t.Errorf("Engine.LockAttempts = %d, want 5", cfg.Engine.LockAttempts)
	}
	if !reflect.DeepEqual(cfg.Engine.SupportedCurrencies, []string{"USD", "EUR"}) {
		t.Errorf("Engine.SupportedCurrencies = %v, want [USD EUR]", cfg.Engine.SupportedCurrencies)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("WORKERS", "not-a-number")
	t.Setenv("LOCK_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Engine.Workers != 8 {
		t.Errorf("Engine.Workers = %d, want default 8", cfg.Engine.Workers)
	}
	if cfg.Engine.LockTimeout != 100*time.Millisecond {
		t.Errorf("Engine.LockTimeout = %s, want default 100ms", cfg.Engine.LockTimeout)
	}
}
