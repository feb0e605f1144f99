package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.CDCTopic != "classtrack-cdc" {
		t.Errorf("CDCTopic = %q, want %q", cfg.CDCTopic, "classtrack-cdc")
	}
	if cfg.KafkaGroupID != "classtrack-propagation-worker" {
		t.Errorf("KafkaGroupID = %q, want default", cfg.KafkaGroupID)
	}
	if cfg.DeadLetterTopic != "classtrack-cdc-dlq" {
		t.Errorf("DeadLetterTopic = %q, want default", cfg.DeadLetterTopic)
	}
	if cfg.MirrorBucket != "classtrack-mirror" {
		t.Errorf("MirrorBucket = %q, want default", cfg.MirrorBucket)
	}
	if cfg.ScanPageSize != 100 {
		t.Errorf("ScanPageSize = %d, want 100", cfg.ScanPageSize)
	}
	if cfg.TemplateBatchSize != 10 {
		t.Errorf("TemplateBatchSize = %d, want 10", cfg.TemplateBatchSize)
	}
	if cfg.MirrorUseSSL {
		t.Error("MirrorUseSSL should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":9090")
	os.Setenv("CDC_TOPIC", "custom-cdc")
	os.Setenv("SCAN_PAGE_SIZE", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.CDCTopic != "custom-cdc" {
		t.Errorf("CDCTopic = %q, want %q", cfg.CDCTopic, "custom-cdc")
	}
	if cfg.ScanPageSize != 25 {
		t.Errorf("ScanPageSize = %d, want 25", cfg.ScanPageSize)
	}
}

func TestLoad_ServiceTokenRequired(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")
	os.Setenv("WORKFLOW_URL", "http://localhost:4200")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when WORKFLOW_URL is set without SERVICE_TOKEN_SECRET")
	}

	os.Setenv("SERVICE_TOKEN_SECRET", "dev-secret")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WorkflowURL != "http://localhost:4200" {
		t.Errorf("WorkflowURL = %q", cfg.WorkflowURL)
	}
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":8080")
	os.Setenv("TEMPLATE_BATCH_SIZE", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for TEMPLATE_BATCH_SIZE=0")
	}
}

func TestKafkaBrokersList(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "localhost:9092", []string{"localhost:9092"}},
		{"multi with spaces", "a:9092, b:9092 ,", []string{"a:9092", "b:9092"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{KafkaBrokers: tt.in}
			got := c.KafkaBrokersList()
			if len(got) != len(tt.want) {
				t.Fatalf("KafkaBrokersList = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("broker[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestServiceTokenLifetime(t *testing.T) {
	c := &Config{ServiceTokenTTL: "90s"}
	if got := c.ServiceTokenLifetime(); got != 90*time.Second {
		t.Errorf("ServiceTokenLifetime = %v, want 90s", got)
	}
	c = &Config{ServiceTokenTTL: "garbage"}
	if got := c.ServiceTokenLifetime(); got != 5*time.Minute {
		t.Errorf("ServiceTokenLifetime fallback = %v, want 5m", got)
	}
}
