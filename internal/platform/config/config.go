package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"trustplane/pkg/domain"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	// OperatorSecretHash is the bcrypt hash of the operator API secret
	// protecting administrative endpoints (pool snapshots, publishing).
	OperatorSecretHash string
}

// RedisConfig captures Redis connection settings. An empty URL disables Redis
// and the services fall back to in-memory stores.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig captures the audit pipeline settings. Empty brokers disable
// Kafka and audit events stay on the in-process worker.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// TrustPolicy is the externally supplied constitutional parameter table.
// Nothing in the services hardcodes these.
type TrustPolicy struct {
	Floor     domain.TrustValue // T_floor
	AbsMax    domain.TrustValue // T_abs_max
	CapStddev float64           // k in T_cap = min(T_abs_max, mean + k*std)
	Alpha     float64           // gain multiplier on verified quality
	GainMax   domain.TrustValue // u_max
	DeltaFast domain.TrustValue // largest delta committed without quorum

	// Dormancy decay: rate per elapsed day past the grace period.
	DecayPerDay domain.TrustValue
	DecayGrace  time.Duration
}

// QuorumPolicy holds the human revalidation thresholds.
type QuorumPolicy struct {
	MinSigners int // q_h
	MinRegions int // r_h
	MinOrgs    int // o_h
}

// ChamberPolicy configures deterministic committee selection.
type ChamberPolicy struct {
	Size       int // seats per chamber
	RegionCap  int // max seats any one region may hold
	MinRegions int // distinct regions a seated chamber must span
	MinOrgs    int // distinct organizations a seated chamber must span

	// MinTrust is the human-trust bar for pool eligibility.
	MinTrust domain.TrustValue
}

// CertificatePolicy configures threshold signature collection.
type CertificatePolicy struct {
	Threshold      int // t of the committee's n
	CollectTimeout time.Duration
}

// PublisherPolicy configures anchor publication retries.
type PublisherPolicy struct {
	SettlementURL string
	MaxAttempts   int
	Backoff       time.Duration
}

// Config is the full application configuration.
type Config struct {
	Server      Server
	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
	Trust       TrustPolicy
	Quorum      QuorumPolicy
	Chamber     ChamberPolicy
	Certificate CertificatePolicy
	Publisher   PublisherPolicy
}

// FromEnv builds the configuration from environment variables so main stays
// lean. Defaults are development values; production overrides everything.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:               envStr("TRUSTPLANE_ADDR", ":8080"),
			JWTSigningKey:      envStr("TRUSTPLANE_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			OperatorSecretHash: os.Getenv("TRUSTPLANE_OPERATOR_SECRET_HASH"),
		},
		PostgresURL: os.Getenv("TRUSTPLANE_POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("TRUSTPLANE_REDIS_URL"),
			PoolSize:     envInt("TRUSTPLANE_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("TRUSTPLANE_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("TRUSTPLANE_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("TRUSTPLANE_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("TRUSTPLANE_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: envList("TRUSTPLANE_KAFKA_BROKERS"),
			Topic:   envStr("TRUSTPLANE_KAFKA_AUDIT_TOPIC", "trustplane.audit"),
		},
		Trust: TrustPolicy{
			Floor:       envTrust("TRUSTPLANE_TRUST_FLOOR", "0.0000"),
			AbsMax:      envTrust("TRUSTPLANE_TRUST_ABS_MAX", "1.0000"),
			CapStddev:   envFloat("TRUSTPLANE_TRUST_CAP_STDDEV", 2.0),
			Alpha:       envFloat("TRUSTPLANE_TRUST_ALPHA", 0.05),
			GainMax:     envTrust("TRUSTPLANE_TRUST_GAIN_MAX", "0.0500"),
			DeltaFast:   envTrust("TRUSTPLANE_TRUST_DELTA_FAST", "0.0200"),
			DecayPerDay: envTrust("TRUSTPLANE_TRUST_DECAY_PER_DAY", "0.0010"),
			DecayGrace:  envDuration("TRUSTPLANE_TRUST_DECAY_GRACE", 720*time.Hour),
		},
		Quorum: QuorumPolicy{
			MinSigners: envInt("TRUSTPLANE_QUORUM_MIN_SIGNERS", 30),
			MinRegions: envInt("TRUSTPLANE_QUORUM_MIN_REGIONS", 3),
			MinOrgs:    envInt("TRUSTPLANE_QUORUM_MIN_ORGS", 3),
		},
		Chamber: ChamberPolicy{
			Size:       envInt("TRUSTPLANE_CHAMBER_SIZE", 9),
			RegionCap:  envInt("TRUSTPLANE_CHAMBER_REGION_CAP", 3),
			MinRegions: envInt("TRUSTPLANE_CHAMBER_MIN_REGIONS", 3),
			MinOrgs:    envInt("TRUSTPLANE_CHAMBER_MIN_ORGS", 3),
			MinTrust:   envTrust("TRUSTPLANE_CHAMBER_MIN_TRUST", "0.2500"),
		},
		Certificate: CertificatePolicy{
			Threshold:      envInt("TRUSTPLANE_CERT_THRESHOLD", 6),
			CollectTimeout: envDuration("TRUSTPLANE_CERT_COLLECT_TIMEOUT", 2*time.Minute),
		},
		Publisher: PublisherPolicy{
			SettlementURL: envStr("TRUSTPLANE_SETTLEMENT_URL", "http://localhost:9090"),
			MaxAttempts:   envInt("TRUSTPLANE_PUBLISH_MAX_ATTEMPTS", 5),
			Backoff:       envDuration("TRUSTPLANE_PUBLISH_BACKOFF", 2*time.Second),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envTrust(key, fallback string) domain.TrustValue {
	s := envStr(key, fallback)
	v, err := domain.ParseTrustValue(s)
	if err != nil {
		v, _ = domain.ParseTrustValue(fallback)
	}
	return v
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
