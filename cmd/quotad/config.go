package main

import (
	"errors"
	"strings"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"APP_SERVICE_NAME" envDefault:"quotad"`
	LogLevel    string `env:"LOG_LEVEL"`

	// Backend selects the wallet store: memory, postgres, redis or mongo.
	Backend string `env:"WALLET_BACKEND" envDefault:"memory"`
	// PlanPolicyFile points at a YAML plan table. Empty means PLAN_* variables.
	PlanPolicyFile  string `env:"PLAN_POLICY_FILE"`
	MongoCollection string `env:"MONGODB_WALLETS_COLLECTION" envDefault:"wallets"`
}

const (
	backendMemory   = "memory"
	backendPostgres = "postgres"
	backendRedis    = "redis"
	backendMongo    = "mongo"
)

var errUnknownBackend = errors.New("unknown wallet backend")

func (c appConfig) backend() (string, error) {
	switch b := strings.ToLower(strings.TrimSpace(c.Backend)); b {
	case backendMemory, backendPostgres, backendRedis, backendMongo:
		return b, nil
	case "pg", "postgresql":
		return backendPostgres, nil
	case "mongodb":
		return backendMongo, nil
	default:
		return "", errors.Join(errUnknownBackend, errors.New(c.Backend))
	}
}
