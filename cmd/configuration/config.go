package configuration

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
)

const (
	DEV_MODE        string = "dev"
	PRODUCTION_MODE string = "production"
)

// Config carries every external coordinate the server needs: the store, the
// chain, the two contracts, the vendor and the refund operator key.
type Config struct {
	RedisAddr string `json:"redis_addr"`

	EthereumEndpoint    string `json:"ethereum_endpoint"`
	ChainID             int64  `json:"chain_id"`
	CertifierAddress    string `json:"certifier_address"`
	FeeRegistrarAddress string `json:"fee_registrar_address"`

	KeystorePath string `json:"keystore_path"`
	Passphrase   string `json:"passphrase"`

	OnfidoToken      string `json:"onfido_token"`
	OnfidoSimBaseURL string `json:"onfido_sim_base_url"`

	ActivityDBPath string `json:"activity_db_path"`
	SentryDSN      string `json:"sentry_dsn"`
}

// RunningMode returns the deployment mode from CERTIFIER_ENV, dev when
// unset or unknown.
func RunningMode() string {
	switch mode := os.Getenv("CERTIFIER_ENV"); mode {
	case PRODUCTION_MODE:
		return PRODUCTION_MODE
	default:
		return DEV_MODE
	}
}

// LoadConfig reads the JSON config for the given path.
func LoadConfig(path string) (*Config, error) {
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can not read config %s: %s", path, err.Error())
	}
	config := &Config{}
	if err := json.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("can not parse config %s: %s", path, err.Error())
	}
	if config.ActivityDBPath == "" {
		config.ActivityDBPath = "refund_activities.db"
	}
	if config.RedisAddr == "" {
		config.RedisAddr = "127.0.0.1:6379"
	}
	return config, nil
}
