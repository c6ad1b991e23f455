package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

// Config is loaded from a yaml document, then overlaid with
// environment variables so deployments can override single values
// without editing the file.
type Config struct {
	Reqs struct {
		AddBlockRequestType    string `yaml:"add_block_req_type" env:"REQ_ADD_BLOCK"`
		UpdateBlockRequestType string `yaml:"update_block_req_type" env:"REQ_UPDATE_BLOCK"`
		DeleteBlockRequestType string `yaml:"delete_block_req_type" env:"REQ_DELETE_BLOCK"`
		MoveBlockRequestType   string `yaml:"move_block_req_type" env:"REQ_MOVE_BLOCK"`
		SubmitRequestType      string `yaml:"submit_req_type" env:"REQ_SUBMIT"`
		DeleteFormRequestType  string `yaml:"delete_form_req_type" env:"REQ_DELETE_FORM"`
	} `yaml:"reqs"`
	Urls struct {
		Redis    string `yaml:"redis" env:"REDIS_URL"`
		Rabbitmq string `yaml:"rabbitmq" env:"RABBITMQ_URL"`
	} `yaml:"urls"`
	Exchange struct {
		Request string `yaml:"request" env:"REQUEST_EXCHANGE"`
		Output  string `yaml:"output" env:"OUTPUT_EXCHANGE"`
	} `yaml:"exchange"`
	Queue struct {
		Request string `yaml:"request" env:"REQUEST_QUEUE"`
		Output  string `yaml:"output" env:"OUTPUT_QUEUE"`
	} `yaml:"queue"`
	Storage struct {
		Driver string `yaml:"driver" env:"STORAGE_DRIVER"` // sqlite or mysql
		DSN    string `yaml:"dsn" env:"STORAGE_DSN"`
	} `yaml:"storage"`
	Autosave struct {
		DebounceMs int `yaml:"debounce_ms" env:"AUTOSAVE_DEBOUNCE_MS"`
		CoalesceMs int `yaml:"coalesce_ms" env:"AUTOSAVE_COALESCE_MS"`
	} `yaml:"autosave"`
	HealthPort string `yaml:"health_port" env:"HEALTH_PORT"`
}

func Init(path string) (*Config, error) {
	var cfg Config

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error open file: %v", err)
	}

	defer file.Close()

	if err = yaml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode error: %v", err)
	}

	// Environment wins over the file.
	if err = env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("env overlay error: %v", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "formloom.sqlite"
	}
	if cfg.HealthPort == "" {
		cfg.HealthPort = ":8081"
	}
}
