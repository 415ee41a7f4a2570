package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"streamgen/internal/errkind"
	"streamgen/internal/model"
)

// rawBrokerConfig mirrors spec.md §6's broker configuration document.
type rawBrokerConfig struct {
	BootstrapServers  string `yaml:"bootstrap.servers"`
	SecurityProtocol  string `yaml:"security.protocol"`
	SASLMechanism     string `yaml:"sasl.mechanism"`
	SASLUsername      string `yaml:"sasl.username"`
	SASLPassword      string `yaml:"sasl.password"`
	SSLCALocation     string `yaml:"ssl.ca.location"`
	SSLCertLocation   string `yaml:"ssl.certificate.location"`
	SSLKeyLocation    string `yaml:"ssl.key.location"`
	SchemaRegistryURL string `yaml:"schema.registry.url"`
}

// LoadBrokerConfig parses the broker-config document's bytes.
func LoadBrokerConfig(data []byte) (*model.BrokerConfig, error) {
	var raw rawBrokerConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errkind.New(errkind.Config, "", "", fmt.Errorf("parse broker config: %w", err))
	}
	if strings.TrimSpace(raw.BootstrapServers) == "" {
		return nil, errkind.Newf(errkind.Config, "", "", "bootstrap.servers must not be empty")
	}

	proto := model.BrokerSecurityProtocol(raw.SecurityProtocol)
	if proto == "" {
		proto = model.SecurityPlaintext
	}
	switch proto {
	case model.SecurityPlaintext, model.SecuritySSL, model.SecuritySASLPlaintext, model.SecuritySASLSSL:
	default:
		return nil, errkind.Newf(errkind.Config, "", "", "unsupported security.protocol %q", raw.SecurityProtocol)
	}

	var brokers []string
	for _, b := range strings.Split(raw.BootstrapServers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	return &model.BrokerConfig{
		BootstrapServers:  brokers,
		SecurityProtocol:  proto,
		SASLMechanism:     raw.SASLMechanism,
		SASLUsername:      raw.SASLUsername,
		SASLPassword:      raw.SASLPassword,
		SSLCALocation:     raw.SSLCALocation,
		SSLCertLocation:   raw.SSLCertLocation,
		SSLKeyLocation:    raw.SSLKeyLocation,
		SchemaRegistryURL: raw.SchemaRegistryURL,
	}, nil
}
