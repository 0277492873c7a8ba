package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/keyline/config"
	ConfigFileName    = "keyline.yml"
)

// KeylineConfig holds all Keyline configuration settings
type KeylineConfig struct {
	// TrustedProxies is a list of CIDR ranges for trusted proxies
	TrustedProxies []string `yaml:"trusted_proxies" json:"trusted_proxies"`

	// APIArtifactListLimitMax is the maximum number of results for listing requests
	APIArtifactListLimitMax int `yaml:"api_artifact_list_limit_max" json:"api_artifact_list_limit_max"`

	// UserTokenTTL is the TTL for user and staff tokens in seconds
	UserTokenTTL int `yaml:"user_token_ttl" json:"user_token_ttl"`

	// MachineTokenTTL is the TTL for product and license tokens in seconds.
	// Zero means the token never expires.
	MachineTokenTTL int `yaml:"machine_token_ttl" json:"machine_token_ttl"`

	// FallbackIndexURL is the upstream package index used when a requested
	// package is not distributed by any product
	FallbackIndexURL string `yaml:"fallback_index_url" json:"fallback_index_url"`

	// WebhookDeliveryAttempts bounds retries per webhook event
	WebhookDeliveryAttempts int `yaml:"webhook_delivery_attempts" json:"webhook_delivery_attempts"`

	// WebhookDeliveryInterval is the delivery worker poll interval in seconds
	WebhookDeliveryInterval int `yaml:"webhook_delivery_interval" json:"webhook_delivery_interval"`

	// WebhookConcurrency is the delivery worker pool size
	WebhookConcurrency int `yaml:"webhook_concurrency" json:"webhook_concurrency"`

	// AuditEnabled enables audit logging
	AuditEnabled bool `yaml:"audit_enabled" json:"audit_enabled"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *KeylineConfig
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary
func Get() *KeylineConfig {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig
	}
	configMu.RUnlock()

	// Load config
	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Return defaults on error
			globalConfig = newDefault()
		} else {
			globalConfig = cfg
		}
	}
	return globalConfig
}

// Reload reloads the configuration from file and environment
func Reload() error {
	cfg, err := Load()
	if err != nil {
		return err
	}

	configMu.Lock()
	globalConfig = cfg
	configMu.Unlock()
	return nil
}

// newDefault returns a config with default values
func newDefault() *KeylineConfig {
	return &KeylineConfig{
		TrustedProxies:          []string{},
		APIArtifactListLimitMax: 1000,
		UserTokenTTL:            1209600, // two weeks
		MachineTokenTTL:         0,
		FallbackIndexURL:        "https://pypi.org/simple",
		WebhookDeliveryAttempts: 5,
		WebhookDeliveryInterval: 5,
		WebhookConcurrency:      10,
		AuditEnabled:            true,
		sources:                 make(map[string]string),
	}
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*KeylineConfig, error) {
	config := newDefault()

	// Initialize all sources as "default"
	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}

	// Determine config file path
	configPath := os.Getenv("KEYLINE_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	config.configFilePath = filepath.Join(configPath, ConfigFileName)

	// Try to load from config file
	if data, err := os.ReadFile(config.configFilePath); err == nil {
		var fileConfig KeylineConfig
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", config.configFilePath, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	// Override with environment variables
	config.applyEnvConfig()

	return config, nil
}

func attributeNames() []string {
	return []string{
		"trusted_proxies", "api_artifact_list_limit_max",
		"user_token_ttl", "machine_token_ttl", "fallback_index_url",
		"webhook_delivery_attempts", "webhook_delivery_interval",
		"webhook_concurrency", "audit_enabled",
	}
}

func (c *KeylineConfig) applyFileConfig(file *KeylineConfig) {
	if len(file.TrustedProxies) > 0 {
		c.TrustedProxies = file.TrustedProxies
		c.sources["trusted_proxies"] = "file"
	}
	if file.APIArtifactListLimitMax != 0 {
		c.APIArtifactListLimitMax = file.APIArtifactListLimitMax
		c.sources["api_artifact_list_limit_max"] = "file"
	}
	if file.UserTokenTTL != 0 {
		c.UserTokenTTL = file.UserTokenTTL
		c.sources["user_token_ttl"] = "file"
	}
	if file.MachineTokenTTL != 0 {
		c.MachineTokenTTL = file.MachineTokenTTL
		c.sources["machine_token_ttl"] = "file"
	}
	if file.FallbackIndexURL != "" {
		c.FallbackIndexURL = file.FallbackIndexURL
		c.sources["fallback_index_url"] = "file"
	}
	if file.WebhookDeliveryAttempts != 0 {
		c.WebhookDeliveryAttempts = file.WebhookDeliveryAttempts
		c.sources["webhook_delivery_attempts"] = "file"
	}
	if file.WebhookDeliveryInterval != 0 {
		c.WebhookDeliveryInterval = file.WebhookDeliveryInterval
		c.sources["webhook_delivery_interval"] = "file"
	}
	if file.WebhookConcurrency != 0 {
		c.WebhookConcurrency = file.WebhookConcurrency
		c.sources["webhook_concurrency"] = "file"
	}
}

func (c *KeylineConfig) applyEnvConfig() {
	if val := os.Getenv("KEYLINE_TRUSTED_PROXIES"); val != "" {
		c.TrustedProxies = splitAndTrim(val)
		c.sources["trusted_proxies"] = "environment"
	}
	if val := os.Getenv("KEYLINE_API_ARTIFACT_LIST_LIMIT_MAX"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.APIArtifactListLimitMax = i
			c.sources["api_artifact_list_limit_max"] = "environment"
		}
	}
	if val := os.Getenv("KEYLINE_USER_TOKEN_TTL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.UserTokenTTL = i
			c.sources["user_token_ttl"] = "environment"
		}
	}
	if val := os.Getenv("KEYLINE_MACHINE_TOKEN_TTL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.MachineTokenTTL = i
			c.sources["machine_token_ttl"] = "environment"
		}
	}
	if val := os.Getenv("KEYLINE_FALLBACK_INDEX_URL"); val != "" {
		c.FallbackIndexURL = val
		c.sources["fallback_index_url"] = "environment"
	}
	if val := os.Getenv("KEYLINE_WEBHOOK_DELIVERY_ATTEMPTS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.WebhookDeliveryAttempts = i
			c.sources["webhook_delivery_attempts"] = "environment"
		}
	}
	if val := os.Getenv("KEYLINE_WEBHOOK_DELIVERY_INTERVAL"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.WebhookDeliveryInterval = i
			c.sources["webhook_delivery_interval"] = "environment"
		}
	}
	if val := os.Getenv("KEYLINE_WEBHOOK_CONCURRENCY"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			c.WebhookConcurrency = i
			c.sources["webhook_concurrency"] = "environment"
		}
	}
	if val := os.Getenv("KEYLINE_AUDIT_ENABLED"); val != "" {
		c.AuditEnabled = val == "true" || val == "1"
		c.sources["audit_enabled"] = "environment"
	}
}

// ConfigFilePath returns the path to the config file
func (c *KeylineConfig) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *KeylineConfig) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// UserTokenDuration returns the user token TTL as a duration
func (c *KeylineConfig) UserTokenDuration() time.Duration {
	return time.Duration(c.UserTokenTTL) * time.Second
}

// MachineTokenDuration returns the product/license token TTL as a duration.
// Zero means the token never expires.
func (c *KeylineConfig) MachineTokenDuration() time.Duration {
	return time.Duration(c.MachineTokenTTL) * time.Second
}

// WebhookPollInterval returns the delivery worker poll interval as a duration
func (c *KeylineConfig) WebhookPollInterval() time.Duration {
	return time.Duration(c.WebhookDeliveryInterval) * time.Second
}

// IsTrustedProxy checks if an IP is from a trusted proxy
func (c *KeylineConfig) IsTrustedProxy(ip string) bool {
	if len(c.TrustedProxies) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, cidr := range c.TrustedProxies {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			// Try as plain IP
			if net.ParseIP(cidr) != nil && cidr == ip {
				return true
			}
			continue
		}
		if network.Contains(parsedIP) {
			return true
		}
	}
	return false
}

// Validate validates the configuration
func (c *KeylineConfig) Validate() error {
	// Validate trusted proxies are valid CIDR ranges
	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			if net.ParseIP(cidr) == nil {
				return fmt.Errorf("invalid trusted_proxies value: %s", cidr)
			}
		}
	}

	if c.APIArtifactListLimitMax <= 0 {
		return fmt.Errorf("api_artifact_list_limit_max must be positive, got %d", c.APIArtifactListLimitMax)
	}

	if c.WebhookDeliveryAttempts <= 0 {
		return fmt.Errorf("webhook_delivery_attempts must be positive, got %d", c.WebhookDeliveryAttempts)
	}

	u, err := url.Parse(c.FallbackIndexURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid fallback_index_url: %s", c.FallbackIndexURL)
	}

	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *KeylineConfig) Attributes() []Attribute {
	return []Attribute{
		{Name: "trusted_proxies", Value: strings.Join(c.TrustedProxies, ","), Source: c.Source("trusted_proxies")},
		{Name: "api_artifact_list_limit_max", Value: strconv.Itoa(c.APIArtifactListLimitMax), Source: c.Source("api_artifact_list_limit_max")},
		{Name: "user_token_ttl", Value: strconv.Itoa(c.UserTokenTTL), Source: c.Source("user_token_ttl")},
		{Name: "machine_token_ttl", Value: strconv.Itoa(c.MachineTokenTTL), Source: c.Source("machine_token_ttl")},
		{Name: "fallback_index_url", Value: c.FallbackIndexURL, Source: c.Source("fallback_index_url")},
		{Name: "webhook_delivery_attempts", Value: strconv.Itoa(c.WebhookDeliveryAttempts), Source: c.Source("webhook_delivery_attempts")},
		{Name: "webhook_delivery_interval", Value: strconv.Itoa(c.WebhookDeliveryInterval), Source: c.Source("webhook_delivery_interval")},
		{Name: "webhook_concurrency", Value: strconv.Itoa(c.WebhookConcurrency), Source: c.Source("webhook_concurrency")},
		{Name: "audit_enabled", Value: strconv.FormatBool(c.AuditEnabled), Source: c.Source("audit_enabled")},
	}
}

// FormatText returns a text representation of the configuration
func (c *KeylineConfig) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-40s %-30s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *KeylineConfig) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
