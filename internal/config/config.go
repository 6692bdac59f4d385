/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads operator settings from an optional YAML file and
// environment variables. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"kuryr-operator/pkg/crypto"
)

// Driver keys accepted by the resolver registry.
const (
	DriverAnnotation = "annotation"
	DriverExternal   = "external"
	DriverDefault    = "default"
	DriverCIDR       = "cidr"
	DriverPolicy     = "policy"
	DriverNamed      = "named"
)

const DefaultExternalCIDR = "11.1.0.0/16"

// OpenStack holds Keystone and Neutron access settings.
type OpenStack struct {
	AuthURL         string          `json:"authURL,omitempty"`
	DomainName      string          `json:"domainName,omitempty"`
	Username        string          `json:"username,omitempty"`
	Password        string          `json:"password,omitempty"`
	// PasswordKey, when set, means Password is sealed with it.
	PasswordKey     string          `json:"passwordKey,omitempty"`
	ProjectID       string          `json:"projectID,omitempty"`
	NeutronEndpoint string          `json:"neutronEndpoint,omitempty"`
	Timeout         metav1.Duration `json:"timeout,omitzero"`
	InsecureTLS     bool            `json:"insecureTLS,omitempty"`
}

// Config is the full operator configuration.
type Config struct {
	PodProjectDriver             string `json:"podProjectDriver,omitempty"`
	ServiceProjectDriver         string `json:"serviceProjectDriver,omitempty"`
	PodSubnetsDriver             string `json:"podSubnetsDriver,omitempty"`
	ServiceSubnetsDriver         string `json:"serviceSubnetsDriver,omitempty"`
	PodSecurityGroupsDriver      string `json:"podSecurityGroupsDriver,omitempty"`
	ServiceSecurityGroupsDriver  string `json:"serviceSecurityGroupsDriver,omitempty"`
	FallbackSecurityGroupsDriver string `json:"fallbackSecurityGroupsDriver,omitempty"`

	// NetworkPolicyEnabled turns on rule synthesis for pods.
	NetworkPolicyEnabled bool `json:"networkPolicyEnabled,omitempty"`

	DefaultProject string `json:"defaultProject,omitempty"`

	PodSubnet     string `json:"podSubnet,omitempty"`
	ServiceSubnet string `json:"serviceSubnet,omitempty"`
	PodCIDR       string `json:"podCIDR,omitempty"`
	ServiceCIDR   string `json:"serviceCIDR,omitempty"`
	ExternalCIDR  string `json:"externalCIDR,omitempty"`

	PodSecurityGroups    []string `json:"podSecurityGroups,omitempty"`
	PodSecurityGroupName string   `json:"podSecurityGroupName,omitempty"`

	OctaviaProvider   string `json:"octaviaProvider,omitempty"`
	TimeoutClientData int    `json:"timeoutClientData,omitempty"`
	TimeoutMemberData int    `json:"timeoutMemberData,omitempty"`

	// RetryInterval is the requeue delay for resources that are not ready.
	RetryInterval metav1.Duration `json:"retryInterval,omitzero"`

	OpenStack OpenStack `json:"openstack,omitzero"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		PodProjectDriver:             DriverDefault,
		ServiceProjectDriver:         DriverDefault,
		PodSubnetsDriver:             DriverDefault,
		ServiceSubnetsDriver:         DriverDefault,
		PodSecurityGroupsDriver:      DriverDefault,
		ServiceSecurityGroupsDriver:  DriverDefault,
		FallbackSecurityGroupsDriver: DriverDefault,
		ExternalCIDR:                 DefaultExternalCIDR,
		OctaviaProvider:              "default",
		RetryInterval:                metav1.Duration{Duration: 3 * time.Second},
		OpenStack: OpenStack{
			DomainName: "Default",
			Timeout:    metav1.Duration{Duration: 30 * time.Second},
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if cfg.OpenStack.PasswordKey != "" {
		password, err := crypto.Open(cfg.OpenStack.Password, cfg.OpenStack.PasswordKey)
		if err != nil {
			return Config{}, fmt.Errorf("open openstack password: %w", err)
		}
		cfg.OpenStack.Password = password
		cfg.OpenStack.PasswordKey = ""
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.PodProjectDriver = getenv("POD_PROJECT_DRIVER", cfg.PodProjectDriver)
	cfg.ServiceProjectDriver = getenv("SERVICE_PROJECT_DRIVER", cfg.ServiceProjectDriver)
	cfg.PodSubnetsDriver = getenv("POD_SUBNETS_DRIVER", cfg.PodSubnetsDriver)
	cfg.ServiceSubnetsDriver = getenv("SERVICE_SUBNETS_DRIVER", cfg.ServiceSubnetsDriver)
	cfg.PodSecurityGroupsDriver = getenv("POD_SECURITY_GROUPS_DRIVER", cfg.PodSecurityGroupsDriver)
	cfg.ServiceSecurityGroupsDriver = getenv("SERVICE_SECURITY_GROUPS_DRIVER", cfg.ServiceSecurityGroupsDriver)
	cfg.FallbackSecurityGroupsDriver = getenv("FALLBACK_SECURITY_GROUPS_DRIVER", cfg.FallbackSecurityGroupsDriver)
	cfg.NetworkPolicyEnabled = getenvBool("NETWORK_POLICY_ENABLED", cfg.NetworkPolicyEnabled)

	cfg.DefaultProject = getenv("DEFAULT_PROJECT", cfg.DefaultProject)
	cfg.PodSubnet = getenv("POD_SUBNET", cfg.PodSubnet)
	cfg.ServiceSubnet = getenv("SERVICE_SUBNET", cfg.ServiceSubnet)
	cfg.PodCIDR = getenv("POD_CIDR", cfg.PodCIDR)
	cfg.ServiceCIDR = getenv("SERVICE_CIDR", cfg.ServiceCIDR)
	cfg.ExternalCIDR = getenv("EXTERNAL_CIDR", cfg.ExternalCIDR)
	cfg.PodSecurityGroups = getenvList("POD_SECURITY_GROUPS", cfg.PodSecurityGroups)
	cfg.PodSecurityGroupName = getenv("POD_SECURITY_GROUP_NAME", cfg.PodSecurityGroupName)

	cfg.OctaviaProvider = getenv("OCTAVIA_PROVIDER", cfg.OctaviaProvider)
	cfg.TimeoutClientData = getenvInt("TIMEOUT_CLIENT_DATA", cfg.TimeoutClientData)
	cfg.TimeoutMemberData = getenvInt("TIMEOUT_MEMBER_DATA", cfg.TimeoutMemberData)
	cfg.RetryInterval.Duration = getenvDuration("RETRY_INTERVAL", cfg.RetryInterval.Duration)

	cfg.OpenStack.AuthURL = getenv("OPENSTACK_AUTH_URL", cfg.OpenStack.AuthURL)
	cfg.OpenStack.DomainName = getenv("OPENSTACK_DOMAIN_NAME", cfg.OpenStack.DomainName)
	cfg.OpenStack.Username = getenv("OPENSTACK_USERNAME", cfg.OpenStack.Username)
	cfg.OpenStack.Password = getenv("OPENSTACK_PASSWORD", cfg.OpenStack.Password)
	cfg.OpenStack.PasswordKey = getenv("OPENSTACK_PASSWORD_KEY", cfg.OpenStack.PasswordKey)
	cfg.OpenStack.ProjectID = getenv("OPENSTACK_PROJECT_ID", cfg.OpenStack.ProjectID)
	cfg.OpenStack.NeutronEndpoint = getenv("OPENSTACK_NEUTRON_ENDPOINT", cfg.OpenStack.NeutronEndpoint)
	cfg.OpenStack.Timeout.Duration = getenvDuration("OPENSTACK_TIMEOUT", cfg.OpenStack.Timeout.Duration)
	cfg.OpenStack.InsecureTLS = getenvBool("OPENSTACK_INSECURE_TLS", cfg.OpenStack.InsecureTLS)
}

// Validate checks driver keys and the settings each selected driver needs.
func (c Config) Validate() error {
	checks := []struct {
		option  string
		value   string
		allowed []string
	}{
		{"podProjectDriver", c.PodProjectDriver, []string{DriverAnnotation, DriverExternal, DriverDefault}},
		{"serviceProjectDriver", c.ServiceProjectDriver, []string{DriverAnnotation, DriverExternal, DriverDefault}},
		{"podSubnetsDriver", c.PodSubnetsDriver, []string{DriverAnnotation, DriverCIDR, DriverExternal, DriverDefault}},
		{"serviceSubnetsDriver", c.ServiceSubnetsDriver, []string{DriverAnnotation, DriverCIDR, DriverExternal, DriverDefault}},
		{"podSecurityGroupsDriver", c.PodSecurityGroupsDriver, []string{DriverAnnotation, DriverPolicy, DriverNamed, DriverDefault}},
		{"serviceSecurityGroupsDriver", c.ServiceSecurityGroupsDriver, []string{DriverAnnotation, DriverPolicy, DriverNamed, DriverDefault}},
		{"fallbackSecurityGroupsDriver", c.FallbackSecurityGroupsDriver, []string{DriverPolicy, DriverNamed, DriverDefault}},
	}
	for _, chk := range checks {
		if !contains(chk.allowed, chk.value) {
			return fmt.Errorf("%s: unsupported driver %q (allowed: %s)", chk.option, chk.value, strings.Join(chk.allowed, ", "))
		}
	}
	if c.RetryInterval.Duration <= 0 {
		return fmt.Errorf("retryInterval must be positive")
	}
	if c.TimeoutClientData < 0 || c.TimeoutMemberData < 0 {
		return fmt.Errorf("load balancer timeouts must not be negative")
	}
	return nil
}

// LBProvider maps the configured Octavia provider to the one written into
// KuryrLoadBalancer specs.
func (c Config) LBProvider() string {
	if c.OctaviaProvider == "" || c.OctaviaProvider == "default" {
		return "amphora"
	}
	return c.OctaviaProvider
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getenvList reads a comma separated list. Blank items are dropped.
func getenvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return SplitList(v)
}

// SplitList splits a comma separated value, trimming blanks.
func SplitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
