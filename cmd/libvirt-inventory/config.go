// Copyright 2024 Alexandre Mahdhaoui
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"os"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	"github.com/alexandremahdhaoui/libvirt-inventory/pkg/vmm"
)

const (
	// ConfigPathEnvKey is the environment variable key for the config file path.
	ConfigPathEnvKey = "LIBVIRT_INVENTORY_CONFIG_PATH"

	URIEnvKey           = "LIBVIRT_INVENTORY_URI"
	FormatEnvKey        = "LIBVIRT_INVENTORY_FORMAT"
	DomainDetailsEnvKey = "LIBVIRT_INVENTORY_DOMAIN_DETAILS"
	LogLevelEnvKey      = "LOG_LEVEL"
)

// loadConfig loads the configuration from path. An empty path yields an empty configuration, so that the inventory
// works with no configuration at all.
func loadConfig(path string) (*Config, error) {
	config := &Config{}
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Parse YAML (uses json tags)
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return config, nil
}

// Config is used to configure libvirt-inventory.
//
// Precedence, lowest first: defaults, config file, environment variables, command-line flags.
type Config struct {
	// Libvirt

	// URI is the libvirt connection URI, e.g. "qemu+ssh://root@10.0.0.73/system".
	URI string `json:"uri"`
	// ConnectTimeout bounds opening the connection. Defaults to 10s; "0s" disables the bound.
	ConnectTimeout *metav1.Duration `json:"connectTimeout,omitempty"`
	// QueryTimeout bounds every query, including each guest agent query. Defaults to 5s; "0s" disables the bound.
	QueryTimeout *metav1.Duration `json:"queryTimeout,omitempty"`

	// Output

	// Format is "json" (default) or "yaml".
	Format string `json:"format"`
	// DomainDetails adds libvirt_* host variables read from the domain definitions.
	DomainDetails *bool `json:"domainDetails,omitempty"`

	// Logging

	// LogLevel is one of "debug", "info", "warn" or "error".
	LogLevel string `json:"logLevel"`
	// Development switches logs to a human-readable format.
	Development bool `json:"development"`

	// Metrics is the configuration of the Prometheus textfile.
	Metrics struct {
		// TextfilePath is where metrics are written after each run. Empty disables metrics.
		TextfilePath string `json:"textfilePath"`
	} `json:"metrics"`

	// ConfigMap is the configuration for publishing the inventory to Kubernetes.
	ConfigMap struct {
		// Enabled turns publishing on.
		Enabled bool `json:"enabled"`
		// KubeconfigPath is the path to the kubeconfig file.
		//
		// It can be set to "in-cluster" to use the in-cluster config. Empty uses the default loading rules.
		KubeconfigPath string `json:"kubeconfigPath"`
		// Namespace of the ConfigMap.
		Namespace string `json:"namespace"`
		// Name of the ConfigMap.
		Name string `json:"name"`
	} `json:"configMap"`
}

// applyEnv overrides the configuration with the environment.
func (c *Config) applyEnv() {
	c.URI = getEnv(URIEnvKey, c.URI)
	c.Format = getEnv(FormatEnvKey, c.Format)
	c.LogLevel = getEnv(LogLevelEnvKey, c.LogLevel)

	if os.Getenv(DomainDetailsEnvKey) != "" {
		c.DomainDetails = ptr.To(getEnvBool(DomainDetailsEnvKey, false))
	}
}

func (c *Config) connectTimeout() time.Duration {
	return ptr.Deref(c.ConnectTimeout, metav1.Duration{Duration: vmm.DefaultConnectTimeout}).Duration
}

func (c *Config) queryTimeout() time.Duration {
	return ptr.Deref(c.QueryTimeout, metav1.Duration{Duration: vmm.DefaultQueryTimeout}).Duration
}

func (c *Config) domainDetails() bool {
	return ptr.Deref(c.DomainDetails, false)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}
