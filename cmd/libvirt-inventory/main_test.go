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
	"errors"
	"testing"

	flag "github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexandremahdhaoui/libvirt-inventory/pkg/vmm"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected flags
	}{
		{
			name:     "no arguments",
			args:     nil,
			expected: flags{},
		},
		{
			name:     "list",
			args:     []string{"--list"},
			expected: flags{list: true},
		},
		{
			name:     "host",
			args:     []string{"--host", "web1"},
			expected: flags{host: "web1"},
		},
		{
			name:     "list wins over host",
			args:     []string{"--host", "web1", "--list"},
			expected: flags{list: true},
		},
		{
			name: "options",
			args: []string{"--list", "--uri", "qemu+ssh://root@10.0.0.73/system", "--format", "yaml", "--config", "/etc/libvirt-inventory.yaml"},
			expected: flags{
				list:       true,
				uri:        "qemu+ssh://root@10.0.0.73/system",
				format:     "yaml",
				configPath: "/etc/libvirt-inventory.yaml",
			},
		},
		{
			name:     "version",
			args:     []string{"--version"},
			expected: flags{version: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(ConfigPathEnvKey, "")

			f, err := parseFlags(tt.args)
			require.NoError(t, err)

			assert.Equal(t, tt.expected, f)
		})
	}
}

func TestParseFlags_ConfigPathFromEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvKey, "/etc/libvirt-inventory.yaml")

	f, err := parseFlags([]string{"--list"})
	require.NoError(t, err)

	assert.Equal(t, "/etc/libvirt-inventory.yaml", f.configPath)
}

func TestParseFlags_Errors(t *testing.T) {
	t.Run("help", func(t *testing.T) {
		_, err := parseFlags([]string{"--help"})
		assert.True(t, errors.Is(err, flag.ErrHelp))
	})

	t.Run("unknown flag", func(t *testing.T) {
		_, err := parseFlags([]string{"--refresh-cache"})
		assert.Error(t, err)
		assert.False(t, errors.Is(err, flag.ErrHelp))
	})
}

func TestFlags_Apply(t *testing.T) {
	t.Run("defaults the uri", func(t *testing.T) {
		config := &Config{}
		flags{}.apply(config)

		assert.Equal(t, vmm.DefaultURI, config.URI)
		assert.Empty(t, config.Format)
	})

	t.Run("flags win over config", func(t *testing.T) {
		config := &Config{URI: "qemu:///session", Format: "json"}
		flags{uri: "test:///default", format: "yaml"}.apply(config)

		assert.Equal(t, "test:///default", config.URI)
		assert.Equal(t, "yaml", config.Format)
	})

	t.Run("unset flags keep config", func(t *testing.T) {
		config := &Config{URI: "qemu:///session", Format: "yaml"}
		flags{}.apply(config)

		assert.Equal(t, "qemu:///session", config.URI)
		assert.Equal(t, "yaml", config.Format)
	})
}
