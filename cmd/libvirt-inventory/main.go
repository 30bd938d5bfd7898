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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/alexandremahdhaoui/libvirt-inventory/internal/util/logging"
	"github.com/alexandremahdhaoui/libvirt-inventory/pkg/vmm"
)

const (
	Name = "libvirt-inventory"
)

var (
	Version        = "dev" //nolint:gochecknoglobals // set by ldflags
	CommitSHA      = "n/a" //nolint:gochecknoglobals // set by ldflags
	BuildTimestamp = "n/a" //nolint:gochecknoglobals // set by ldflags
)

// flags holds the command-line arguments. Ansible calls dynamic inventories with either "--list" or "--host <name>".
type flags struct {
	list       bool
	host       string
	uri        string
	format     string
	configPath string
	version    bool
}

func parseFlags(args []string) (flags, error) {
	var f flags

	fs := flag.NewFlagSet(Name, flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), `Usage: %s [--list | --host <name>] [options]

Prints an Ansible dynamic inventory of the virtual machines of a libvirt host.

Options:
`, Name)
		fs.PrintDefaults()
		fmt.Fprintf(fs.Output(), `
Environment Variables:
  %s  Path to a YAML configuration file
  %s           libvirt connection URI (default: %s)
  %s        Output format: json or yaml
  %s  Add libvirt_* host variables (set to "true")
  %s                       debug, info, warn or error
`, ConfigPathEnvKey, URIEnvKey, vmm.DefaultURI, FormatEnvKey, DomainDetailsEnvKey, LogLevelEnvKey)
	}

	fs.BoolVar(&f.list, "list", false, "print the whole inventory (default)")
	fs.StringVar(&f.host, "host", "", "print the variables of a single host")
	fs.StringVar(&f.uri, "uri", "", "libvirt connection URI, e.g. qemu+ssh://root@10.0.0.73/system")
	fs.StringVar(&f.format, "format", "", "output format: json or yaml")
	fs.StringVar(&f.configPath, "config", os.Getenv(ConfigPathEnvKey), "path to a YAML configuration file")
	fs.BoolVar(&f.version, "version", false, "print the version and exit")

	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}

	if f.list {
		f.host = ""
	}

	return f, nil
}

// apply overrides config with the flags that were set.
func (f flags) apply(config *Config) {
	if f.uri != "" {
		config.URI = f.uri
	}
	if f.format != "" {
		config.Format = f.format
	}
	if config.URI == "" {
		config.URI = vmm.DefaultURI
	}
}

// ------------------------------------------------- Main ----------------------------------------------------------- //

func main() {
	f, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	} else if err != nil {
		os.Exit(2)
	}

	if f.version {
		_, _ = fmt.Fprintf(os.Stdout, "%s version %s (%s) %s\n", Name, Version, CommitSHA, BuildTimestamp)
		return
	}

	// --------------------------------------------- Signals -------------------------------------------------------- //

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------------------------------- Config --------------------------------------------------------- //

	config, configErr := loadConfig(f.configPath)
	if configErr != nil {
		config = &Config{}
	}
	config.applyEnv()
	f.apply(config)

	// --------------------------------------------- Logging -------------------------------------------------------- //

	logger := logging.Setup(logging.Options{
		Development: config.Development,
		Level:       logging.ParseLevel(config.LogLevel),
		Output:      os.Stderr,
	})

	if configErr != nil {
		slog.ErrorContext(ctx, "loading configuration, using defaults", "path", f.configPath, "error", configErr.Error())
	}

	slog.DebugContext(ctx, "starting", "binary", Name, "version", Version, "commit", CommitSHA, "uri", config.URI)

	// --------------------------------------------- Run ------------------------------------------------------------ //

	newApp(config, logger, os.Stdout).run(ctx, f.host)
}
