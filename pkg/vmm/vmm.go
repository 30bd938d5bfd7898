/*
Copyright 2024 Alexandre Mahdhaoui

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

// Package vmm reads virtual machines from a libvirt hypervisor.
package vmm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"libvirt.org/go/libvirt"
)

var (
	ErrConnect     = errors.New("failed to connect to libvirt")
	ErrListDomains = errors.New("failed to list domains")
	ErrTimeout     = errors.New("timed out waiting for libvirt")

	errLibvirtNotInitialized = errors.New("libvirt connection is not initialized")
	errCallsInFlight         = errors.New("libvirt calls still in flight, leaving handles open")
	errGetDomainName         = errors.New("failed to get domain name")
	errGetDomainState        = errors.New("failed to get domain state")
)

const (
	// DefaultURI is the libvirt URI used when none is configured.
	DefaultURI = "qemu:///system"

	DefaultConnectTimeout = 10 * time.Second
	DefaultQueryTimeout   = 5 * time.Second
)

// VMM holds a connection to a libvirt hypervisor.
type VMM struct {
	conn    *libvirt.Connect
	domains []*Domain
	calls   *inflight

	uri            string
	connectTimeout time.Duration
	queryTimeout   time.Duration
	log            logr.Logger
}

// Option is a function that modifies VMM configuration
type Option func(*VMM)

// WithURI sets the libvirt connection URI, e.g. "qemu+ssh://root@10.0.0.73/system".
func WithURI(uri string) Option {
	return func(v *VMM) {
		if uri != "" {
			v.uri = uri
		}
	}
}

// WithConnectTimeout bounds the time spent opening the connection. Zero disables the bound.
func WithConnectTimeout(d time.Duration) Option {
	return func(v *VMM) {
		v.connectTimeout = d
	}
}

// WithQueryTimeout bounds every query issued once connected. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(v *VMM) {
		v.queryTimeout = d
	}
}

// WithLogger sets the logger used for per-domain diagnostics.
func WithLogger(log logr.Logger) Option {
	return func(v *VMM) {
		v.log = log
	}
}

// New connects to libvirt. The connection defaults to qemu:///system.
func New(ctx context.Context, opts ...Option) (*VMM, error) {
	v := &VMM{
		uri:            DefaultURI,
		connectTimeout: DefaultConnectTimeout,
		queryTimeout:   DefaultQueryTimeout,
		log:            logr.Discard(),
		calls:          &inflight{},
	}

	for _, opt := range opts {
		opt(v)
	}

	conn, err := call(ctx, v.calls, v.connectTimeout, func() (*libvirt.Connect, error) {
		return libvirt.NewConnect(v.uri)
	})
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("uri=%s", v.uri), ErrConnect)
	}

	v.conn = conn
	v.log.V(1).Info("connected to libvirt", "uri", v.uri)

	return v, nil
}

// URI returns the connection URI.
func (v *VMM) URI() string {
	return v.uri
}

// ListDomains returns a snapshot of every domain defined on the hypervisor, active or not.
//
// Domains whose name or state cannot be read are skipped.
func (v *VMM) ListDomains(ctx context.Context) ([]*Domain, error) {
	if v.conn == nil {
		return nil, errLibvirtNotInitialized
	}

	doms, err := call(ctx, v.calls, v.queryTimeout, func() ([]libvirt.Domain, error) {
		return v.conn.ListAllDomains(0)
	})
	if err != nil {
		return nil, errors.Join(err, ErrListDomains)
	}

	out := make([]*Domain, 0, len(doms))
	for i := range doms {
		d, err := v.snapshot(ctx, doms[i])
		if err != nil {
			v.log.Error(err, "skipping domain")
			if v.calls.running() == 0 {
				_ = doms[i].Free()
			}
			continue
		}

		out = append(out, d)
		v.domains = append(v.domains, d)
	}

	return out, nil
}

func (v *VMM) snapshot(ctx context.Context, dom libvirt.Domain) (*Domain, error) {
	name, err := dom.GetName()
	if err != nil {
		return nil, errors.Join(err, errGetDomainName)
	}

	active, err := call(ctx, v.calls, v.queryTimeout, dom.IsActive)
	if err != nil {
		return nil, errors.Join(err, fmt.Errorf("domain=%s", name), errGetDomainState)
	}

	return &Domain{
		dom:          dom,
		name:         name,
		active:       active,
		queryTimeout: v.queryTimeout,
		calls:        v.calls,
	}, nil
}

// Close frees the domains returned by ListDomains and closes the libvirt connection.
//
// While a call that timed out is still running inside libvirt, Close frees nothing and returns an error: the handles
// it uses stay valid until the process exits.
func (v *VMM) Close() error {
	if n := v.calls.running(); n > 0 {
		return errors.Join(fmt.Errorf("calls=%d", n), errCallsInFlight)
	}

	for _, d := range v.domains {
		_ = d.dom.Free()
	}
	v.domains = nil

	if v.conn == nil {
		return nil
	}

	_, err := v.conn.Close()
	v.conn = nil
	return err
}
