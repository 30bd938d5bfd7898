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

package inventory

import (
	"context"
	"log/slog"
)

// ResolveAddresses returns the addresses reported by the guest agent of d.
//
// Inactive domains are not queried. A failing query is logged and yields the addresses collected so far, which is
// always an empty, non-nil list.
func ResolveAddresses(ctx context.Context, d Domain) []string {
	return resolveAddresses(ctx, d, nopObserver{})
}

func resolveAddresses(ctx context.Context, d Domain, obs Observer) []string {
	ips := []string{}
	if !d.Active() {
		return ips
	}

	ifaces, err := d.InterfaceAddresses(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "getting IP for domain", "domain", d.Name(), "error", err.Error())
		obs.ObserveResolutionFailure(d.Name(), err)
		return ips
	}

	for _, iface := range ifaces {
		if len(iface.Addrs) == 0 {
			continue
		}
		ips = append(ips, iface.Addrs...)
	}

	return ips
}
