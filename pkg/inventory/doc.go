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

// Package inventory shapes virtual machines into an Ansible dynamic inventory.
//
// The package does not talk to any hypervisor. Callers provide Domain snapshots (see pkg/vmm for the libvirt
// implementation) and get back a Document:
//
//	{
//	  "_meta": {"hostvars": {"web1": {"ansible_host": ["10.0.0.5"]}}},
//	  "all": {"hosts": ["web1"], "vars": {}},
//	  "libvirt_vms": {"hosts": ["web1"]},
//	  "running": {"hosts": ["web1"]}
//	}
//
// # Groups
//
//   - all: every domain. This is the only group carrying "vars".
//   - libvirt_vms: every domain.
//   - running / stopped: domains by run state at enumeration time. A group only exists once it has a member.
//
// # Addresses
//
// "ansible_host" lists the addresses reported by the guest agent. Inactive domains are never queried and a domain
// whose agent cannot be reached keeps its group memberships with an empty list.
package inventory
