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

package adapter

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"

	"github.com/alexandremahdhaoui/libvirt-inventory/pkg/inventory"
)

const (
	// ManagedByLabel is set on every ConfigMap written by the publisher.
	ManagedByLabel = "app.kubernetes.io/managed-by"
	managedByValue = "libvirt-inventory"
)

var (
	ErrConfigMapNameRequired = errors.New("configmap name is required")

	errPublishInventory = errors.New("publishing inventory")
)

// --------------------------------------------------- INTERFACES --------------------------------------------------- //

// Inventory publishes a rendered inventory.
type Inventory interface {
	// Publish stores data, the inventory encoded with format.
	Publish(ctx context.Context, data []byte, format inventory.Format) error
}

// --------------------------------------------------- CONSTRUCTORS ------------------------------------------------- //

// NewInventoryConfigMap returns an Inventory writing to the ConfigMap namespace/name.
func NewInventoryConfigMap(c client.Client, namespace, name string) Inventory {
	return &configMapInventory{
		client:    c,
		namespace: namespace,
		name:      name,
	}
}

// --------------------------------------------- CONCRETE IMPLEMENTATION -------------------------------------------- //

type configMapInventory struct {
	client    client.Client
	namespace string
	name      string
}

// Publish creates or updates the ConfigMap. The data is stored under "inventory.json" or "inventory.yaml" and any
// key left over from the other format is removed.
func (c *configMapInventory) Publish(ctx context.Context, data []byte, format inventory.Format) error {
	if c.name == "" {
		return ErrConfigMapNameRequired
	}

	key := dataKey(format)

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      c.name,
			Namespace: c.namespace,
		},
	}

	if _, err := controllerutil.CreateOrUpdate(ctx, c.client, cm, func() error {
		if cm.Labels == nil {
			cm.Labels = make(map[string]string)
		}
		cm.Labels[ManagedByLabel] = managedByValue

		cm.Data = map[string]string{key: string(data)}
		return nil
	}); err != nil {
		return errors.Join(err, fmt.Errorf("configmap=%s/%s", c.namespace, c.name), errPublishInventory)
	}

	return nil
}

func dataKey(format inventory.Format) string {
	if format == inventory.FormatYAML {
		return "inventory.yaml"
	}
	return "inventory.json"
}
