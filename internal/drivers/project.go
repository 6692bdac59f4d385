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

package drivers

import (
	"context"
	"fmt"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"kuryr-operator/internal/config"
	"kuryr-operator/internal/kerrors"
	"kuryr-operator/internal/kube"
	"kuryr-operator/pkg/openstack"
)

func newProjectDriver(key string, cfg config.Config, neutron openstack.Interface) ProjectDriver {
	def := &DefaultProject{ProjectID: cfg.DefaultProject}
	switch key {
	case config.DriverAnnotation:
		return &AnnotationProject{Neutron: neutron, Default: def}
	case config.DriverExternal:
		return &ExternalProject{}
	default:
		return def
	}
}

// AnnotationProject returns the project owning the subnet named by the
// object's subnet annotation.
type AnnotationProject struct {
	Neutron openstack.Interface
	Default ProjectDriver
}

func (d *AnnotationProject) GetProject(ctx context.Context, obj client.Object) (string, error) {
	subnetID := obj.GetAnnotations()[kube.AnnotationSubnet]
	if subnetID == "" {
		return d.Default.GetProject(ctx, obj)
	}
	subnet, err := d.Neutron.GetSubnet(ctx, subnetID)
	if err != nil {
		return "", fmt.Errorf("get subnet %s: %w", subnetID, err)
	}
	if subnet == nil {
		return "", kerrors.NewNotReady("subnet "+subnetID, nil)
	}
	logf.FromContext(ctx).V(1).Info("project from subnet annotation", "subnet", subnetID, "project", subnet.ProjectID)
	return subnet.ProjectID, nil
}

// ExternalProject takes the project from the object name, up to the
// first dash.
type ExternalProject struct{}

func (ExternalProject) GetProject(_ context.Context, obj client.Object) (string, error) {
	project, _, _ := strings.Cut(obj.GetName(), "-")
	return project, nil
}

type DefaultProject struct {
	ProjectID string
}

func (d *DefaultProject) GetProject(context.Context, client.Object) (string, error) {
	if d.ProjectID == "" {
		return "", &kerrors.ConfigError{Option: "defaultProject", Msg: "no default project configured"}
	}
	return d.ProjectID, nil
}
