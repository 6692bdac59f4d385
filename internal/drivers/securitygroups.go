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
	"slices"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/config"
	"kuryr-operator/internal/kerrors"
	"kuryr-operator/internal/kube"
	"kuryr-operator/internal/policy"
	"kuryr-operator/pkg/openstack"
)

func newSecurityGroupsDriver(key string, cfg config.Config, c client.Client, neutron openstack.Interface, engine *policy.Engine) (SecurityGroupsDriver, error) {
	def := &DefaultSecurityGroups{IDs: cfg.PodSecurityGroups}
	switch key {
	case config.DriverAnnotation:
		fallback, err := newSecurityGroupsDriver(cfg.FallbackSecurityGroupsDriver, cfg, c, neutron, engine)
		if err != nil {
			return nil, err
		}
		return &AnnotationSecurityGroups{Client: c, Neutron: neutron, Fallback: fallback}, nil
	case config.DriverPolicy:
		if engine == nil {
			return nil, &kerrors.ConfigError{Option: "securityGroupsDriver", Msg: "policy driver needs the network policy engine"}
		}
		return &PolicySecurityGroups{Client: c, Engine: engine}, nil
	case config.DriverNamed:
		return &NamedSecurityGroups{Neutron: neutron, Name: cfg.PodSecurityGroupName}, nil
	default:
		return def, nil
	}
}

// AnnotationSecurityGroups prefers, in order, the IDs recorded in the
// referenced KuryrSecurityGroup status, the raw ID annotation, and then
// Fallback. IDs that do not exist are dropped. For pods IDs of another
// project are dropped as well.
type AnnotationSecurityGroups struct {
	Client   client.Client
	Neutron  openstack.Interface
	Fallback SecurityGroupsDriver
}

func (d *AnnotationSecurityGroups) GetSecurityGroups(ctx context.Context, obj client.Object, projectID string) ([]string, error) {
	log := logf.FromContext(ctx)
	ids, found, err := d.fromKuryrSecurityGroup(ctx, obj)
	if err != nil {
		return nil, err
	}
	if !found {
		if raw, ok := obj.GetAnnotations()[kube.AnnotationSecurityGroups]; ok {
			ids, found = config.SplitList(raw), true
		}
	}
	if found {
		_, isPod := obj.(*corev1.Pod)
		valid, err := d.validate(ctx, ids, projectID, isPod)
		if err != nil {
			return nil, err
		}
		if len(valid) > 0 {
			return valid, nil
		}
		log.V(1).Info("no valid security group in annotations; using fallback", "requested", ids)
	}
	return d.Fallback.GetSecurityGroups(ctx, obj, projectID)
}

func (d *AnnotationSecurityGroups) fromKuryrSecurityGroup(ctx context.Context, obj client.Object) ([]string, bool, error) {
	var name string
	switch obj.(type) {
	case *corev1.Service:
		name = obj.GetName()
	default:
		name = obj.GetAnnotations()[kube.AnnotationSecurityGroupCRD]
	}
	if name == "" {
		return nil, false, nil
	}
	var ksg kuryrv1.KuryrSecurityGroup
	err := d.Client.Get(ctx, types.NamespacedName{Namespace: obj.GetNamespace(), Name: name}, &ksg)
	switch {
	case apierrors.IsNotFound(err):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("get kuryrsecuritygroup %s/%s: %w", obj.GetNamespace(), name, err)
	}
	return ksg.Status.SecurityGroupIDs, true, nil
}

func (d *AnnotationSecurityGroups) validate(ctx context.Context, ids []string, projectID string, sameProject bool) ([]string, error) {
	var out []string
	for _, id := range ids {
		if slices.Contains(out, id) {
			continue
		}
		sg, err := d.Neutron.GetSecurityGroup(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get security group %s: %w", id, err)
		}
		if sg == nil || (sameProject && sg.ProjectID != projectID) {
			continue
		}
		out = append(out, sg.ID)
	}
	return out, nil
}

// PolicySecurityGroups derives security groups from the network policies
// selecting a pod. A Service gets the groups of the first pod its selector
// matches, since all of them are expected to carry the same labels.
type PolicySecurityGroups struct {
	Client client.Client
	Engine *policy.Engine
}

func (d *PolicySecurityGroups) GetSecurityGroups(ctx context.Context, obj client.Object, _ string) ([]string, error) {
	switch o := obj.(type) {
	case *corev1.Pod:
		return d.Engine.SecurityGroupsForPod(ctx, o)
	case *corev1.Service:
		if len(o.Spec.Selector) == 0 {
			return d.Engine.Defaults()
		}
		var pods corev1.PodList
		if err := d.Client.List(ctx, &pods, client.InNamespace(o.Namespace), client.MatchingLabels(o.Spec.Selector)); err != nil {
			return nil, fmt.Errorf("list pods of service %s/%s: %w", o.Namespace, o.Name, err)
		}
		if len(pods.Items) == 0 {
			return d.Engine.Defaults()
		}
		return d.Engine.SecurityGroupsForPod(ctx, &pods.Items[0])
	default:
		return nil, fmt.Errorf("unsupported object %T", obj)
	}
}

// NamedSecurityGroups returns the project's security groups called Name.
type NamedSecurityGroups struct {
	Neutron openstack.Interface
	Name    string
}

func (d *NamedSecurityGroups) GetSecurityGroups(ctx context.Context, _ client.Object, projectID string) ([]string, error) {
	if d.Name == "" {
		return nil, &kerrors.ConfigError{Option: "podSecurityGroupName", Msg: "no security group name configured"}
	}
	sgs, err := d.Neutron.ListSecurityGroups(ctx, projectID, d.Name)
	if err != nil {
		return nil, fmt.Errorf("list security groups %q of project %s: %w", d.Name, projectID, err)
	}
	if len(sgs) == 0 {
		return nil, kerrors.NewNotReady(fmt.Sprintf("security group %q of project %s", d.Name, projectID), nil)
	}
	ids := make([]string, 0, len(sgs))
	for _, sg := range sgs {
		ids = append(ids, sg.ID)
	}
	return ids, nil
}

// DefaultSecurityGroups returns the configured pod security groups.
type DefaultSecurityGroups struct {
	IDs []string
}

func (d *DefaultSecurityGroups) GetSecurityGroups(context.Context, client.Object, string) ([]string, error) {
	if len(d.IDs) == 0 {
		return nil, &kerrors.ConfigError{Option: "podSecurityGroups", Msg: "no default security groups configured"}
	}
	return unique(d.IDs), nil
}

func unique(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
