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

// Package drivers resolves the OpenStack project, subnets and security
// groups a Pod or Service is wired to. Each concern has several variants
// selected by configuration key.
package drivers

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"kuryr-operator/internal/config"
	"kuryr-operator/internal/policy"
	"kuryr-operator/pkg/openstack"
)

// SubnetDetails is the part of a Neutron subnet and its network that
// callers need to build ports and load balancers.
type SubnetDetails struct {
	ID        string
	Name      string
	CIDR      string
	NetworkID string
	ProjectID string
	MTU       int
}

// Subnets maps a subnet ID to its details.
type Subnets map[string]SubnetDetails

// NetworkingSpec is everything resolved for one object in one pass.
type NetworkingSpec struct {
	ProjectID        string
	Subnets          Subnets
	SecurityGroupIDs []string
}

type ProjectDriver interface {
	GetProject(ctx context.Context, obj client.Object) (string, error)
}

type SubnetsDriver interface {
	GetSubnets(ctx context.Context, obj client.Object, projectID string) (Subnets, error)
}

// SecurityGroupsDriver returns an ordered list of security group IDs
// without duplicates.
type SecurityGroupsDriver interface {
	GetSecurityGroups(ctx context.Context, obj client.Object, projectID string) ([]string, error)
}

// Resolvers holds the driver selected for every concern and object kind.
type Resolvers struct {
	PodProject            ProjectDriver
	ServiceProject        ProjectDriver
	PodSubnets            SubnetsDriver
	ServiceSubnets        SubnetsDriver
	PodSecurityGroups     SecurityGroupsDriver
	ServiceSecurityGroups SecurityGroupsDriver
}

// New builds the drivers named by cfg. engine may be nil when no policy
// driver is configured.
func New(cfg config.Config, c client.Client, neutron openstack.Interface, engine *policy.Engine) (*Resolvers, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Resolvers{
		PodProject:     newProjectDriver(cfg.PodProjectDriver, cfg, neutron),
		ServiceProject: newProjectDriver(cfg.ServiceProjectDriver, cfg, neutron),
		PodSubnets:     newSubnetsDriver(cfg.PodSubnetsDriver, neutron, cfg.PodSubnet, cfg.PodCIDR, cfg.ExternalCIDR),
		ServiceSubnets: newSubnetsDriver(cfg.ServiceSubnetsDriver, neutron, cfg.ServiceSubnet, cfg.ServiceCIDR, cfg.ExternalCIDR),
	}

	var err error
	if r.PodSecurityGroups, err = newSecurityGroupsDriver(cfg.PodSecurityGroupsDriver, cfg, c, neutron, engine); err != nil {
		return nil, err
	}
	if r.ServiceSecurityGroups, err = newSecurityGroupsDriver(cfg.ServiceSecurityGroupsDriver, cfg, c, neutron, engine); err != nil {
		return nil, err
	}
	return r, nil
}

// PodNetworking resolves project, subnets and security groups for pod.
func (r *Resolvers) PodNetworking(ctx context.Context, pod *corev1.Pod) (NetworkingSpec, error) {
	return resolve(ctx, pod, r.PodProject, r.PodSubnets, r.PodSecurityGroups)
}

// ServiceNetworking resolves project, subnets and security groups for svc.
func (r *Resolvers) ServiceNetworking(ctx context.Context, svc *corev1.Service) (NetworkingSpec, error) {
	return resolve(ctx, svc, r.ServiceProject, r.ServiceSubnets, r.ServiceSecurityGroups)
}

func resolve(ctx context.Context, obj client.Object, p ProjectDriver, s SubnetsDriver, sg SecurityGroupsDriver) (NetworkingSpec, error) {
	projectID, err := p.GetProject(ctx, obj)
	if err != nil {
		return NetworkingSpec{}, fmt.Errorf("resolve project: %w", err)
	}
	subnets, err := s.GetSubnets(ctx, obj, projectID)
	if err != nil {
		return NetworkingSpec{}, fmt.Errorf("resolve subnets: %w", err)
	}
	sgs, err := sg.GetSecurityGroups(ctx, obj, projectID)
	if err != nil {
		return NetworkingSpec{}, fmt.Errorf("resolve security groups: %w", err)
	}
	return NetworkingSpec{ProjectID: projectID, Subnets: subnets, SecurityGroupIDs: sgs}, nil
}
