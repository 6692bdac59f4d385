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
	"net"
	"slices"
	"strings"

	"github.com/yl2chen/cidranger"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"kuryr-operator/internal/config"
	"kuryr-operator/internal/kerrors"
	"kuryr-operator/internal/kube"
	"kuryr-operator/pkg/openstack"
)

func newSubnetsDriver(key string, neutron openstack.Interface, subnetID, cidr, externalCIDR string) SubnetsDriver {
	def := &DefaultSubnets{Neutron: neutron, SubnetID: subnetID}
	switch key {
	case config.DriverAnnotation:
		var fallback SubnetsDriver = def
		if cidr != "" {
			fallback = &CIDRSubnets{Neutron: neutron, CIDR: cidr}
		}
		return &AnnotationSubnets{Neutron: neutron, Fallback: fallback}
	case config.DriverCIDR:
		return &CIDRSubnets{Neutron: neutron, CIDR: cidr}
	case config.DriverExternal:
		if externalCIDR == "" {
			externalCIDR = config.DefaultExternalCIDR
		}
		return &CIDRSubnets{Neutron: neutron, CIDR: externalCIDR}
	default:
		return def
	}
}

// AnnotationSubnets uses the subnet named by the object's subnet
// annotation and defers to Fallback for objects without one.
type AnnotationSubnets struct {
	Neutron  openstack.Interface
	Fallback SubnetsDriver
}

func (d *AnnotationSubnets) GetSubnets(ctx context.Context, obj client.Object, projectID string) (Subnets, error) {
	subnetID := obj.GetAnnotations()[kube.AnnotationSubnet]
	if subnetID == "" {
		return d.Fallback.GetSubnets(ctx, obj, projectID)
	}
	details, err := getSubnetDetails(ctx, d.Neutron, subnetID)
	if err != nil {
		return nil, err
	}
	return Subnets{details.ID: details}, nil
}

// CIDRSubnets finds the project's subnet with the configured CIDR.
type CIDRSubnets struct {
	Neutron openstack.Interface
	CIDR    string
}

func (d *CIDRSubnets) GetSubnets(ctx context.Context, obj client.Object, projectID string) (Subnets, error) {
	if d.CIDR == "" {
		return nil, &kerrors.ConfigError{Option: "cidr", Msg: "no subnet CIDR configured"}
	}
	found, err := d.Neutron.ListSubnets(ctx, openstack.SubnetFilter{ProjectID: projectID, CIDR: d.CIDR})
	if err != nil {
		return nil, fmt.Errorf("list subnets of project %s: %w", projectID, err)
	}
	if len(found) == 0 {
		return nil, kerrors.NewNotReady(fmt.Sprintf("subnet %s of project %s", d.CIDR, projectID), nil)
	}
	slices.SortFunc(found, func(a, b openstack.Subnet) int { return strings.Compare(a.ID, b.ID) })
	logf.FromContext(ctx).V(1).Info("subnet from CIDR", "cidr", d.CIDR, "project", projectID, "subnet", found[0].ID)
	details, err := getSubnetDetails(ctx, d.Neutron, found[0].ID)
	if err != nil {
		return nil, err
	}
	return Subnets{details.ID: details}, nil
}

// DefaultSubnets always returns the configured subnet.
type DefaultSubnets struct {
	Neutron  openstack.Interface
	SubnetID string
}

func (d *DefaultSubnets) GetSubnets(ctx context.Context, _ client.Object, _ string) (Subnets, error) {
	if d.SubnetID == "" {
		return nil, &kerrors.ConfigError{Option: "subnet", Msg: "no default subnet configured"}
	}
	details, err := getSubnetDetails(ctx, d.Neutron, d.SubnetID)
	if err != nil {
		return nil, err
	}
	return Subnets{details.ID: details}, nil
}

func getSubnetDetails(ctx context.Context, neutron openstack.Interface, subnetID string) (SubnetDetails, error) {
	subnet, err := neutron.GetSubnet(ctx, subnetID)
	if err != nil {
		return SubnetDetails{}, fmt.Errorf("get subnet %s: %w", subnetID, err)
	}
	if subnet == nil {
		return SubnetDetails{}, kerrors.NewNotReady("subnet "+subnetID, nil)
	}
	network, err := neutron.GetNetwork(ctx, subnet.NetworkID)
	if err != nil {
		return SubnetDetails{}, fmt.Errorf("get network %s: %w", subnet.NetworkID, err)
	}
	if network == nil {
		return SubnetDetails{}, kerrors.NewNotReady("network "+subnet.NetworkID, nil)
	}
	return SubnetDetails{
		ID:        subnet.ID,
		Name:      subnet.Name,
		CIDR:      subnet.CIDR,
		NetworkID: subnet.NetworkID,
		ProjectID: subnet.ProjectID,
		MTU:       network.MTU,
	}, nil
}

type subnetEntry struct {
	ipNet    net.IPNet
	subnetID string
}

func (e *subnetEntry) Network() net.IPNet {
	return e.ipNet
}

// SubnetForIP returns the ID of the only subnet whose CIDR contains ip.
// Zero or several candidates is an IntegrityError.
func SubnetForIP(subnets Subnets, ip string) (string, error) {
	addr := net.ParseIP(ip)
	if addr == nil {
		return "", kerrors.NewIntegrity("invalid address %q", ip)
	}
	ranger := cidranger.NewPCTrieRanger()
	// the trie keeps one entry per network
	perNetwork := map[string]int{}
	for id, s := range subnets {
		_, ipNet, err := net.ParseCIDR(s.CIDR)
		if err != nil {
			return "", kerrors.NewIntegrity("subnet %s has invalid CIDR %q", id, s.CIDR)
		}
		if err := ranger.Insert(&subnetEntry{ipNet: *ipNet, subnetID: id}); err != nil {
			return "", fmt.Errorf("index subnet %s: %w", id, err)
		}
		perNetwork[ipNet.String()]++
	}
	entries, err := ranger.ContainingNetworks(addr)
	if err != nil {
		return "", fmt.Errorf("look up %s: %w", ip, err)
	}
	matches := 0
	for _, e := range entries {
		n := e.Network()
		matches += perNetwork[n.String()]
	}
	if matches != 1 {
		return "", kerrors.NewIntegrity("found %d subnets for IP %s", matches, ip)
	}
	return entries[0].(*subnetEntry).subnetID, nil
}
