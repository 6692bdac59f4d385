// Package fake provides an in-memory Neutron for tests.
package fake

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"kuryr-operator/pkg/openstack"
)

// Neutron implements openstack.Interface over maps. Call counters let tests
// assert that no writes happened.
type Neutron struct {
	mu sync.Mutex

	Networks       map[string]openstack.Network
	Subnets        map[string]openstack.Subnet
	Ports          map[string]openstack.Port
	SecurityGroups map[string]openstack.SecurityGroup
	Rules          map[string]openstack.SecurityGroupRule
	Quota          *openstack.PortQuota

	// ConflictOnPortUpdate makes UpdatePortSecurityGroups answer 409.
	ConflictOnPortUpdate bool

	PortUpdates int
	RuleCreates int
	RuleDeletes int
	nextRuleID  int
}

func NewNeutron() *Neutron {
	return &Neutron{
		Networks:       map[string]openstack.Network{},
		Subnets:        map[string]openstack.Subnet{},
		Ports:          map[string]openstack.Port{},
		SecurityGroups: map[string]openstack.SecurityGroup{},
		Rules:          map[string]openstack.SecurityGroupRule{},
	}
}

var _ openstack.Interface = (*Neutron)(nil)

func (n *Neutron) AddSubnet(s openstack.Subnet) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Subnets[s.ID] = s
	if _, ok := n.Networks[s.NetworkID]; !ok && s.NetworkID != "" {
		n.Networks[s.NetworkID] = openstack.Network{ID: s.NetworkID, ProjectID: s.ProjectID, MTU: 1450}
	}
}

func (n *Neutron) AddSecurityGroup(sg openstack.SecurityGroup) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.SecurityGroups[sg.ID] = sg
}

func (n *Neutron) AddPort(p openstack.Port) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Ports[p.ID] = p
}

// RuleList returns the stored rules sorted by ID.
func (n *Neutron) RuleList() []openstack.SecurityGroupRule {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]openstack.SecurityGroupRule, 0, len(n.Rules))
	for _, r := range n.Rules {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b openstack.SecurityGroupRule) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (n *Neutron) GetNetwork(_ context.Context, id string) (*openstack.Network, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if v, ok := n.Networks[id]; ok {
		return &v, nil
	}
	return nil, nil
}

func (n *Neutron) GetSubnet(_ context.Context, id string) (*openstack.Subnet, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if v, ok := n.Subnets[id]; ok {
		return &v, nil
	}
	return nil, nil
}

func (n *Neutron) ListSubnets(_ context.Context, f openstack.SubnetFilter) ([]openstack.Subnet, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []openstack.Subnet
	for _, s := range n.Subnets {
		if f.ProjectID != "" && s.ProjectID != f.ProjectID {
			continue
		}
		if f.CIDR != "" && s.CIDR != f.CIDR {
			continue
		}
		if f.Name != "" && s.Name != f.Name {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (n *Neutron) GetPort(_ context.Context, id string) (*openstack.Port, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if v, ok := n.Ports[id]; ok {
		v.SecurityGroups = slices.Clone(v.SecurityGroups)
		return &v, nil
	}
	return nil, nil
}

func (n *Neutron) UpdatePortSecurityGroups(_ context.Context, id string, sgs []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ConflictOnPortUpdate {
		return &openstack.StatusError{Service: "neutron", Method: http.MethodPut, Path: "/v2.0/ports/" + id, Code: http.StatusConflict}
	}
	p, ok := n.Ports[id]
	if !ok {
		return &openstack.StatusError{Service: "neutron", Method: http.MethodPut, Path: "/v2.0/ports/" + id, Code: http.StatusNotFound}
	}
	p.SecurityGroups = slices.Clone(sgs)
	n.Ports[id] = p
	n.PortUpdates++
	return nil
}

func (n *Neutron) GetSecurityGroup(_ context.Context, id string) (*openstack.SecurityGroup, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if v, ok := n.SecurityGroups[id]; ok {
		return &v, nil
	}
	return nil, nil
}

func (n *Neutron) ListSecurityGroups(_ context.Context, projectID, name string) ([]openstack.SecurityGroup, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []openstack.SecurityGroup
	for _, sg := range n.SecurityGroups {
		if projectID != "" && sg.ProjectID != projectID {
			continue
		}
		if name != "" && sg.Name != name {
			continue
		}
		out = append(out, sg)
	}
	slices.SortFunc(out, func(a, b openstack.SecurityGroup) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}

func (n *Neutron) CreateSecurityGroupRule(_ context.Context, rule openstack.SecurityGroupRule) (*openstack.SecurityGroupRule, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, existing := range n.Rules {
		same := existing
		same.ID = ""
		same.Description = rule.Description
		if same == rule {
			return nil, &openstack.StatusError{
				Service: "neutron",
				Method:  http.MethodPost,
				Path:    "/v2.0/security-group-rules",
				Code:    http.StatusConflict,
				Body:    fmt.Sprintf("Security group rule already exists. Rule id is %s.", existing.ID),
			}
		}
	}
	n.nextRuleID++
	rule.ID = fmt.Sprintf("rule-%d", n.nextRuleID)
	n.Rules[rule.ID] = rule
	n.RuleCreates++
	return &rule, nil
}

func (n *Neutron) DeleteSecurityGroupRule(_ context.Context, id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.Rules[id]; ok {
		delete(n.Rules, id)
		n.RuleDeletes++
	}
	return nil
}

func (n *Neutron) GetPortQuota(_ context.Context, _ string) (*openstack.PortQuota, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.Quota == nil {
		return &openstack.PortQuota{Limit: -1}, nil
	}
	q := *n.Quota
	return &q, nil
}
