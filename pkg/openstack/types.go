package openstack

import "context"

// Interface is the subset of the OpenStack networking API the controllers
// use. Getters return (nil, nil) when the resource does not exist.
type Interface interface {
	GetNetwork(ctx context.Context, networkID string) (*Network, error)
	GetSubnet(ctx context.Context, subnetID string) (*Subnet, error)
	ListSubnets(ctx context.Context, filter SubnetFilter) ([]Subnet, error)
	GetPort(ctx context.Context, portID string) (*Port, error)
	UpdatePortSecurityGroups(ctx context.Context, portID string, securityGroupIDs []string) error
	GetSecurityGroup(ctx context.Context, id string) (*SecurityGroup, error)
	ListSecurityGroups(ctx context.Context, projectID, name string) ([]SecurityGroup, error)
	CreateSecurityGroupRule(ctx context.Context, rule SecurityGroupRule) (*SecurityGroupRule, error)
	DeleteSecurityGroupRule(ctx context.Context, ruleID string) error
	GetPortQuota(ctx context.Context, projectID string) (*PortQuota, error)
}

type Port struct {
	ID             string    `json:"id"`
	NetworkID      string    `json:"network_id"`
	ProjectID      string    `json:"project_id,omitempty"`
	Name           string    `json:"name"`
	Status         string    `json:"status"`
	MAC            string    `json:"mac_address"`
	DeviceID       string    `json:"device_id"`
	FixedIPs       []FixedIP `json:"fixed_ips"`
	SecurityGroups []string  `json:"security_groups"`
}

type FixedIP struct {
	IP       string `json:"ip_address"`
	SubnetID string `json:"subnet_id"`
}

type Subnet struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CIDR      string `json:"cidr"`
	GatewayIP string `json:"gateway_ip,omitempty"`
	NetworkID string `json:"network_id"`
	ProjectID string `json:"project_id"`
}

// SubnetFilter narrows ListSubnets. Empty fields are ignored.
type SubnetFilter struct {
	ProjectID string
	CIDR      string
	Name      string
}

type Network struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
	MTU       int    `json:"mtu"`
}

type SecurityGroup struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
}

type SecurityGroupRule struct {
	ID              string `json:"id,omitempty"`
	SecurityGroupID string `json:"security_group_id"`
	Direction       string `json:"direction"`
	Ethertype       string `json:"ethertype,omitempty"`
	Protocol        string `json:"protocol,omitempty"`
	PortRangeMin    int    `json:"port_range_min,omitempty"`
	PortRangeMax    int    `json:"port_range_max,omitempty"`
	RemoteIPPrefix  string `json:"remote_ip_prefix,omitempty"`
	Description     string `json:"description,omitempty"`
}

// PortQuota is the port entry of a quota details answer. Limit -1 means
// unlimited.
type PortQuota struct {
	Limit    int `json:"limit"`
	Used     int `json:"used"`
	Reserved int `json:"reserved"`
}

// Exhausted reports a finite quota with no room left.
func (q PortQuota) Exhausted() bool {
	return q.Limit >= 0 && q.Used+q.Reserved >= q.Limit
}
