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

package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// KuryrPortSpec identifies the Pod a KuryrPort belongs to.
type KuryrPortSpec struct {
	// podUid is the UID of the owning Pod. A KuryrPort whose podUid differs
	// from the live Pod belongs to a previous incarnation of that Pod.
	// +kubebuilder:validation:MinLength=1
	PodUID string `json:"podUid"`

	// podNodeName is the node the Pod was scheduled to.
	// +kubebuilder:validation:MinLength=1
	PodNodeName string `json:"podNodeName"`
}

// KuryrPortStatus is populated by the CNI side once ports are bound.
type KuryrPortStatus struct {
	// vifs maps interface name (eth0, ...) to the bound VIF.
	// +optional
	VIFs map[string]VIFStatus `json:"vifs,omitempty"`
}

// VIFStatus is one interface entry of a KuryrPort.
type VIFStatus struct {
	// default marks the interface carrying the Pod's default route.
	// +optional
	Default bool `json:"default,omitempty"`

	// vif is the os-vif serialized object.
	VIF VIF `json:"vif"`
}

// VIF mirrors the os-vif versioned object envelope. Field names are part of
// the wire contract with the CNI daemon.
type VIF struct {
	// +optional
	ObjectName string `json:"versioned_object.name,omitempty"`
	// +optional
	ObjectNamespace string `json:"versioned_object.namespace,omitempty"`
	// +optional
	ObjectVersion string  `json:"versioned_object.version,omitempty"`
	Data          VIFData `json:"versioned_object.data"`
}

// VIFData holds the port identity. id is the Neutron port ID.
type VIFData struct {
	ID string `json:"id"`
	// +optional
	Address string `json:"address,omitempty"`
	// +optional
	Active bool `json:"active,omitempty"`
	// +optional
	VIFName string `json:"vif_name,omitempty"`
	// +optional
	Network *VIFNetwork `json:"network,omitempty"`
}

type VIFNetwork struct {
	Data VIFNetworkData `json:"versioned_object.data"`
}

type VIFNetworkData struct {
	ID string `json:"id"`
	// +optional
	MTU int `json:"mtu,omitempty"`
	// +optional
	Subnets VIFSubnetList `json:"subnets,omitempty"`
}

type VIFSubnetList struct {
	Data VIFSubnetListData `json:"versioned_object.data"`
}

type VIFSubnetListData struct {
	// +optional
	Objects []VIFSubnet `json:"objects,omitempty"`
}

type VIFSubnet struct {
	Data VIFSubnetData `json:"versioned_object.data"`
}

type VIFSubnetData struct {
	CIDR string `json:"cidr"`
	// +optional
	Gateway string `json:"gateway,omitempty"`
	// +optional
	IPs VIFFixedIPList `json:"ips,omitempty"`
}

type VIFFixedIPList struct {
	Data VIFFixedIPListData `json:"versioned_object.data"`
}

type VIFFixedIPListData struct {
	// +optional
	Objects []VIFFixedIP `json:"objects,omitempty"`
}

type VIFFixedIP struct {
	Data VIFFixedIPData `json:"versioned_object.data"`
}

type VIFFixedIPData struct {
	Address string `json:"address"`
}

// PortID returns the Neutron port backing the VIF.
func (v VIF) PortID() string {
	return v.Data.ID
}

// FixedIPs lists every address bound to the VIF across its subnets.
func (v VIF) FixedIPs() []string {
	if v.Data.Network == nil {
		return nil
	}
	var out []string
	for _, subnet := range v.Data.Network.Data.Subnets.Data.Objects {
		for _, ip := range subnet.Data.IPs.Data.Objects {
			if ip.Data.Address != "" {
				out = append(out, ip.Data.Address)
			}
		}
	}
	return out
}

// +kubebuilder:object:root=true
// +kubebuilder:resource:shortName=kp
// +kubebuilder:printcolumn:name="PodUID",type=string,JSONPath=`.spec.podUid`
// +kubebuilder:printcolumn:name="Node",type=string,JSONPath=`.spec.podNodeName`

// KuryrPort is the Schema for the kuryrports API. There is exactly one per
// scheduled, non host-network Pod, sharing the Pod's name and namespace.
type KuryrPort struct {
	metav1.TypeMeta `json:",inline"`

	// +optional
	metav1.ObjectMeta `json:"metadata,omitzero"`

	// +required
	Spec KuryrPortSpec `json:"spec"`

	// +optional
	Status KuryrPortStatus `json:"status,omitzero"`
}

// +kubebuilder:object:root=true

// KuryrPortList contains a list of KuryrPort
type KuryrPortList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitzero"`
	Items           []KuryrPort `json:"items"`
}

func init() {
	SchemeBuilder.Register(&KuryrPort{}, &KuryrPortList{})
}
