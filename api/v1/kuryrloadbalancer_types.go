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
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// LoadBalancerPort is one listener of the load balancer.
type LoadBalancerPort struct {
	// +optional
	Name     string `json:"name,omitempty"`
	Port     int32  `json:"port"`
	Protocol string `json:"protocol"`
	// targetPort is the Service targetPort, numeric or named.
	// +optional
	TargetPort string `json:"targetPort,omitempty"`
}

// EndpointConditions mirrors discovery/v1 readiness.
type EndpointConditions struct {
	// +optional
	Ready *bool `json:"ready,omitempty"`
}

// Endpoint is one backend of an EndpointSlice.
type Endpoint struct {
	Addresses []string `json:"addresses"`
	// +optional
	Conditions EndpointConditions `json:"conditions,omitzero"`
	// +optional
	TargetRef *corev1.ObjectReference `json:"targetRef,omitempty"`
}

// EndpointPort is a backend port of an EndpointSlice.
type EndpointPort struct {
	// +optional
	Name string `json:"name,omitempty"`
	Port int32  `json:"port"`
	// +optional
	Protocol string `json:"protocol,omitempty"`
}

// EndpointSlice groups endpoints sharing the same set of ports.
type EndpointSlice struct {
	// +optional
	Endpoints []Endpoint `json:"endpoints,omitempty"`
	// +optional
	Ports []EndpointPort `json:"ports,omitempty"`
}

// KuryrLoadBalancerSpec is the desired Octavia load balancer for a Service.
type KuryrLoadBalancerSpec struct {
	// ip is the VIP, normally the Service clusterIP.
	// +optional
	IP string `json:"ip,omitempty"`

	// +optional
	Ports []LoadBalancerPort `json:"ports,omitempty"`

	// +optional
	ProjectID string `json:"project_id,omitempty"`

	// +optional
	SecurityGroupsIDs []string `json:"security_groups_ids,omitempty"`

	// +optional
	SubnetID string `json:"subnet_id,omitempty"`

	// type is the Service type (ClusterIP or LoadBalancer).
	// +optional
	Type string `json:"type,omitempty"`

	// lb_ip is the requested floating IP for LoadBalancer services.
	// +optional
	LBIP string `json:"lb_ip,omitempty"`

	// +optional
	TimeoutClientData int `json:"timeout_client_data,omitempty"`

	// +optional
	TimeoutMemberData int `json:"timeout_member_data,omitempty"`

	// +optional
	EndpointSlices []EndpointSlice `json:"endpointSlices,omitempty"`

	// provider is the Octavia provider driver.
	// +optional
	Provider string `json:"provider,omitempty"`
}

// LoadBalancerState is the Octavia load balancer written back by the
// load balancer handler.
type LoadBalancerState struct {
	// +optional
	ID string `json:"id,omitempty"`
	// +optional
	IP string `json:"ip,omitempty"`
	// +optional
	Name string `json:"name,omitempty"`
	// +optional
	PortID string `json:"port_id,omitempty"`
	// +optional
	Provider string `json:"provider,omitempty"`
	// +optional
	ProjectID string `json:"project_id,omitempty"`
	// +optional
	SubnetID string `json:"subnet_id,omitempty"`
	// +optional
	SecurityGroups []string `json:"security_groups,omitempty"`
}

// KuryrLoadBalancerStatus defines the observed state of KuryrLoadBalancer.
type KuryrLoadBalancerStatus struct {
	// +optional
	LoadBalancer *LoadBalancerState `json:"loadbalancer,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=klb

// KuryrLoadBalancer is the Schema for the kuryrloadbalancers API
type KuryrLoadBalancer struct {
	metav1.TypeMeta `json:",inline"`

	// +optional
	metav1.ObjectMeta `json:"metadata,omitzero"`

	// +optional
	Spec KuryrLoadBalancerSpec `json:"spec"`

	// +optional
	Status KuryrLoadBalancerStatus `json:"status,omitzero"`
}

// +kubebuilder:object:root=true

// KuryrLoadBalancerList contains a list of KuryrLoadBalancer
type KuryrLoadBalancerList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitzero"`
	Items           []KuryrLoadBalancer `json:"items"`
}

func init() {
	SchemeBuilder.Register(&KuryrLoadBalancer{}, &KuryrLoadBalancerList{})
}
