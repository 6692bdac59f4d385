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
	networkingv1 "k8s.io/api/networking/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// SecurityGroupRule is a Neutron security group rule body. id is set once
// the rule exists in Neutron.
type SecurityGroupRule struct {
	// +optional
	ID        string `json:"id,omitempty"`
	Direction string `json:"direction"`
	// +optional
	Ethertype string `json:"ethertype,omitempty"`
	// +optional
	Protocol string `json:"protocol,omitempty"`
	// +optional
	PortRangeMin int `json:"port_range_min,omitempty"`
	// +optional
	PortRangeMax int `json:"port_range_max,omitempty"`
	// remote_ip_prefix is a single pod address (/32 or /128).
	// +optional
	RemoteIPPrefix string `json:"remote_ip_prefix,omitempty"`
	// +optional
	SecurityGroupID string `json:"security_group_id,omitempty"`
	// +optional
	Description string `json:"description,omitempty"`
}

// SecurityGroupRuleEntry tags a rule with the namespace of the pod it was
// synthesized for.
type SecurityGroupRuleEntry struct {
	// +optional
	Namespace string            `json:"namespace,omitempty"`
	Rule      SecurityGroupRule `json:"security_group_rule"`
}

// KuryrNetworkPolicySpec defines the security group enforcing a NetworkPolicy.
type KuryrNetworkPolicySpec struct {
	// podSelector selects the pods the security group is applied to. Nil
	// selects every pod of the namespace.
	// +optional
	PodSelector *metav1.LabelSelector `json:"podSelector,omitempty"`

	// networkpolicy_spec is a copy of the NetworkPolicy spec.
	// +optional
	NetworkPolicySpec networkingv1.NetworkPolicySpec `json:"networkpolicy_spec,omitzero"`

	// +optional
	SecurityGroupID string `json:"securityGroupId,omitempty"`

	// +optional
	IngressSgRules []SecurityGroupRuleEntry `json:"ingressSgRules,omitempty"`

	// +optional
	EgressSgRules []SecurityGroupRuleEntry `json:"egressSgRules,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:resource:shortName=knp

// KuryrNetworkPolicy is the Schema for the kuryrnetworkpolicies API
type KuryrNetworkPolicy struct {
	metav1.TypeMeta `json:",inline"`

	// +optional
	metav1.ObjectMeta `json:"metadata,omitzero"`

	// +optional
	Spec KuryrNetworkPolicySpec `json:"spec"`
}

// +kubebuilder:object:root=true

// KuryrNetworkPolicyList contains a list of KuryrNetworkPolicy
type KuryrNetworkPolicyList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitzero"`
	Items           []KuryrNetworkPolicy `json:"items"`
}

func init() {
	SchemeBuilder.Register(&KuryrNetworkPolicy{}, &KuryrNetworkPolicyList{})
}
