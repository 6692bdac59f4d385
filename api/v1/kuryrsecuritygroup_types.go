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

// KuryrSecurityGroupSpec defines the security groups wanted on the ports of
// the pods backing a Service.
type KuryrSecurityGroupSpec struct {
	// endpointName is the Endpoints object the subsets were copied from.
	// +optional
	EndpointName string `json:"endpointName,omitempty"`

	// securityGroupIDs to apply to every backing pod port.
	// +optional
	SecurityGroupIDs []string `json:"securityGroupIDs,omitempty"`

	// endpointSubsets is a copy of the Endpoints subsets.
	// +optional
	EndpointSubsets []corev1.EndpointSubset `json:"endpointSubsets,omitempty"`
}

// KuryrSecurityGroupStatus records what was last applied to the ports.
type KuryrSecurityGroupStatus struct {
	// +optional
	SecurityGroupIDs []string `json:"securityGroupIDs,omitempty"`

	// +optional
	EndpointSubsets []corev1.EndpointSubset `json:"endpointSubsets,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:shortName=ksg

// KuryrSecurityGroup is the Schema for the kuryrsecuritygroups API
type KuryrSecurityGroup struct {
	metav1.TypeMeta `json:",inline"`

	// +optional
	metav1.ObjectMeta `json:"metadata,omitzero"`

	// +optional
	Spec KuryrSecurityGroupSpec `json:"spec"`

	// +optional
	Status KuryrSecurityGroupStatus `json:"status,omitzero"`
}

// +kubebuilder:object:root=true

// KuryrSecurityGroupList contains a list of KuryrSecurityGroup
type KuryrSecurityGroupList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitzero"`
	Items           []KuryrSecurityGroup `json:"items"`
}

func init() {
	SchemeBuilder.Register(&KuryrSecurityGroup{}, &KuryrSecurityGroupList{})
}
