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

// Package kube holds the Kubernetes side helpers shared by the controllers:
// well-known names, finalizer and annotation patches, and pod predicates.
package kube

import (
	"context"
	"net/netip"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
)

const (
	PodFinalizer                = "kuryr.openstack.org/pod-finalizer"
	KuryrPortFinalizer          = "kuryr.openstack.org/kuryrport-finalizer"
	ServiceFinalizer            = "kuryr.openstack.org/service-finalizer"
	ServiceXFinalizer           = "kuryr.openstack.org/service-x-finalizer"
	KuryrLoadBalancerFinalizer  = "kuryr.openstack.org/kuryrloadbalancer-finalizers"
	KuryrSecurityGroupFinalizer = "kuryr.openstack.org/kuryrsecuritygroup-finalizer"

	KuryrPortNodeLabel = "kuryr.openstack.org/nodeName"
	HeadlessLabel      = "service.kubernetes.io/headless"

	AnnotationSubnet            = "openstack.org/kuryr-subnet"
	AnnotationSecurityGroups    = "openstack.org/kuryr-security-groups"
	AnnotationSecurityGroupCRD  = "openstack.org/kuryr-security-group-crd"
	AnnotationLBaaSSpec         = "openstack.org/kuryr-lbaas-spec"
	AnnotationServiceIP         = "openstack.org/kuryr-svc-ip"
	AnnotationServiceName       = "openstack.org/kuryr-svc-name"
	AnnotationXServiceName      = "openstack.org/kuryr-x-svc-name"
	AnnotationXServiceIP        = "openstack.org/kuryr-x-svc-ip"
	AnnotationXSubnet           = "openstack.org/kuryr-x-subnet"
	AnnotationXVIFName          = "openstack.org/kuryr-x-vif-name"
	AnnotationTimeoutClientData = "openstack.org/kuryr-timeout-client-data"
	AnnotationTimeoutMemberData = "openstack.org/kuryr-timeout-member-data"
	AnnotationPolicyCounter     = "openstack.org/kuryr-counter"

	// TriggerAnnotation is written with a fresh value to force a new event
	// for an object.
	TriggerAnnotation = "KuryrTrigger"
)

// AddFinalizer adds finalizer to obj and reports whether obj still exists.
// Conflicts are retried against a fresh copy.
func AddFinalizer(ctx context.Context, c client.Client, obj client.Object, finalizer string) (bool, error) {
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		if controllerutil.ContainsFinalizer(obj, finalizer) {
			return nil
		}
		base := obj.DeepCopyObject().(client.Object)
		controllerutil.AddFinalizer(obj, finalizer)
		err := c.Patch(ctx, obj, client.MergeFromWithOptions(base, client.MergeFromWithOptimisticLock{}))
		if apierrors.IsConflict(err) {
			if gerr := c.Get(ctx, client.ObjectKeyFromObject(obj), obj); gerr != nil {
				return gerr
			}
		}
		return err
	})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RemoveFinalizer removes finalizer from obj. A missing object is fine.
func RemoveFinalizer(ctx context.Context, c client.Client, obj client.Object, finalizer string) error {
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		if !controllerutil.ContainsFinalizer(obj, finalizer) {
			return nil
		}
		base := obj.DeepCopyObject().(client.Object)
		controllerutil.RemoveFinalizer(obj, finalizer)
		err := c.Patch(ctx, obj, client.MergeFromWithOptions(base, client.MergeFromWithOptimisticLock{}))
		if apierrors.IsConflict(err) {
			if gerr := c.Get(ctx, client.ObjectKeyFromObject(obj), obj); gerr != nil {
				return gerr
			}
		}
		return err
	})
	return client.IgnoreNotFound(err)
}

// Annotate merges annotations into obj.
func Annotate(ctx context.Context, c client.Client, obj client.Object, annotations map[string]string) error {
	base := obj.DeepCopyObject().(client.Object)
	merged := obj.GetAnnotations()
	if merged == nil {
		merged = map[string]string{}
	}
	for k, v := range annotations {
		merged[k] = v
	}
	obj.SetAnnotations(merged)
	return c.Patch(ctx, obj, client.MergeFrom(base))
}

// IsDefaultResource reports the cluster's own default/kubernetes service and
// its endpoints.
func IsDefaultResource(obj client.Object) bool {
	return obj.GetNamespace() == "default" && obj.GetName() == "kubernetes"
}

func IsHostNetwork(pod *corev1.Pod) bool {
	return pod.Spec.HostNetwork
}

// IsScheduled reports a pod bound to a node.
func IsScheduled(pod *corev1.Pod) bool {
	return pod.Spec.NodeName != ""
}

// IsCompleted reports a pod in a terminal phase.
func IsCompleted(pod *corev1.Pod) bool {
	return pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed
}

// HasRunningContainers reports whether any container is still running.
func HasRunningContainers(pod *corev1.Pod) bool {
	for _, st := range pod.Status.ContainerStatuses {
		if st.State.Running != nil {
			return true
		}
	}
	return false
}

// IsTerminating reports a pod whose deletion was requested and whose
// containers have stopped.
func IsTerminating(pod *corev1.Pod) bool {
	return pod.DeletionTimestamp != nil && !HasRunningContainers(pod)
}

// PodIP returns the primary pod address.
func PodIP(pod *corev1.Pod) string {
	if pod.Status.PodIP != "" {
		return pod.Status.PodIP
	}
	if len(pod.Status.PodIPs) > 0 {
		return pod.Status.PodIPs[0].IP
	}
	return ""
}

// HostPrefix turns an address into its single host prefix, 10.0.0.5 into
// 10.0.0.5/32 and fd00::5 into fd00::5/128. Invalid input yields "".
func HostPrefix(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	return netip.PrefixFrom(addr, addr.BitLen()).String()
}

// IsHeadless reports a service without a cluster IP.
func IsHeadless(svc *corev1.Service) bool {
	return svc.Spec.ClusterIP == corev1.ClusterIPNone || svc.Spec.ClusterIP == ""
}
