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

package controller

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/kerrors"
	"kuryr-operator/internal/kube"
	"kuryr-operator/pkg/openstack"
)

const (
	securityGroupControllerName        = "kuryrsecuritygroup"
	serviceSecurityGroupControllerName = "service-securitygroup"
)

// KuryrSecurityGroupReconciler applies the security groups of a
// KuryrSecurityGroup to the ports of the pods backing its Service.
type KuryrSecurityGroupReconciler struct {
	client.Client
	Scheme  *runtime.Scheme
	Neutron openstack.Interface

	// DefaultSecurityGroups are restored on the ports when the
	// KuryrSecurityGroup goes away.
	DefaultSecurityGroups []string
	RetryInterval         time.Duration
}

// +kubebuilder:rbac:groups=openstack.org,resources=kuryrsecuritygroups,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=openstack.org,resources=kuryrsecuritygroups/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=openstack.org,resources=kuryrsecuritygroups/finalizers,verbs=update
// +kubebuilder:rbac:groups="",resources=endpoints,verbs=get;list;watch

func (r *KuryrSecurityGroupReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	var ksg kuryrv1.KuryrSecurityGroup
	if err := r.Get(ctx, req.NamespacedName, &ksg); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	var err error
	if ksg.DeletionTimestamp != nil {
		err = r.finalize(ctx, &ksg)
	} else {
		err = r.reconcileSecurityGroup(ctx, &ksg)
	}
	return finish(log, securityGroupControllerName, r.RetryInterval, err)
}

func (r *KuryrSecurityGroupReconciler) reconcileSecurityGroup(ctx context.Context, ksg *kuryrv1.KuryrSecurityGroup) error {
	log := logf.FromContext(ctx)

	if ok, err := kube.AddFinalizer(ctx, r.Client, ksg, kube.KuryrSecurityGroupFinalizer); err != nil || !ok {
		return err
	}
	if err := r.syncEndpoints(ctx, ksg); err != nil {
		return err
	}

	if equality.Semantic.DeepEqual(ksg.Spec.SecurityGroupIDs, ksg.Status.SecurityGroupIDs) &&
		equality.Semantic.DeepEqual(ksg.Spec.EndpointSubsets, ksg.Status.EndpointSubsets) {
		log.V(1).Info("security groups already applied")
		return nil
	}

	updated, err := r.applyToPods(ctx, ksg, ksg.Spec.SecurityGroupIDs)
	if err != nil {
		return err
	}

	base := ksg.DeepCopy()
	ksg.Status.SecurityGroupIDs = ksg.Spec.SecurityGroupIDs
	ksg.Status.EndpointSubsets = ksg.Spec.EndpointSubsets
	err = r.Status().Patch(ctx, ksg, client.MergeFromWithOptions(base, client.MergeFromWithOptimisticLock{}))
	switch {
	case apierrors.IsNotFound(err):
		return nil
	case apierrors.IsConflict(err):
		return kerrors.NewNotReady("kuryrsecuritygroup "+ksg.Name, err)
	case err != nil:
		return fmt.Errorf("patch kuryrsecuritygroup status: %w", err)
	}
	log.Info("security groups applied", "securityGroups", ksg.Spec.SecurityGroupIDs, "portsUpdated", updated)
	return nil
}

// syncEndpoints copies the subsets of the Endpoints sharing the
// KuryrSecurityGroup's name into its spec when they differ.
func (r *KuryrSecurityGroupReconciler) syncEndpoints(ctx context.Context, ksg *kuryrv1.KuryrSecurityGroup) error {
	var eps corev1.Endpoints
	if err := r.Get(ctx, client.ObjectKeyFromObject(ksg), &eps); err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("get endpoints: %w", err)
	}
	if ksg.Spec.EndpointName == eps.Name && equality.Semantic.DeepEqual(ksg.Spec.EndpointSubsets, eps.Subsets) {
		return nil
	}

	base := ksg.DeepCopy()
	ksg.Spec.EndpointName = eps.Name
	ksg.Spec.EndpointSubsets = eps.Subsets
	err := r.Patch(ctx, ksg, client.MergeFromWithOptions(base, client.MergeFromWithOptimisticLock{}))
	if apierrors.IsConflict(err) {
		return kerrors.NewNotReady("kuryrsecuritygroup "+ksg.Name, err)
	}
	if err != nil {
		return fmt.Errorf("patch kuryrsecuritygroup endpoints: %w", err)
	}
	return nil
}

func (r *KuryrSecurityGroupReconciler) applyToPods(ctx context.Context, ksg *kuryrv1.KuryrSecurityGroup, sgIDs []string) (int, error) {
	log := logf.FromContext(ctx)
	total := 0
	for _, key := range backingPods(ksg) {
		kp, err := getKuryrPort(ctx, r.Client, key)
		if err != nil {
			return total, err
		}
		if kp == nil {
			log.V(1).Info("kuryrport not found; skipping pod", "pod", key)
			continue
		}
		n, err := portSecurityGroups(ctx, log, r.Neutron, securityGroupControllerName, kp, sgIDs)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (r *KuryrSecurityGroupReconciler) finalize(ctx context.Context, ksg *kuryrv1.KuryrSecurityGroup) error {
	if !controllerutil.ContainsFinalizer(ksg, kube.KuryrSecurityGroupFinalizer) {
		return nil
	}
	if len(r.DefaultSecurityGroups) > 0 {
		if _, err := r.applyToPods(ctx, ksg, r.DefaultSecurityGroups); err != nil {
			return err
		}
	}

	var svc corev1.Service
	switch err := r.Get(ctx, client.ObjectKeyFromObject(ksg), &svc); {
	case err == nil:
		if err := kube.RemoveFinalizer(ctx, r.Client, &svc, kube.KuryrSecurityGroupFinalizer); err != nil {
			return fmt.Errorf("release service: %w", err)
		}
	case !apierrors.IsNotFound(err):
		return fmt.Errorf("get service: %w", err)
	}
	return kube.RemoveFinalizer(ctx, r.Client, ksg, kube.KuryrSecurityGroupFinalizer)
}

// backingPods lists the pods referenced by the subsets of ksg, ready or
// not, without duplicates.
func backingPods(ksg *kuryrv1.KuryrSecurityGroup) []types.NamespacedName {
	var out []types.NamespacedName
	seen := map[types.NamespacedName]bool{}
	add := func(addrs []corev1.EndpointAddress) {
		for _, addr := range addrs {
			ref := addr.TargetRef
			if ref == nil || ref.Kind != "Pod" {
				continue
			}
			ns := ref.Namespace
			if ns == "" {
				ns = ksg.Namespace
			}
			key := types.NamespacedName{Namespace: ns, Name: ref.Name}
			if !seen[key] {
				seen[key] = true
				out = append(out, key)
			}
		}
	}
	for _, ss := range ksg.Spec.EndpointSubsets {
		add(ss.Addresses)
		add(ss.NotReadyAddresses)
	}
	return out
}

// SetupWithManager sets up the controller with the Manager.
func (r *KuryrSecurityGroupReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&kuryrv1.KuryrSecurityGroup{}).
		Watches(&corev1.Endpoints{}, handler.EnqueueRequestsFromMapFunc(sameName)).
		Named(securityGroupControllerName).
		WithOptions(controllerOptions()).
		Complete(r)
}

// ServiceSecurityGroupReconciler ties the lifetime of a KuryrSecurityGroup
// to the Service that references it.
type ServiceSecurityGroupReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	RetryInterval time.Duration
}

// +kubebuilder:rbac:groups=openstack.org,resources=kuryrsecuritygroups,verbs=get;list;watch;delete

func (r *ServiceSecurityGroupReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	var svc corev1.Service
	if err := r.Get(ctx, req.NamespacedName, &svc); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	if svc.DeletionTimestamp == nil {
		if !hasAnnotation(&svc, kube.AnnotationSecurityGroupCRD) {
			return ctrl.Result{}, nil
		}
		_, err := kube.AddFinalizer(ctx, r.Client, &svc, kube.KuryrSecurityGroupFinalizer)
		return finish(log, serviceSecurityGroupControllerName, r.RetryInterval, err)
	}

	if !controllerutil.ContainsFinalizer(&svc, kube.KuryrSecurityGroupFinalizer) {
		return ctrl.Result{}, nil
	}
	ksg := &kuryrv1.KuryrSecurityGroup{}
	ksg.Name, ksg.Namespace = svc.Name, svc.Namespace
	err := r.Delete(ctx, ksg)
	switch {
	case apierrors.IsNotFound(err):
		log.V(1).Info("kuryrsecuritygroup gone; releasing service")
		err = kube.RemoveFinalizer(ctx, r.Client, &svc, kube.KuryrSecurityGroupFinalizer)
	case err != nil:
		err = fmt.Errorf("delete kuryrsecuritygroup: %w", err)
	}
	return finish(log, serviceSecurityGroupControllerName, r.RetryInterval, err)
}

// SetupWithManager sets up the controller with the Manager.
func (r *ServiceSecurityGroupReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&corev1.Service{}).
		Watches(&kuryrv1.KuryrSecurityGroup{}, handler.EnqueueRequestsFromMapFunc(sameName)).
		Named(serviceSecurityGroupControllerName).
		WithOptions(controllerOptions()).
		Complete(r)
}
