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

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/ptr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/config"
	"kuryr-operator/internal/kerrors"
	"kuryr-operator/internal/kube"
)

const endpointsControllerName = "endpoints"

// EndpointsReconciler copies the backends of a Service into the
// endpointSlices of its KuryrLoadBalancer.
type EndpointsReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	Config config.Config
}

// +kubebuilder:rbac:groups="",resources=endpoints,verbs=get;list;watch;create;update;patch
// +kubebuilder:rbac:groups="",resources=pods,verbs=get;list;watch
// +kubebuilder:rbac:groups=openstack.org,resources=kuryrports,verbs=get;list;watch

func (r *EndpointsReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	var eps corev1.Endpoints
	var err error
	switch getErr := r.Get(ctx, req.NamespacedName, &eps); {
	case apierrors.IsNotFound(getErr):
		err = r.removeEndpointSlices(ctx, req.NamespacedName)
	case getErr != nil:
		return ctrl.Result{}, getErr
	default:
		err = r.reconcileEndpoints(ctx, &eps)
	}
	return finish(log, endpointsControllerName, r.Config.RetryInterval.Duration, err)
}

func (r *EndpointsReconciler) reconcileEndpoints(ctx context.Context, eps *corev1.Endpoints) error {
	log := logf.FromContext(ctx)

	klb, err := getLoadBalancer(ctx, r.Client, client.ObjectKeyFromObject(eps))
	if err != nil {
		return err
	}
	hasStatus := klb != nil && klb.Status.LoadBalancer != nil
	if !(hasAddresses(eps) || hasStatus) {
		log.V(1).Info("ignoring endpoints without addresses")
		return nil
	}
	if _, headless := eps.Labels[kube.HeadlessLabel]; headless || kube.IsDefaultResource(eps) {
		log.V(1).Info("ignoring endpoints of headless or default service")
		return nil
	}

	var svc corev1.Service
	switch err := r.Get(ctx, client.ObjectKeyFromObject(eps), &svc); {
	case err == nil:
		if err := ensureMirrorEndpoints(ctx, r.Client, &svc, eps); err != nil {
			return err
		}
	case !apierrors.IsNotFound(err):
		return fmt.Errorf("get service: %w", err)
	}

	slices := endpointSlices(eps)
	provider := r.Config.LBProvider()
	if klb == nil {
		klb = &kuryrv1.KuryrLoadBalancer{
			ObjectMeta: metav1.ObjectMeta{
				Name:       eps.Name,
				Namespace:  eps.Namespace,
				Finalizers: []string{kube.KuryrLoadBalancerFinalizer},
			},
			Spec: kuryrv1.KuryrLoadBalancerSpec{EndpointSlices: slices, Provider: provider},
		}
		if err := r.Create(ctx, klb); err != nil {
			if apierrors.IsAlreadyExists(err) {
				return kerrors.NewNotReady("kuryrloadbalancer "+eps.Name, err)
			}
			return kerrors.FromAPI(err, eps.Namespace, "kuryrloadbalancer "+eps.Name)
		}
		log.Info("kuryrloadbalancer created from endpoints", "slices", len(slices))
		return nil
	}

	base := klb.DeepCopy()
	klb.Spec.EndpointSlices = slices
	klb.Spec.Provider = provider
	err = r.Patch(ctx, klb, client.MergeFromWithOptions(base, client.MergeFromWithOptimisticLock{}))
	switch {
	case err == nil:
		return nil
	case apierrors.IsNotFound(err):
		log.V(1).Info("kuryrloadbalancer not found")
		return nil
	case apierrors.IsConflict(err):
		return kerrors.NewNotReady("kuryrloadbalancer "+klb.Name, err)
	default:
		return fmt.Errorf("patch kuryrloadbalancer %s: %w", klb.Name, err)
	}
}

// removeEndpointSlices drops spec.endpointSlices from the load balancer of
// deleted Endpoints.
func (r *EndpointsReconciler) removeEndpointSlices(ctx context.Context, key types.NamespacedName) error {
	log := logf.FromContext(ctx)
	klb, err := getLoadBalancer(ctx, r.Client, key)
	if err != nil || klb == nil || klb.Spec.EndpointSlices == nil {
		return err
	}
	patch := client.RawPatch(types.JSONPatchType, []byte(`[{"op":"remove","path":"/spec/endpointSlices"}]`))
	err = r.Patch(ctx, klb, patch)
	switch {
	case err == nil:
		log.V(1).Info("endpoint slices removed")
		return nil
	case apierrors.IsNotFound(err):
		log.V(1).Info("kuryrloadbalancer not found")
		return nil
	case apierrors.IsConflict(err), apierrors.IsInvalid(err):
		log.Info("kuryrloadbalancer modified concurrently; ignoring", "reason", err.Error())
		return nil
	default:
		return fmt.Errorf("remove endpoint slices of %s: %w", key, err)
	}
}

func hasAddresses(eps *corev1.Endpoints) bool {
	for _, ss := range eps.Subsets {
		if len(ss.Addresses) > 0 {
			return true
		}
	}
	return false
}

// endpointSlices turns each subset into one slice holding its ready
// addresses and ports.
func endpointSlices(eps *corev1.Endpoints) []kuryrv1.EndpointSlice {
	out := make([]kuryrv1.EndpointSlice, 0, len(eps.Subsets))
	for _, ss := range eps.Subsets {
		slice := kuryrv1.EndpointSlice{}
		for _, addr := range ss.Addresses {
			ep := kuryrv1.Endpoint{
				Addresses:  []string{addr.IP},
				Conditions: kuryrv1.EndpointConditions{Ready: ptr.To(true)},
			}
			if addr.TargetRef != nil {
				ep.TargetRef = addr.TargetRef.DeepCopy()
			}
			slice.Endpoints = append(slice.Endpoints, ep)
		}
		for _, p := range ss.Ports {
			slice.Ports = append(slice.Ports, kuryrv1.EndpointPort{Name: p.Name, Port: p.Port, Protocol: string(p.Protocol)})
		}
		out = append(out, slice)
	}
	return out
}

// ensureMirrorEndpoints writes the Endpoints of the mirror Service of svc.
// Each backend pod contributes the first address of the VIF named by its
// mirror VIF annotation.
func ensureMirrorEndpoints(ctx context.Context, c client.Client, svc *corev1.Service, eps *corev1.Endpoints) error {
	name := svc.GetAnnotations()[kube.AnnotationXServiceName]
	if name == "" {
		return nil
	}

	subsets := make([]corev1.EndpointSubset, 0, len(eps.Subsets))
	for _, ss := range eps.Subsets {
		var addresses []corev1.EndpointAddress
		for _, addr := range ss.Addresses {
			ip, err := mirrorAddress(ctx, c, addr.TargetRef)
			if err != nil {
				return err
			}
			if ip != "" {
				addresses = append(addresses, corev1.EndpointAddress{IP: ip})
			}
		}
		subsets = append(subsets, corev1.EndpointSubset{Addresses: addresses, Ports: ss.Ports})
	}

	var current corev1.Endpoints
	err := c.Get(ctx, types.NamespacedName{Namespace: eps.Namespace, Name: name}, &current)
	switch {
	case apierrors.IsNotFound(err):
		mirror := &corev1.Endpoints{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: eps.Namespace},
			Subsets:    subsets,
		}
		if err := c.Create(ctx, mirror); err != nil && !apierrors.IsAlreadyExists(err) {
			return kerrors.FromAPI(err, eps.Namespace, "endpoints "+name)
		}
		logf.FromContext(ctx).V(1).Info("mirror endpoints created", "mirror", name)
		return nil
	case err != nil:
		return fmt.Errorf("get mirror endpoints %s: %w", name, err)
	}
	base := current.DeepCopy()
	current.Subsets = subsets
	if err := c.Patch(ctx, &current, client.MergeFrom(base)); err != nil {
		return fmt.Errorf("patch mirror endpoints %s: %w", name, err)
	}
	return nil
}

func mirrorAddress(ctx context.Context, c client.Client, ref *corev1.ObjectReference) (string, error) {
	if ref == nil || ref.Kind != "Pod" {
		return "", nil
	}
	var pod corev1.Pod
	if err := c.Get(ctx, types.NamespacedName{Namespace: ref.Namespace, Name: ref.Name}, &pod); err != nil {
		return "", fmt.Errorf("get pod %s/%s: %w", ref.Namespace, ref.Name, err)
	}
	vifName := pod.GetAnnotations()[kube.AnnotationXVIFName]
	if vifName == "" {
		return "", nil
	}
	kp, err := getKuryrPort(ctx, c, client.ObjectKeyFromObject(&pod))
	if err != nil || kp == nil {
		return "", err
	}
	vif, ok := kp.Status.VIFs[vifName]
	if !ok {
		return "", nil
	}
	ips := vif.VIF.FixedIPs()
	if len(ips) == 0 {
		return "", nil
	}
	return ips[0], nil
}

// SetupWithManager sets up the controller with the Manager.
func (r *EndpointsReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&corev1.Endpoints{}).
		Named(endpointsControllerName).
		WithOptions(controllerOptions()).
		Complete(r)
}
