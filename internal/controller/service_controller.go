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
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/config"
	"kuryr-operator/internal/drivers"
	"kuryr-operator/internal/kerrors"
	"kuryr-operator/internal/kube"
)

const serviceControllerName = "service"

var supportedServiceTypes = []corev1.ServiceType{corev1.ServiceTypeClusterIP, corev1.ServiceTypeLoadBalancer}

// ServiceReconciler writes the desired load balancer of a Service into a
// KuryrLoadBalancer of the same name and manages the optional mirror
// Service.
type ServiceReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	Resolvers *drivers.Resolvers
	Config    config.Config
}

// +kubebuilder:rbac:groups="",resources=services,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=endpoints,verbs=get;list;watch;create;update;patch
// +kubebuilder:rbac:groups=networking.k8s.io,resources=networkpolicies,verbs=get;list;watch;patch
// +kubebuilder:rbac:groups=openstack.org,resources=kuryrloadbalancers,verbs=get;list;watch;create;update;patch;delete

func (r *ServiceReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	var svc corev1.Service
	if err := r.Get(ctx, req.NamespacedName, &svc); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}
	var err error
	if svc.DeletionTimestamp != nil {
		err = r.finalize(ctx, &svc)
	} else {
		err = r.reconcileService(ctx, &svc)
	}
	return finish(log, serviceControllerName, r.Config.RetryInterval.Duration, err)
}

// ignoreReason explains why svc is not handled, or returns "".
func ignoreReason(svc *corev1.Service) string {
	switch {
	case kube.IsHeadless(svc):
		return "headless service"
	case !slices.Contains(supportedServiceTypes, svc.Spec.Type):
		return "unsupported service type"
	case hasAnnotation(svc, kube.AnnotationLBaaSSpec):
		return "legacy lbaas annotation still present"
	case kube.IsDefaultResource(svc):
		return "default service"
	}
	return ""
}

func (r *ServiceReconciler) reconcileService(ctx context.Context, svc *corev1.Service) error {
	log := logf.FromContext(ctx)
	if reason := ignoreReason(svc); reason != "" {
		log.V(1).Info("skipping service", "reason", reason)
		return nil
	}

	ok, err := kube.AddFinalizer(ctx, r.Client, svc, kube.ServiceFinalizer)
	if err != nil {
		return fmt.Errorf("add service finalizer: %w", err)
	}
	if !ok {
		return nil
	}

	if err := r.provisionMirror(ctx, svc); err != nil {
		return err
	}

	klb, err := getLoadBalancer(ctx, r.Client, client.ObjectKeyFromObject(svc))
	if err != nil {
		return err
	}
	if klb == nil {
		// policy rules reference pod addresses behind the service
		if err := r.bumpNetworkPolicies(ctx, svc.Namespace); err != nil {
			return err
		}
		return r.createLoadBalancer(ctx, svc)
	}
	if !r.hasChanges(svc, klb) {
		return nil
	}
	return r.updateLoadBalancer(ctx, svc, klb)
}

func (r *ServiceReconciler) buildSpec(ctx context.Context, svc *corev1.Service) (kuryrv1.KuryrLoadBalancerSpec, error) {
	ip := serviceIP(svc)
	networking, err := r.Resolvers.ServiceNetworking(ctx, svc)
	if err != nil {
		return kuryrv1.KuryrLoadBalancerSpec{}, err
	}
	subnetID, err := drivers.SubnetForIP(networking.Subnets, ip)
	if err != nil {
		return kuryrv1.KuryrLoadBalancerSpec{}, fmt.Errorf("service %s/%s: %w", svc.Namespace, svc.Name, err)
	}
	clientTimeout, memberTimeout := r.timeouts(svc)
	return kuryrv1.KuryrLoadBalancerSpec{
		IP:                ip,
		Ports:             loadBalancerPorts(svc),
		ProjectID:         networking.ProjectID,
		SecurityGroupsIDs: networking.SecurityGroupIDs,
		SubnetID:          subnetID,
		Type:              string(svc.Spec.Type),
		LBIP:              svc.Spec.LoadBalancerIP,
		TimeoutClientData: clientTimeout,
		TimeoutMemberData: memberTimeout,
	}, nil
}

func (r *ServiceReconciler) createLoadBalancer(ctx context.Context, svc *corev1.Service) error {
	spec, err := r.buildSpec(ctx, svc)
	if err != nil {
		return err
	}
	klb := &kuryrv1.KuryrLoadBalancer{
		ObjectMeta: metav1.ObjectMeta{
			Name:       svc.Name,
			Namespace:  svc.Namespace,
			Finalizers: []string{kube.KuryrLoadBalancerFinalizer},
		},
		Spec: spec,
	}
	if err := r.Create(ctx, klb); err != nil {
		if apierrors.IsAlreadyExists(err) {
			return kerrors.NewNotReady("kuryrloadbalancer "+svc.Name, err)
		}
		return kerrors.FromAPI(err, svc.Namespace, "kuryrloadbalancer "+svc.Name)
	}
	logf.FromContext(ctx).Info("kuryrloadbalancer created", "ip", spec.IP, "subnet", spec.SubnetID)
	return nil
}

// updateLoadBalancer rewrites the service derived fields of klb and keeps
// the ones owned by the endpoints side.
func (r *ServiceReconciler) updateLoadBalancer(ctx context.Context, svc *corev1.Service, klb *kuryrv1.KuryrLoadBalancer) error {
	spec, err := r.buildSpec(ctx, svc)
	if err != nil {
		return err
	}
	base := klb.DeepCopy()
	spec.EndpointSlices = klb.Spec.EndpointSlices
	spec.Provider = klb.Spec.Provider
	klb.Spec = spec
	err = r.Patch(ctx, klb, client.MergeFromWithOptions(base, client.MergeFromWithOptimisticLock{}))
	switch {
	case err == nil:
		logf.FromContext(ctx).Info("kuryrloadbalancer updated", "ip", spec.IP)
		return nil
	case apierrors.IsNotFound(err):
		logf.FromContext(ctx).V(1).Info("kuryrloadbalancer vanished before update")
		return nil
	case apierrors.IsConflict(err):
		return kerrors.NewNotReady("kuryrloadbalancer "+klb.Name, err)
	default:
		return fmt.Errorf("patch kuryrloadbalancer %s: %w", klb.Name, err)
	}
}

func (r *ServiceReconciler) hasChanges(svc *corev1.Service, klb *kuryrv1.KuryrLoadBalancer) bool {
	if klb.Spec.IP != serviceIP(svc) {
		return true
	}
	if !slices.Equal(normalizePorts(loadBalancerPorts(svc)), normalizePorts(klb.Spec.Ports)) {
		return true
	}
	clientTimeout, memberTimeout := r.timeouts(svc)
	return klb.Spec.TimeoutClientData != clientTimeout || klb.Spec.TimeoutMemberData != memberTimeout
}

// timeouts returns the listener client and member data timeouts, taken
// from the service annotations when present.
func (r *ServiceReconciler) timeouts(svc *corev1.Service) (int, int) {
	return annotationInt(svc, kube.AnnotationTimeoutClientData, r.Config.TimeoutClientData),
		annotationInt(svc, kube.AnnotationTimeoutMemberData, r.Config.TimeoutMemberData)
}

func (r *ServiceReconciler) finalize(ctx context.Context, svc *corev1.Service) error {
	log := logf.FromContext(ctx)
	if controllerutil.ContainsFinalizer(svc, kube.ServiceFinalizer) {
		if err := r.bumpNetworkPolicies(ctx, svc.Namespace); err != nil {
			return err
		}
		klb := &kuryrv1.KuryrLoadBalancer{ObjectMeta: metav1.ObjectMeta{Name: svc.Name, Namespace: svc.Namespace}}
		err := r.Delete(ctx, klb)
		switch {
		case apierrors.IsNotFound(err):
			if err := kube.RemoveFinalizer(ctx, r.Client, svc, kube.ServiceFinalizer); err != nil {
				return fmt.Errorf("remove service finalizer: %w", err)
			}
			log.V(1).Info("service finalizer removed")
		case err != nil:
			return fmt.Errorf("delete kuryrloadbalancer %s: %w", svc.Name, err)
		}
	}

	if !controllerutil.ContainsFinalizer(svc, kube.ServiceXFinalizer) {
		return nil
	}
	annotations := svc.GetAnnotations()
	if mirror := annotations[kube.AnnotationXServiceName]; mirror != "" {
		err := r.Delete(ctx, &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: mirror, Namespace: svc.Namespace}})
		if !apierrors.IsNotFound(err) {
			if err != nil {
				return fmt.Errorf("delete mirror service %s: %w", mirror, err)
			}
			return nil
		}
	}
	if err := kube.RemoveFinalizer(ctx, r.Client, svc, kube.ServiceXFinalizer); err != nil {
		return fmt.Errorf("remove mirror finalizer: %w", err)
	}
	return nil
}

// mirrorService builds the shadow Service described by the three mirror
// annotations, or returns nil when any of them is missing.
func mirrorService(svc *corev1.Service) *corev1.Service {
	annotations := svc.GetAnnotations()
	name := annotations[kube.AnnotationXServiceName]
	ip := annotations[kube.AnnotationXServiceIP]
	subnet := annotations[kube.AnnotationXSubnet]
	if name == "" || ip == "" || subnet == "" {
		return nil
	}
	ports := make([]corev1.ServicePort, 0, len(svc.Spec.Ports))
	for _, p := range svc.Spec.Ports {
		ports = append(ports, corev1.ServicePort{
			Port:       p.Port,
			Protocol:   p.Protocol,
			TargetPort: p.TargetPort,
		})
	}
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: svc.Namespace,
			Annotations: map[string]string{
				kube.AnnotationServiceIP:   ip,
				kube.AnnotationSubnet:      subnet,
				kube.AnnotationServiceName: svc.Name,
			},
		},
		Spec: corev1.ServiceSpec{Ports: ports},
	}
}

func (r *ServiceReconciler) provisionMirror(ctx context.Context, svc *corev1.Service) error {
	log := logf.FromContext(ctx)
	desired := mirrorService(svc)
	if desired == nil {
		return nil
	}
	if _, err := kube.AddFinalizer(ctx, r.Client, svc, kube.ServiceXFinalizer); err != nil {
		return fmt.Errorf("add mirror finalizer: %w", err)
	}

	var current corev1.Service
	err := r.Get(ctx, client.ObjectKeyFromObject(desired), &current)
	switch {
	case apierrors.IsNotFound(err):
		var eps corev1.Endpoints
		switch err := r.Get(ctx, client.ObjectKeyFromObject(svc), &eps); {
		case err == nil:
			if err := ensureMirrorEndpoints(ctx, r.Client, svc, &eps); err != nil {
				return err
			}
		case !apierrors.IsNotFound(err):
			return fmt.Errorf("get endpoints: %w", err)
		}
		if err := r.Create(ctx, desired); err != nil {
			if apierrors.IsAlreadyExists(err) {
				return kerrors.NewNotReady("service "+desired.Name, err)
			}
			return kerrors.FromAPI(err, svc.Namespace, "service "+desired.Name)
		}
		log.Info("mirror service created", "mirror", desired.Name)
		return nil
	case err != nil:
		return fmt.Errorf("get mirror service %s: %w", desired.Name, err)
	}

	base := current.DeepCopy()
	current.Spec.Ports = desired.Spec.Ports
	if err := r.Patch(ctx, &current, client.MergeFromWithOptions(base, client.MergeFromWithOptimisticLock{})); err != nil {
		if apierrors.IsConflict(err) {
			return kerrors.NewNotReady("service "+desired.Name, err)
		}
		return fmt.Errorf("patch mirror service %s: %w", desired.Name, err)
	}
	return nil
}

// bumpNetworkPolicies annotates every NetworkPolicy in namespace with a
// fresh value so their security group rules get recomputed.
func (r *ServiceReconciler) bumpNetworkPolicies(ctx context.Context, namespace string) error {
	if !r.Config.NetworkPolicyEnabled {
		return nil
	}
	var nps networkingv1.NetworkPolicyList
	if err := r.List(ctx, &nps, client.InNamespace(namespace)); err != nil {
		return fmt.Errorf("list networkpolicies in %s: %w", namespace, err)
	}
	for i := range nps.Items {
		np := &nps.Items[i]
		if err := kube.Annotate(ctx, r.Client, np, map[string]string{kube.AnnotationPolicyCounter: uuid.NewString()}); client.IgnoreNotFound(err) != nil {
			return fmt.Errorf("bump networkpolicy %s: %w", np.Name, err)
		}
	}
	return nil
}

// SetupWithManager sets up the controller with the Manager.
func (r *ServiceReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&corev1.Service{}).
		Watches(&kuryrv1.KuryrLoadBalancer{}, handler.EnqueueRequestsFromMapFunc(sameName)).
		Watches(&corev1.Service{}, handler.EnqueueRequestsFromMapFunc(mirrorParent)).
		Named(serviceControllerName).
		WithOptions(controllerOptions()).
		Complete(r)
}

func sameName(_ context.Context, obj client.Object) []reconcile.Request {
	return []reconcile.Request{{NamespacedName: client.ObjectKeyFromObject(obj)}}
}

// mirrorParent maps a mirror Service to the Service it was created for.
func mirrorParent(_ context.Context, obj client.Object) []reconcile.Request {
	parent := obj.GetAnnotations()[kube.AnnotationServiceName]
	if parent == "" {
		return nil
	}
	return []reconcile.Request{{NamespacedName: types.NamespacedName{Namespace: obj.GetNamespace(), Name: parent}}}
}

func getLoadBalancer(ctx context.Context, c client.Client, key types.NamespacedName) (*kuryrv1.KuryrLoadBalancer, error) {
	var klb kuryrv1.KuryrLoadBalancer
	if err := c.Get(ctx, key, &klb); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get kuryrloadbalancer %s: %w", key, err)
	}
	return &klb, nil
}

func serviceIP(svc *corev1.Service) string {
	if ip := svc.GetAnnotations()[kube.AnnotationServiceIP]; ip != "" {
		return ip
	}
	if slices.Contains(supportedServiceTypes, svc.Spec.Type) {
		return svc.Spec.ClusterIP
	}
	return ""
}

func loadBalancerPorts(svc *corev1.Service) []kuryrv1.LoadBalancerPort {
	out := make([]kuryrv1.LoadBalancerPort, 0, len(svc.Spec.Ports))
	for _, p := range svc.Spec.Ports {
		out = append(out, kuryrv1.LoadBalancerPort{
			Name:       p.Name,
			Port:       p.Port,
			Protocol:   string(p.Protocol),
			TargetPort: p.TargetPort.String(),
		})
	}
	return out
}

// normalizePorts sorts ports so that reordering alone is not a change.
func normalizePorts(ports []kuryrv1.LoadBalancerPort) []kuryrv1.LoadBalancerPort {
	out := slices.Clone(ports)
	for i := range out {
		if out[i].Protocol == "" {
			out[i].Protocol = string(corev1.ProtocolTCP)
		}
	}
	slices.SortFunc(out, func(a, b kuryrv1.LoadBalancerPort) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		if c := strings.Compare(a.Protocol, b.Protocol); c != 0 {
			return c
		}
		if a.Port != b.Port {
			return int(a.Port - b.Port)
		}
		return strings.Compare(a.TargetPort, b.TargetPort)
	})
	return out
}

func hasAnnotation(obj client.Object, key string) bool {
	_, ok := obj.GetAnnotations()[key]
	return ok
}

func annotationInt(obj client.Object, key string, def int) int {
	raw, ok := obj.GetAnnotations()[key]
	if !ok {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}
