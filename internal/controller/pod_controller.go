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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/drivers"
	"kuryr-operator/internal/kerrors"
	"kuryr-operator/internal/kube"
	"kuryr-operator/internal/policy"
	"kuryr-operator/pkg/openstack"
)

const podControllerName = "pod"

// PodReconciler keeps one KuryrPort per scheduled pod that is not on the
// host network, and tears it down when the pod goes away.
type PodReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	Neutron   openstack.Interface
	Resolvers *drivers.Resolvers
	// Policy is nil when network policies are disabled.
	Policy *policy.Engine

	// QuotaProject is the project whose port quota gates new pods.
	QuotaProject  string
	RetryInterval time.Duration
}

// +kubebuilder:rbac:groups="",resources=pods,verbs=get;list;watch;patch;update
// +kubebuilder:rbac:groups="",resources=namespaces,verbs=get;list;watch
// +kubebuilder:rbac:groups=openstack.org,resources=kuryrports,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=openstack.org,resources=kuryrnetworkpolicies,verbs=get;list;watch;update;patch

// Reconcile drives one pod through its lifecycle: finalizer, KuryrPort
// creation, security group convergence and teardown.
func (r *PodReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	var pod corev1.Pod
	if err := r.Get(ctx, req.NamespacedName, &pod); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}
	return finish(log, podControllerName, r.RetryInterval, r.reconcilePod(ctx, &pod))
}

func (r *PodReconciler) reconcilePod(ctx context.Context, pod *corev1.Pod) error {
	log := logf.FromContext(ctx)

	if pod.DeletionTimestamp != nil {
		if !controllerutil.ContainsFinalizer(pod, kube.PodFinalizer) {
			return nil
		}
		if !kube.IsTerminating(pod) {
			log.V(1).Info("pod deletion requested; waiting for containers to stop")
			return nil
		}
		return r.finalize(ctx, pod)
	}
	if kube.IsHostNetwork(pod) || !kube.IsScheduled(pod) {
		return nil
	}

	ok, err := kube.AddFinalizer(ctx, r.Client, pod, kube.PodFinalizer)
	if err != nil {
		return fmt.Errorf("add pod finalizer: %w", err)
	}
	if !ok {
		log.V(1).Info("pod deleted before finalizer was added")
		return nil
	}

	kp, err := getKuryrPort(ctx, r.Client, client.ObjectKeyFromObject(pod))
	if err != nil {
		return err
	}
	if kube.IsCompleted(pod) {
		if kp == nil {
			log.V(1).Info("pod completed without kuryrport; nothing to do")
			return nil
		}
		log.V(1).Info("pod completed; removing its kuryrport")
		return r.finalize(ctx, pod)
	}

	if kp == nil {
		return r.createKuryrPort(ctx, pod)
	}

	if len(kp.Status.VIFs) > 0 {
		if err := r.convergePorts(ctx, pod, kp); err != nil {
			return err
		}
	}
	if r.Policy != nil {
		if err := r.Policy.SynthesizeRulesForPod(ctx, pod); err != nil {
			return fmt.Errorf("synthesize policy rules: %w", err)
		}
	}
	return nil
}

func (r *PodReconciler) createKuryrPort(ctx context.Context, pod *corev1.Pod) error {
	log := logf.FromContext(ctx)

	ready, err := r.IsReady(ctx)
	if err != nil {
		return err
	}
	if !ready {
		return kerrors.NewNotReady("port quota of project "+r.QuotaProject, nil)
	}
	// fail early on missing subnets, before the CNI side sees the pod
	if _, err := r.Resolvers.PodNetworking(ctx, pod); err != nil {
		return err
	}

	kp := &kuryrv1.KuryrPort{
		ObjectMeta: metav1.ObjectMeta{
			Name:       pod.Name,
			Namespace:  pod.Namespace,
			Finalizers: []string{kube.KuryrPortFinalizer},
			Labels:     map[string]string{kube.KuryrPortNodeLabel: pod.Spec.NodeName},
		},
		Spec: kuryrv1.KuryrPortSpec{
			PodUID:      string(pod.UID),
			PodNodeName: pod.Spec.NodeName,
		},
		Status: kuryrv1.KuryrPortStatus{VIFs: map[string]kuryrv1.VIFStatus{}},
	}
	err = r.Create(ctx, kp)
	switch {
	case err == nil:
		log.Info("kuryrport created", "node", pod.Spec.NodeName)
		return nil
	case apierrors.IsAlreadyExists(err):
		return nil
	}
	if err := kerrors.FromAPI(err, pod.Namespace, "kuryrport "+pod.Name); kerrors.IsNamespaceTerminating(err) {
		return err
	}
	log.Error(err, "failed to create kuryrport")
	return kerrors.NewNotReady("pod "+pod.Namespace+"/"+pod.Name, err)
}

func (r *PodReconciler) convergePorts(ctx context.Context, pod *corev1.Pod, kp *kuryrv1.KuryrPort) error {
	projectID, err := r.Resolvers.PodProject.GetProject(ctx, pod)
	if err != nil {
		return err
	}
	sgs, err := r.Resolvers.PodSecurityGroups.GetSecurityGroups(ctx, pod, projectID)
	if err != nil {
		return err
	}
	_, err = portSecurityGroups(ctx, logf.FromContext(ctx), r.Neutron, podControllerName, kp, sgs)
	return err
}

// finalize releases everything held for pod. The pod is fetched again so
// that an event for an earlier pod with the same name cannot touch the
// current pod's KuryrPort.
func (r *PodReconciler) finalize(ctx context.Context, pod *corev1.Pod) error {
	log := logf.FromContext(ctx)

	var current corev1.Pod
	if err := r.Get(ctx, client.ObjectKeyFromObject(pod), &current); err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("get pod: %w", err)
	}
	if current.UID != pod.UID {
		log.Info("stale pod event; skipping finalize", "uid", pod.UID, "currentUID", current.UID)
		return nil
	}

	if r.Policy != nil {
		if err := r.Policy.RemoveRulesForPod(ctx, &current); err != nil {
			return fmt.Errorf("remove policy rules: %w", err)
		}
	}

	kp, err := getKuryrPort(ctx, r.Client, client.ObjectKeyFromObject(&current))
	if err != nil {
		return err
	}
	if kp == nil {
		return r.releasePod(ctx, &current)
	}

	if kp.DeletionTimestamp != nil {
		// deleted out of band; touch it so its own finalize runs again
		err := kube.Annotate(ctx, r.Client, kp, map[string]string{kube.TriggerAnnotation: uuid.NewString()})
		switch {
		case err == nil:
			return nil
		case apierrors.IsNotFound(err):
			log.Error(err, "cannot annotate kuryrport")
			return r.releasePod(ctx, &current)
		default:
			return kerrors.NewNotReady("kuryrport "+kp.Name, err)
		}
	}

	if err := r.Delete(ctx, kp); err != nil {
		if apierrors.IsNotFound(err) {
			return r.releasePod(ctx, &current)
		}
		log.Error(err, "could not delete kuryrport")
		return kerrors.NewNotReady("kuryrport "+kp.Name, err)
	}
	log.Info("kuryrport deletion requested")
	return nil
}

func (r *PodReconciler) releasePod(ctx context.Context, pod *corev1.Pod) error {
	if err := kube.RemoveFinalizer(ctx, r.Client, pod, kube.PodFinalizer); err != nil {
		return fmt.Errorf("remove pod finalizer: %w", err)
	}
	logf.FromContext(ctx).V(1).Info("pod finalizer removed")
	return nil
}

// IsReady reports false when the project has a finite port quota with no
// ports left.
func (r *PodReconciler) IsReady(ctx context.Context) (bool, error) {
	quota, err := r.Neutron.GetPortQuota(ctx, r.QuotaProject)
	if err != nil {
		return false, fmt.Errorf("get port quota: %w", err)
	}
	if quota != nil && quota.Exhausted() {
		logf.FromContext(ctx).Error(nil, "port quota exhausted; marking not ready", "limit", quota.Limit, "used", quota.Used)
		return false, nil
	}
	return true, nil
}

// Readyz is a healthz.Checker backed by IsReady.
func (r *PodReconciler) Readyz(req *http.Request) error {
	ready, err := r.IsReady(req.Context())
	if err != nil {
		return err
	}
	if !ready {
		return errors.New("port quota exhausted")
	}
	return nil
}

// SetupWithManager sets up the controller with the Manager.
func (r *PodReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&corev1.Pod{}).
		Watches(&kuryrv1.KuryrPort{}, handler.EnqueueRequestsFromMapFunc(sameName)).
		Named(podControllerName).
		WithOptions(controllerOptions()).
		Complete(r)
}
