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
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/kerrors"
	"kuryr-operator/internal/metrics"
	"kuryr-operator/pkg/openstack"
)

const defaultRetryInterval = 3 * time.Second

// Queue settings shared by every controller. Failures back off per item
// from baseDelay up to maxDelay; the whole queue is held to qps.
const (
	baseDelay = 500 * time.Millisecond
	maxDelay  = 5 * time.Minute
	qps       = 20
	burst     = 100
)

func controllerOptions() controller.Options {
	return controller.Options{
		RateLimiter: workqueue.NewTypedMaxOfRateLimiter(
			workqueue.NewTypedItemExponentialFailureRateLimiter[reconcile.Request](baseDelay, maxDelay),
			&workqueue.TypedBucketRateLimiter[reconcile.Request]{Limiter: rate.NewLimiter(rate.Limit(qps), burst)},
		),
	}
}

// finish turns the error of one reconcile pass into its result. Resources
// that are not ready yet are requeued after retry without counting as a
// failure. A namespace being deleted ends the work on the object.
func finish(log logr.Logger, name string, retry time.Duration, err error) (ctrl.Result, error) {
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	switch {
	case err == nil:
		return ctrl.Result{}, nil
	case kerrors.IsNamespaceTerminating(err):
		log.Info("namespace is being terminated; ignoring object", "reason", err.Error())
		return ctrl.Result{}, nil
	case kerrors.IsNotReady(err):
		log.V(1).Info("resource not ready; retrying", "reason", err.Error(), "after", retry)
		metrics.NotReadyRequeues.WithLabelValues(name).Inc()
		return ctrl.Result{RequeueAfter: retry}, nil
	case kerrors.IsTerminal(err):
		log.Error(err, "reconcile failed permanently")
		metrics.TerminalErrors.WithLabelValues(name).Inc()
		return ctrl.Result{}, reconcile.TerminalError(err)
	default:
		return ctrl.Result{}, err
	}
}

func getKuryrPort(ctx context.Context, c client.Client, key types.NamespacedName) (*kuryrv1.KuryrPort, error) {
	var kp kuryrv1.KuryrPort
	if err := c.Get(ctx, key, &kp); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get kuryrport %s: %w", key, err)
	}
	return &kp, nil
}

// portSecurityGroups sets the security groups of every VIF port of kp to
// the subset of sgIDs owned by the port network's project. Ports already
// carrying that set are left alone. It reports the number of ports
// updated.
func portSecurityGroups(ctx context.Context, log logr.Logger, neutron openstack.Interface, name string, kp *kuryrv1.KuryrPort, sgIDs []string) (int, error) {
	groups := make(map[string]*openstack.SecurityGroup, len(sgIDs))
	for _, id := range sgIDs {
		sg, err := neutron.GetSecurityGroup(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("get security group %s: %w", id, err)
		}
		groups[id] = sg
	}

	updated := 0
	for ifname, status := range kp.Status.VIFs {
		portID := status.VIF.PortID()
		if portID == "" || status.VIF.Data.Network == nil {
			continue
		}
		networkID := status.VIF.Data.Network.Data.ID
		network, err := neutron.GetNetwork(ctx, networkID)
		if err != nil {
			return updated, fmt.Errorf("get network %s: %w", networkID, err)
		}
		if network == nil {
			return updated, kerrors.NewNotReady("network "+networkID, nil)
		}
		var valid []string
		for _, id := range sgIDs {
			if sg := groups[id]; sg != nil && sg.ProjectID == network.ProjectID && !slices.Contains(valid, id) {
				valid = append(valid, id)
			}
		}

		port, err := neutron.GetPort(ctx, portID)
		if err != nil {
			return updated, fmt.Errorf("get port %s: %w", portID, err)
		}
		if port == nil {
			log.V(1).Info("port not found; skipping", "port", portID, "interface", ifname)
			continue
		}
		if sameSet(port.SecurityGroups, valid) {
			continue
		}
		if err := neutron.UpdatePortSecurityGroups(ctx, portID, valid); err != nil {
			if openstack.IsConflict(err) {
				return updated, kerrors.NewNotReady("port "+portID, err)
			}
			if openstack.IsNotFound(err) {
				continue
			}
			return updated, fmt.Errorf("update port %s: %w", portID, err)
		}
		metrics.PortSecurityGroupUpdates.WithLabelValues(name).Inc()
		log.Info("port security groups updated", "port", portID, "interface", ifname, "securityGroups", valid)
		updated++
	}
	return updated, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}
