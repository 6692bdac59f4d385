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

// Package metrics exposes operator counters on the controller-runtime
// metrics endpoint.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	ctrlmetrics "sigs.k8s.io/controller-runtime/pkg/metrics"
)

const (
	MetricNamespace = "kuryr"
	MetricSubsystem = "controller"
)

var SecurityGroupRuleOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: MetricNamespace,
	Subsystem: MetricSubsystem,
	Name:      "security_group_rule_operations_total",
	Help:      "Neutron security group rule operations issued for network policies, by operation.",
}, []string{"operation"})

var PortSecurityGroupUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: MetricNamespace,
	Subsystem: MetricSubsystem,
	Name:      "port_security_group_updates_total",
	Help:      "Neutron port security group updates, by controller.",
}, []string{"controller"})

var NotReadyRequeues = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: MetricNamespace,
	Subsystem: MetricSubsystem,
	Name:      "not_ready_requeues_total",
	Help:      "Reconciles requeued because a dependency was not ready, by controller.",
}, []string{"controller"})

var TerminalErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: MetricNamespace,
	Subsystem: MetricSubsystem,
	Name:      "terminal_errors_total",
	Help:      "Reconciles aborted with an integrity or configuration error, by controller.",
}, []string{"controller"})

var registerOnce sync.Once

// Register adds the collectors to the controller-runtime registry.
func Register() {
	registerOnce.Do(func() {
		ctrlmetrics.Registry.MustRegister(
			SecurityGroupRuleOperations,
			PortSecurityGroupUpdates,
			NotReadyRequeues,
			TerminalErrors,
		)
	})
}
