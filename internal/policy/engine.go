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

// Package policy turns KuryrNetworkPolicy objects into per pod Neutron
// security group rules and decides which policy security groups a pod gets.
package policy

import (
	"context"
	"fmt"
	"net/netip"
	"slices"
	"strings"

	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/kerrors"
	"kuryr-operator/internal/kube"
	"kuryr-operator/internal/metrics"
	"kuryr-operator/pkg/openstack"
)

const (
	DirectionIngress = "ingress"
	DirectionEgress  = "egress"

	ruleDescription = "Kuryr-Kubernetes NetPolicy SG rule"
	minPort         = 1
	maxPort         = 65535
)

// Engine evaluates KuryrNetworkPolicy objects against pods.
type Engine struct {
	client                client.Client
	neutron               openstack.Interface
	defaultSecurityGroups []string
}

func NewEngine(c client.Client, neutron openstack.Interface, defaultSecurityGroups []string) *Engine {
	return &Engine{
		client:                c,
		neutron:               neutron,
		defaultSecurityGroups: slices.Clone(defaultSecurityGroups),
	}
}

// SecurityGroupsForPod returns the security groups of every policy in the
// pod's namespace selecting the pod. Pods no policy selects get the default
// security groups.
func (e *Engine) SecurityGroupsForPod(ctx context.Context, pod *corev1.Pod) ([]string, error) {
	var knps kuryrv1.KuryrNetworkPolicyList
	if err := e.client.List(ctx, &knps, client.InNamespace(pod.Namespace)); err != nil {
		return nil, fmt.Errorf("list kuryrnetworkpolicies in %s: %w", pod.Namespace, err)
	}

	var sgs []string
	for i := range knps.Items {
		knp := &knps.Items[i]
		if knp.Spec.SecurityGroupID == "" {
			continue
		}
		ok, err := selectorMatches(knp.Spec.PodSelector, pod.Labels)
		if err != nil {
			return nil, fmt.Errorf("kuryrnetworkpolicy %s/%s: %w", knp.Namespace, knp.Name, err)
		}
		if ok && !slices.Contains(sgs, knp.Spec.SecurityGroupID) {
			sgs = append(sgs, knp.Spec.SecurityGroupID)
		}
	}
	if len(sgs) > 0 {
		return sgs, nil
	}
	return e.Defaults()
}

// Defaults returns the configured default security groups, which must not
// be empty.
func (e *Engine) Defaults() ([]string, error) {
	if len(e.defaultSecurityGroups) == 0 {
		return nil, &kerrors.ConfigError{Option: "podSecurityGroups", Msg: "no default security groups configured"}
	}
	return slices.Clone(e.defaultSecurityGroups), nil
}

// SynthesizeRulesForPod converges, for every policy, the rules whose remote
// prefix is the pod's address to what the policy currently implies for the
// pod. Rules are never edited: stale ones are deleted and missing ones
// created.
func (e *Engine) SynthesizeRulesForPod(ctx context.Context, pod *corev1.Pod) error {
	log := logf.FromContext(ctx)
	prefix := kube.HostPrefix(kube.PodIP(pod))
	if prefix == "" {
		log.V(1).Info("pod has no address yet; skipping rule synthesis")
		return nil
	}

	var ns corev1.Namespace
	if err := e.client.Get(ctx, types.NamespacedName{Name: pod.Namespace}, &ns); err != nil {
		return fmt.Errorf("get namespace %s: %w", pod.Namespace, err)
	}
	var knps kuryrv1.KuryrNetworkPolicyList
	if err := e.client.List(ctx, &knps); err != nil {
		return fmt.Errorf("list kuryrnetworkpolicies: %w", err)
	}

	for i := range knps.Items {
		knp := &knps.Items[i]
		if knp.Spec.SecurityGroupID == "" {
			continue
		}
		iMatched, iDesired, err := parseRules(DirectionIngress, knp, pod, ns.Labels, prefix)
		if err != nil {
			return err
		}
		eMatched, eDesired, err := parseRules(DirectionEgress, knp, pod, ns.Labels, prefix)
		if err != nil {
			return err
		}
		iChanged, ingress, err := e.converge(ctx, knp.Spec.IngressSgRules, iDesired, prefix)
		if err != nil {
			return err
		}
		eChanged, egress, err := e.converge(ctx, knp.Spec.EgressSgRules, eDesired, prefix)
		if err != nil {
			return err
		}
		if !iChanged && !eChanged {
			continue
		}
		log.V(1).Info("updating policy rules", "kuryrnetworkpolicy", knp.Namespace+"/"+knp.Name,
			"ingressMatched", iMatched, "egressMatched", eMatched)
		if err := e.patchRules(ctx, knp, ingress, egress); err != nil {
			return err
		}
	}
	return nil
}

// RemoveRulesForPod deletes every rule whose remote prefix is the pod's
// address and stores the remaining rules back.
func (e *Engine) RemoveRulesForPod(ctx context.Context, pod *corev1.Pod) error {
	prefix := kube.HostPrefix(kube.PodIP(pod))
	if prefix == "" {
		return nil
	}
	var knps kuryrv1.KuryrNetworkPolicyList
	if err := e.client.List(ctx, &knps); err != nil {
		return fmt.Errorf("list kuryrnetworkpolicies: %w", err)
	}
	for i := range knps.Items {
		knp := &knps.Items[i]
		iChanged, ingress, err := e.converge(ctx, knp.Spec.IngressSgRules, nil, prefix)
		if err != nil {
			return err
		}
		eChanged, egress, err := e.converge(ctx, knp.Spec.EgressSgRules, nil, prefix)
		if err != nil {
			return err
		}
		if iChanged || eChanged {
			if err := e.patchRules(ctx, knp, ingress, egress); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseRules computes the rules one direction of knp implies for pod.
func parseRules(direction string, knp *kuryrv1.KuryrNetworkPolicy, pod *corev1.Pod, nsLabels map[string]string, prefix string) (bool, []kuryrv1.SecurityGroupRuleEntry, error) {
	type block struct {
		peers []networkingv1.NetworkPolicyPeer
		ports []networkingv1.NetworkPolicyPort
	}
	var blocks []block
	spec := knp.Spec.NetworkPolicySpec
	if direction == DirectionIngress {
		for _, r := range spec.Ingress {
			blocks = append(blocks, block{peers: r.From, ports: r.Ports})
		}
	} else {
		for _, r := range spec.Egress {
			blocks = append(blocks, block{peers: r.To, ports: r.Ports})
		}
	}

	matched := false
	var out []kuryrv1.SecurityGroupRuleEntry
	for _, b := range blocks {
		for _, peer := range b.peers {
			ok, namespace, err := peerMatches(peer, knp.Namespace, pod, nsLabels)
			if err != nil {
				return false, nil, fmt.Errorf("kuryrnetworkpolicy %s/%s: %w", knp.Namespace, knp.Name, err)
			}
			if !ok {
				continue
			}
			matched = true
			for _, rule := range rulesForPorts(knp.Spec.SecurityGroupID, direction, prefix, b.ports) {
				entry := kuryrv1.SecurityGroupRuleEntry{Namespace: namespace, Rule: rule}
				if !containsRule(out, rule) {
					out = append(out, entry)
				}
			}
		}
	}
	return matched, out, nil
}

// peerMatches applies the three selector forms of a peer. namespace is the
// provenance recorded on generated rules, empty for cluster wide peers.
func peerMatches(peer networkingv1.NetworkPolicyPeer, policyNamespace string, pod *corev1.Pod, nsLabels map[string]string) (bool, string, error) {
	if peer.IPBlock != nil {
		return false, "", nil
	}
	namespace := pod.Namespace
	switch {
	case peer.NamespaceSelector != nil && isEmptySelector(peer.NamespaceSelector):
		namespace = ""
	case peer.NamespaceSelector != nil:
		if len(nsLabels) == 0 {
			return false, "", nil
		}
		ok, err := selectorMatches(peer.NamespaceSelector, nsLabels)
		if err != nil || !ok {
			return false, "", err
		}
	default:
		if pod.Namespace != policyNamespace {
			return false, "", nil
		}
	}
	ok, err := selectorMatches(peer.PodSelector, pod.Labels)
	if err != nil || !ok {
		return false, "", err
	}
	return true, namespace, nil
}

func rulesForPorts(sgID, direction, prefix string, ports []networkingv1.NetworkPolicyPort) []kuryrv1.SecurityGroupRule {
	ethertype := "IPv4"
	if p, err := netip.ParsePrefix(prefix); err == nil && p.Addr().Is6() {
		ethertype = "IPv6"
	}
	newRule := func(protocol string, min, max int) kuryrv1.SecurityGroupRule {
		return kuryrv1.SecurityGroupRule{
			Direction:       direction,
			Ethertype:       ethertype,
			Protocol:        protocol,
			PortRangeMin:    min,
			PortRangeMax:    max,
			RemoteIPPrefix:  prefix,
			SecurityGroupID: sgID,
			Description:     ruleDescription,
		}
	}
	if len(ports) == 0 {
		return []kuryrv1.SecurityGroupRule{newRule("tcp", minPort, maxPort)}
	}

	var out []kuryrv1.SecurityGroupRule
	for _, p := range ports {
		protocol := "tcp"
		if p.Protocol != nil {
			protocol = strings.ToLower(string(*p.Protocol))
		}
		switch {
		case p.Port == nil:
			out = append(out, newRule(protocol, minPort, maxPort))
		case p.Port.Type == intstr.String:
			// named ports depend on the selected pods' containers
			continue
		default:
			lo := int(p.Port.IntVal)
			hi := lo
			if p.EndPort != nil && int(*p.EndPort) > lo {
				hi = int(*p.EndPort)
			}
			out = append(out, newRule(protocol, lo, hi))
		}
	}
	return out
}

// converge rewrites the entries of existing owned by prefix so they equal
// desired. Entries for other addresses are kept untouched.
func (e *Engine) converge(ctx context.Context, existing, desired []kuryrv1.SecurityGroupRuleEntry, prefix string) (bool, []kuryrv1.SecurityGroupRuleEntry, error) {
	log := logf.FromContext(ctx)
	changed := false
	out := make([]kuryrv1.SecurityGroupRuleEntry, 0, len(existing)+len(desired))
	for _, entry := range existing {
		if normalizePrefix(entry.Rule.RemoteIPPrefix) != prefix {
			out = append(out, entry)
			continue
		}
		if containsRule(desired, entry.Rule) && !containsRule(out, entry.Rule) && entry.Rule.ID != "" {
			out = append(out, entry)
			continue
		}
		if entry.Rule.ID != "" {
			if err := e.neutron.DeleteSecurityGroupRule(ctx, entry.Rule.ID); err != nil {
				return false, nil, fmt.Errorf("delete security group rule %s: %w", entry.Rule.ID, err)
			}
			metrics.SecurityGroupRuleOperations.WithLabelValues("delete").Inc()
			log.V(1).Info("deleted security group rule", "rule", entry.Rule.ID, "remoteIPPrefix", prefix)
		}
		changed = true
	}

	for _, entry := range desired {
		if containsRule(out, entry.Rule) {
			continue
		}
		id, err := e.createRule(ctx, entry.Rule)
		if err != nil {
			return false, nil, err
		}
		entry.Rule.ID = id
		out = append(out, entry)
		changed = true
	}
	return changed, out, nil
}

func (e *Engine) createRule(ctx context.Context, rule kuryrv1.SecurityGroupRule) (string, error) {
	created, err := e.neutron.CreateSecurityGroupRule(ctx, openstack.SecurityGroupRule{
		SecurityGroupID: rule.SecurityGroupID,
		Direction:       rule.Direction,
		Ethertype:       rule.Ethertype,
		Protocol:        rule.Protocol,
		PortRangeMin:    rule.PortRangeMin,
		PortRangeMax:    rule.PortRangeMax,
		RemoteIPPrefix:  rule.RemoteIPPrefix,
		Description:     rule.Description,
	})
	switch {
	case err == nil:
		metrics.SecurityGroupRuleOperations.WithLabelValues("create").Inc()
		return created.ID, nil
	case openstack.ExistingRuleID(err) != "":
		// left behind by an earlier pass that failed to persist it
		return openstack.ExistingRuleID(err), nil
	case openstack.IsConflict(err):
		return "", kerrors.NewNotReady("security group "+rule.SecurityGroupID, err)
	default:
		return "", fmt.Errorf("create security group rule in %s: %w", rule.SecurityGroupID, err)
	}
}

func (e *Engine) patchRules(ctx context.Context, knp *kuryrv1.KuryrNetworkPolicy, ingress, egress []kuryrv1.SecurityGroupRuleEntry) error {
	base := knp.DeepCopy()
	knp.Spec.IngressSgRules = ingress
	knp.Spec.EgressSgRules = egress
	err := e.client.Patch(ctx, knp, client.MergeFromWithOptions(base, client.MergeFromWithOptimisticLock{}))
	switch {
	case err == nil:
		return nil
	case apierrors.IsNotFound(err):
		return nil
	case apierrors.IsConflict(err):
		return kerrors.NewNotReady("kuryrnetworkpolicy "+knp.Namespace+"/"+knp.Name, err)
	default:
		return fmt.Errorf("patch kuryrnetworkpolicy %s/%s: %w", knp.Namespace, knp.Name, err)
	}
}

// selectorMatches treats a nil selector as matching everything.
func selectorMatches(sel *metav1.LabelSelector, set map[string]string) (bool, error) {
	if sel == nil {
		return true, nil
	}
	s, err := metav1.LabelSelectorAsSelector(sel)
	if err != nil {
		return false, err
	}
	return s.Matches(labels.Set(set)), nil
}

func isEmptySelector(sel *metav1.LabelSelector) bool {
	return len(sel.MatchLabels) == 0 && len(sel.MatchExpressions) == 0
}

// sameRule compares rules ignoring the Neutron ID and description.
func sameRule(a, b kuryrv1.SecurityGroupRule) bool {
	return a.Direction == b.Direction &&
		a.Ethertype == b.Ethertype &&
		a.Protocol == b.Protocol &&
		a.PortRangeMin == b.PortRangeMin &&
		a.PortRangeMax == b.PortRangeMax &&
		normalizePrefix(a.RemoteIPPrefix) == normalizePrefix(b.RemoteIPPrefix) &&
		a.SecurityGroupID == b.SecurityGroupID
}

func containsRule(entries []kuryrv1.SecurityGroupRuleEntry, rule kuryrv1.SecurityGroupRule) bool {
	return slices.ContainsFunc(entries, func(e kuryrv1.SecurityGroupRuleEntry) bool {
		return sameRule(e.Rule, rule)
	})
}

// normalizePrefix accepts both a bare address and a prefix.
func normalizePrefix(s string) string {
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "/") {
		return kube.HostPrefix(s)
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return s
	}
	return p.String()
}
