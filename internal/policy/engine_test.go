package policy

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/intstr"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
	ctrlfake "sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/kerrors"
	"kuryr-operator/pkg/openstack"
	"kuryr-operator/pkg/openstack/fake"
)

func newScheme(g *WithT) *runtime.Scheme {
	s := runtime.NewScheme()
	g.Expect(clientgoscheme.AddToScheme(s)).To(Succeed())
	g.Expect(kuryrv1.AddToScheme(s)).To(Succeed())
	return s
}

func webPod() *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "web-1", Namespace: "ns1", Labels: map[string]string{"app": "web"}},
		Status:     corev1.PodStatus{PodIP: "10.0.0.5"},
	}
}

func namespace(name string, labels map[string]string) *corev1.Namespace {
	return &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: name, Labels: labels}}
}

func ingressPolicy(ns, name, sg string, peer networkingv1.NetworkPolicyPeer, ports ...networkingv1.NetworkPolicyPort) *kuryrv1.KuryrNetworkPolicy {
	return &kuryrv1.KuryrNetworkPolicy{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns},
		Spec: kuryrv1.KuryrNetworkPolicySpec{
			SecurityGroupID: sg,
			NetworkPolicySpec: networkingv1.NetworkPolicySpec{
				Ingress: []networkingv1.NetworkPolicyIngressRule{{
					From:  []networkingv1.NetworkPolicyPeer{peer},
					Ports: ports,
				}},
			},
		},
	}
}

func tcpPort(p int) networkingv1.NetworkPolicyPort {
	return networkingv1.NetworkPolicyPort{
		Protocol: ptr.To(corev1.ProtocolTCP),
		Port:     ptr.To(intstr.FromInt32(int32(p))),
	}
}

func getKNP(g *WithT, c client.Client, ns, name string) *kuryrv1.KuryrNetworkPolicy {
	knp := &kuryrv1.KuryrNetworkPolicy{}
	g.Expect(c.Get(context.Background(), client.ObjectKey{Namespace: ns, Name: name}, knp)).To(Succeed())
	return knp
}

func TestSynthesizeRulesForPod(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()
	peer := networkingv1.NetworkPolicyPeer{PodSelector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": "web"}}}
	knp := ingressPolicy("ns1", "allow-web", "sg-np", peer, tcpPort(80))
	c := ctrlfake.NewClientBuilder().WithScheme(newScheme(g)).
		WithObjects(namespace("ns1", nil), knp).Build()
	neutron := fake.NewNeutron()
	e := NewEngine(c, neutron, []string{"sg-default"})

	g.Expect(e.SynthesizeRulesForPod(ctx, webPod())).To(Succeed())

	got := getKNP(g, c, "ns1", "allow-web")
	want := []kuryrv1.SecurityGroupRuleEntry{{
		Namespace: "ns1",
		Rule: kuryrv1.SecurityGroupRule{
			ID:              "rule-1",
			Direction:       "ingress",
			Ethertype:       "IPv4",
			Protocol:        "tcp",
			PortRangeMin:    80,
			PortRangeMax:    80,
			RemoteIPPrefix:  "10.0.0.5/32",
			SecurityGroupID: "sg-np",
			Description:     ruleDescription,
		},
	}}
	if diff := cmp.Diff(want, got.Spec.IngressSgRules); diff != "" {
		t.Errorf("ingress rules mismatch (-want +got):\n%s", diff)
	}
	g.Expect(got.Spec.EgressSgRules).To(BeEmpty())
	g.Expect(neutron.RuleList()).To(HaveLen(1))

	// a second pass changes nothing
	g.Expect(e.SynthesizeRulesForPod(ctx, webPod())).To(Succeed())
	g.Expect(neutron.RuleCreates).To(Equal(1))
	g.Expect(neutron.RuleDeletes).To(BeZero())
}

func TestSynthesizeRulesForPod_StaleRuleReplaced(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()
	peer := networkingv1.NetworkPolicyPeer{PodSelector: &metav1.LabelSelector{}}
	knp := ingressPolicy("ns1", "allow-all", "sg-np", peer, tcpPort(443))
	knp.Spec.IngressSgRules = []kuryrv1.SecurityGroupRuleEntry{
		{Namespace: "ns1", Rule: kuryrv1.SecurityGroupRule{
			ID: "old", Direction: "ingress", Ethertype: "IPv4", Protocol: "tcp",
			PortRangeMin: 80, PortRangeMax: 80, RemoteIPPrefix: "10.0.0.5", SecurityGroupID: "sg-np",
		}},
		{Namespace: "ns1", Rule: kuryrv1.SecurityGroupRule{
			ID: "other", Direction: "ingress", Ethertype: "IPv4", Protocol: "tcp",
			PortRangeMin: 443, PortRangeMax: 443, RemoteIPPrefix: "10.0.0.9/32", SecurityGroupID: "sg-np",
		}},
	}
	c := ctrlfake.NewClientBuilder().WithScheme(newScheme(g)).
		WithObjects(namespace("ns1", nil), knp).Build()
	neutron := fake.NewNeutron()
	neutron.Rules["old"] = openstack.SecurityGroupRule{ID: "old", SecurityGroupID: "sg-np"}
	e := NewEngine(c, neutron, nil)

	g.Expect(e.SynthesizeRulesForPod(ctx, webPod())).To(Succeed())

	rules := getKNP(g, c, "ns1", "allow-all").Spec.IngressSgRules
	g.Expect(rules).To(HaveLen(2))
	g.Expect(rules[0].Rule.ID).To(Equal("other"))
	g.Expect(rules[1].Rule.PortRangeMin).To(Equal(443))
	g.Expect(rules[1].Rule.RemoteIPPrefix).To(Equal("10.0.0.5/32"))
	g.Expect(neutron.Rules).NotTo(HaveKey("old"))
	g.Expect(neutron.RuleDeletes).To(Equal(1))
}

func TestSynthesizeRulesForPod_PeerSelectors(t *testing.T) {
	tests := []struct {
		name          string
		policyNS      string
		peer          networkingv1.NetworkPolicyPeer
		wantRules     int
		wantNamespace string
	}{
		{
			name:      "same namespace without namespace selector",
			policyNS:  "ns1",
			peer:      networkingv1.NetworkPolicyPeer{},
			wantRules: 1, wantNamespace: "ns1",
		},
		{
			name:     "other namespace without namespace selector",
			policyNS: "ns2",
			peer:     networkingv1.NetworkPolicyPeer{},
		},
		{
			name:      "empty namespace selector is cluster wide",
			policyNS:  "ns2",
			peer:      networkingv1.NetworkPolicyPeer{NamespaceSelector: &metav1.LabelSelector{}},
			wantRules: 1, wantNamespace: "",
		},
		{
			name:     "namespace selector matching",
			policyNS: "ns2",
			peer: networkingv1.NetworkPolicyPeer{
				NamespaceSelector: &metav1.LabelSelector{MatchLabels: map[string]string{"team": "a"}},
			},
			wantRules: 1, wantNamespace: "ns1",
		},
		{
			name:     "namespace selector not matching",
			policyNS: "ns2",
			peer: networkingv1.NetworkPolicyPeer{
				NamespaceSelector: &metav1.LabelSelector{MatchLabels: map[string]string{"team": "b"}},
			},
		},
		{
			name:     "pod selector not matching",
			policyNS: "ns1",
			peer: networkingv1.NetworkPolicyPeer{
				PodSelector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": "db"}},
			},
		},
		{
			name:     "ip block ignored",
			policyNS: "ns1",
			peer:     networkingv1.NetworkPolicyPeer{IPBlock: &networkingv1.IPBlock{CIDR: "10.0.0.0/8"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			knp := ingressPolicy(tt.policyNS, "np", "sg-np", tt.peer, tcpPort(80))
			c := ctrlfake.NewClientBuilder().WithScheme(newScheme(g)).
				WithObjects(namespace("ns1", map[string]string{"team": "a"}), knp).Build()
			e := NewEngine(c, fake.NewNeutron(), nil)

			g.Expect(e.SynthesizeRulesForPod(context.Background(), webPod())).To(Succeed())

			rules := getKNP(g, c, tt.policyNS, "np").Spec.IngressSgRules
			g.Expect(rules).To(HaveLen(tt.wantRules))
			if tt.wantRules > 0 {
				g.Expect(rules[0].Namespace).To(Equal(tt.wantNamespace))
			}
		})
	}
}

func TestRulesForPorts(t *testing.T) {
	g := NewWithT(t)
	udp := corev1.ProtocolUDP
	ports := []networkingv1.NetworkPolicyPort{
		{Protocol: &udp, Port: ptr.To(intstr.FromInt32(53))},
		{Port: ptr.To(intstr.FromInt32(8000)), EndPort: ptr.To[int32](8080)},
		{Port: ptr.To(intstr.FromString("http"))},
		{Protocol: &udp},
	}

	rules := rulesForPorts("sg", DirectionEgress, "fd00::5/128", ports)

	g.Expect(rules).To(HaveLen(3))
	type span struct {
		protocol string
		min, max int
	}
	var got []span
	for _, r := range rules {
		got = append(got, span{r.Protocol, r.PortRangeMin, r.PortRangeMax})
	}
	g.Expect(got).To(Equal([]span{{"udp", 53, 53}, {"tcp", 8000, 8080}, {"udp", minPort, maxPort}}))
	for _, r := range rules {
		g.Expect(r.Ethertype).To(Equal("IPv6"))
		g.Expect(r.Direction).To(Equal(DirectionEgress))
	}

	all := rulesForPorts("sg", DirectionIngress, "10.0.0.5/32", nil)
	g.Expect(all).To(HaveLen(1))
	g.Expect(all[0].Protocol).To(Equal("tcp"))
	g.Expect(all[0].PortRangeMin).To(Equal(minPort))
	g.Expect(all[0].PortRangeMax).To(Equal(maxPort))
}

func TestSynthesizeRulesForPod_AdoptsExistingRule(t *testing.T) {
	g := NewWithT(t)
	knp := ingressPolicy("ns1", "np", "sg-np", networkingv1.NetworkPolicyPeer{}, tcpPort(80))
	c := ctrlfake.NewClientBuilder().WithScheme(newScheme(g)).
		WithObjects(namespace("ns1", nil), knp).Build()
	neutron := fake.NewNeutron()
	neutron.Rules["leftover"] = openstack.SecurityGroupRule{
		ID: "leftover", SecurityGroupID: "sg-np", Direction: "ingress", Ethertype: "IPv4",
		Protocol: "tcp", PortRangeMin: 80, PortRangeMax: 80, RemoteIPPrefix: "10.0.0.5/32",
	}
	e := NewEngine(c, neutron, nil)

	g.Expect(e.SynthesizeRulesForPod(context.Background(), webPod())).To(Succeed())

	rules := getKNP(g, c, "ns1", "np").Spec.IngressSgRules
	g.Expect(rules).To(HaveLen(1))
	g.Expect(rules[0].Rule.ID).To(Equal("leftover"))
	g.Expect(neutron.RuleCreates).To(BeZero())
}

func TestSynthesizeRulesForPod_PatchConflict(t *testing.T) {
	g := NewWithT(t)
	knp := ingressPolicy("ns1", "np", "sg-np", networkingv1.NetworkPolicyPeer{}, tcpPort(80))
	c := ctrlfake.NewClientBuilder().WithScheme(newScheme(g)).
		WithObjects(namespace("ns1", nil), knp).
		WithInterceptorFuncs(interceptor.Funcs{
			Patch: func(ctx context.Context, c client.WithWatch, obj client.Object, patch client.Patch, opts ...client.PatchOption) error {
				return apierrors.NewConflict(schema.GroupResource{Group: "openstack.org", Resource: "kuryrnetworkpolicies"}, obj.GetName(), nil)
			},
		}).Build()
	e := NewEngine(c, fake.NewNeutron(), nil)

	err := e.SynthesizeRulesForPod(context.Background(), webPod())

	g.Expect(kerrors.IsNotReady(err)).To(BeTrue())
}

func TestSynthesizeRulesForPod_NoAddress(t *testing.T) {
	g := NewWithT(t)
	c := ctrlfake.NewClientBuilder().WithScheme(newScheme(g)).Build()
	neutron := fake.NewNeutron()
	e := NewEngine(c, neutron, nil)
	pod := webPod()
	pod.Status.PodIP = ""

	g.Expect(e.SynthesizeRulesForPod(context.Background(), pod)).To(Succeed())
	g.Expect(neutron.RuleCreates).To(BeZero())
}

func TestRemoveRulesForPod(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()
	knp := ingressPolicy("ns1", "np", "sg-np", networkingv1.NetworkPolicyPeer{}, tcpPort(80))
	c := ctrlfake.NewClientBuilder().WithScheme(newScheme(g)).
		WithObjects(namespace("ns1", nil), knp).Build()
	neutron := fake.NewNeutron()
	e := NewEngine(c, neutron, nil)

	other := webPod()
	other.Name = "web-2"
	other.Status.PodIP = "10.0.0.6"
	g.Expect(e.SynthesizeRulesForPod(ctx, webPod())).To(Succeed())
	g.Expect(e.SynthesizeRulesForPod(ctx, other)).To(Succeed())
	g.Expect(getKNP(g, c, "ns1", "np").Spec.IngressSgRules).To(HaveLen(2))

	g.Expect(e.RemoveRulesForPod(ctx, webPod())).To(Succeed())

	rules := getKNP(g, c, "ns1", "np").Spec.IngressSgRules
	g.Expect(rules).To(HaveLen(1))
	g.Expect(rules[0].Rule.RemoteIPPrefix).To(Equal("10.0.0.6/32"))
	g.Expect(neutron.RuleList()).To(HaveLen(1))
}

func TestSecurityGroupsForPod(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()
	web := &kuryrv1.KuryrNetworkPolicy{
		ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "ns1"},
		Spec: kuryrv1.KuryrNetworkPolicySpec{
			SecurityGroupID: "sg-web",
			PodSelector:     &metav1.LabelSelector{MatchLabels: map[string]string{"app": "web"}},
		},
	}
	all := &kuryrv1.KuryrNetworkPolicy{
		ObjectMeta: metav1.ObjectMeta{Name: "all", Namespace: "ns1"},
		Spec:       kuryrv1.KuryrNetworkPolicySpec{SecurityGroupID: "sg-all", PodSelector: &metav1.LabelSelector{}},
	}
	pending := &kuryrv1.KuryrNetworkPolicy{
		ObjectMeta: metav1.ObjectMeta{Name: "pending", Namespace: "ns1"},
	}
	elsewhere := &kuryrv1.KuryrNetworkPolicy{
		ObjectMeta: metav1.ObjectMeta{Name: "elsewhere", Namespace: "ns2"},
		Spec:       kuryrv1.KuryrNetworkPolicySpec{SecurityGroupID: "sg-ns2"},
	}
	c := ctrlfake.NewClientBuilder().WithScheme(newScheme(g)).
		WithObjects(web, all, pending, elsewhere).Build()
	e := NewEngine(c, fake.NewNeutron(), []string{"sg-default"})

	sgs, err := e.SecurityGroupsForPod(ctx, webPod())
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sgs).To(ConsistOf("sg-web", "sg-all"))

	db := webPod()
	db.Labels = map[string]string{"app": "db"}
	sgs, err = e.SecurityGroupsForPod(ctx, db)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sgs).To(ConsistOf("sg-all"))

	lonely := webPod()
	lonely.Namespace = "ns3"
	sgs, err = e.SecurityGroupsForPod(ctx, lonely)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(sgs).To(Equal([]string{"sg-default"}))
}

func TestSecurityGroupsForPod_NoDefaults(t *testing.T) {
	g := NewWithT(t)
	c := ctrlfake.NewClientBuilder().WithScheme(newScheme(g)).Build()
	e := NewEngine(c, fake.NewNeutron(), nil)

	_, err := e.SecurityGroupsForPod(context.Background(), webPod())

	g.Expect(kerrors.IsTerminal(err)).To(BeTrue())
}
