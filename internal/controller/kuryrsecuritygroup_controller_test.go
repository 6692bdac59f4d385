package controller

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/kube"
	"kuryr-operator/pkg/openstack/fake"
)

func testSecurityGroup(name string, sgs []string, subsets []corev1.EndpointSubset) *kuryrv1.KuryrSecurityGroup {
	return &kuryrv1.KuryrSecurityGroup{
		ObjectMeta: metav1.ObjectMeta{
			Name:       name,
			Namespace:  "ns1",
			Finalizers: []string{kube.KuryrSecurityGroupFinalizer},
		},
		Spec: kuryrv1.KuryrSecurityGroupSpec{
			EndpointName:     name,
			SecurityGroupIDs: sgs,
			EndpointSubsets:  subsets,
		},
	}
}

var _ = Describe("KuryrSecurityGroupReconciler", func() {
	var (
		neutron *fake.Neutron
		writes  *writeCounter
	)

	BeforeEach(func() {
		neutron = newTestNeutron()
		writes = &writeCounter{}
	})

	newReconciler := func(objs ...client.Object) *KuryrSecurityGroupReconciler {
		c := newTestClient(writes, objs...)
		return &KuryrSecurityGroupReconciler{
			Client:                c,
			Scheme:                c.Scheme(),
			Neutron:               neutron,
			DefaultSecurityGroups: []string{"sg-a"},
		}
	}

	It("does nothing when the status already matches the desired state", func() {
		subsets := testEndpoints("web", "10.0.0.5").Subsets
		ksg := testSecurityGroup("web", []string{"sg-a2"}, subsets)
		ksg.Status = kuryrv1.KuryrSecurityGroupStatus{SecurityGroupIDs: []string{"sg-a2"}, EndpointSubsets: subsets}
		pod := testPod("web-1")
		r := newReconciler(ksg, pod, boundPort(pod, "10.0.0.5"), testEndpoints("web", "10.0.0.5"))

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writes.total()).To(BeZero())
		Expect(neutron.PortUpdates).To(BeZero())
	})

	It("applies the groups of the port's project and records them", func() {
		subsets := testEndpoints("web", "10.0.0.5").Subsets
		ksg := testSecurityGroup("web", []string{"sg-a2", "sg-b"}, subsets)
		pod := testPod("web-1")
		r := newReconciler(ksg, pod, boundPort(pod, "10.0.0.5"))

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())
		Expect(neutron.Ports["port-1"].SecurityGroups).To(Equal([]string{"sg-a2"}))

		var got kuryrv1.KuryrSecurityGroup
		Expect(r.Get(ctx, client.ObjectKeyFromObject(ksg), &got)).To(Succeed())
		Expect(got.Status.SecurityGroupIDs).To(Equal([]string{"sg-a2", "sg-b"}))
		Expect(got.Status.EndpointSubsets).To(HaveLen(1))
		Expect(writes.statusPatches).To(Equal(1))
	})

	It("adds its finalizer", func() {
		ksg := testSecurityGroup("web", []string{"sg-a"}, nil)
		ksg.Finalizers = nil
		r := newReconciler(ksg)

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		var got kuryrv1.KuryrSecurityGroup
		Expect(r.Get(ctx, client.ObjectKeyFromObject(ksg), &got)).To(Succeed())
		Expect(got.Finalizers).To(ConsistOf(kube.KuryrSecurityGroupFinalizer))
	})

	It("copies changed endpoint subsets into the KuryrSecurityGroup", func() {
		ksg := testSecurityGroup("web", []string{"sg-a"}, testEndpoints("web", "10.0.0.5").Subsets)
		pod := testPod("web-1")
		r := newReconciler(ksg, pod, boundPort(pod, "10.0.0.5"), testEndpoints("web", "10.0.0.5", "10.0.0.6"))

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		var got kuryrv1.KuryrSecurityGroup
		Expect(r.Get(ctx, client.ObjectKeyFromObject(ksg), &got)).To(Succeed())
		Expect(got.Spec.EndpointSubsets[0].Addresses).To(HaveLen(2))
		Expect(got.Status.EndpointSubsets[0].Addresses).To(HaveLen(2))
	})

	It("restores the default groups and releases the service on deletion", func() {
		subsets := testEndpoints("web", "10.0.0.5").Subsets
		ksg := testSecurityGroup("web", []string{"sg-a2"}, subsets)
		deleting(ksg)
		svc := testService("web")
		svc.Finalizers = []string{kube.KuryrSecurityGroupFinalizer, kube.ServiceFinalizer}
		pod := testPod("web-1")
		r := newReconciler(ksg, svc, pod, boundPort(pod, "10.0.0.5"))

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())
		Expect(neutron.Ports["port-1"].SecurityGroups).To(Equal([]string{"sg-a"}))

		var live corev1.Service
		Expect(r.Get(ctx, client.ObjectKeyFromObject(svc), &live)).To(Succeed())
		Expect(live.Finalizers).To(ConsistOf(kube.ServiceFinalizer))

		err = r.Get(ctx, client.ObjectKeyFromObject(ksg), &kuryrv1.KuryrSecurityGroup{})
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("lists every pod behind the subsets once", func() {
		ksg := testSecurityGroup("web", nil, []corev1.EndpointSubset{{
			Addresses: []corev1.EndpointAddress{
				{IP: "10.0.0.5", TargetRef: &corev1.ObjectReference{Kind: "Pod", Name: "web-1"}},
				{IP: "10.0.0.9", TargetRef: &corev1.ObjectReference{Kind: "Node", Name: "node-1"}},
			},
			NotReadyAddresses: []corev1.EndpointAddress{
				{IP: "10.0.0.6", TargetRef: &corev1.ObjectReference{Kind: "Pod", Namespace: "ns1", Name: "web-2"}},
				{IP: "10.0.0.5", TargetRef: &corev1.ObjectReference{Kind: "Pod", Namespace: "ns1", Name: "web-1"}},
			},
		}})
		Expect(backingPods(ksg)).To(HaveLen(2))
	})
})

var _ = Describe("ServiceSecurityGroupReconciler", func() {
	newReconciler := func(objs ...client.Object) *ServiceSecurityGroupReconciler {
		c := newTestClient(nil, objs...)
		return &ServiceSecurityGroupReconciler{Client: c, Scheme: c.Scheme()}
	}

	It("holds a service that references a KuryrSecurityGroup", func() {
		svc := testService("web")
		svc.Annotations = map[string]string{kube.AnnotationSecurityGroupCRD: "web"}
		r := newReconciler(svc)

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		var got corev1.Service
		Expect(r.Get(ctx, client.ObjectKeyFromObject(svc), &got)).To(Succeed())
		Expect(got.Finalizers).To(ContainElement(kube.KuryrSecurityGroupFinalizer))
	})

	It("deletes the KuryrSecurityGroup of a deleted service", func() {
		svc := testService("web")
		deleting(svc, kube.KuryrSecurityGroupFinalizer)
		r := newReconciler(svc, testSecurityGroup("web", []string{"sg-a"}, nil))

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		var got kuryrv1.KuryrSecurityGroup
		Expect(r.Get(ctx, request("ns1", "web").NamespacedName, &got)).To(Succeed())
		Expect(got.DeletionTimestamp).NotTo(BeNil())
	})

	It("releases the service when its KuryrSecurityGroup is gone", func() {
		svc := testService("web")
		deleting(svc, kube.KuryrSecurityGroupFinalizer)
		r := newReconciler(svc)

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())
		err = r.Get(ctx, client.ObjectKeyFromObject(svc), &corev1.Service{})
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})
})
