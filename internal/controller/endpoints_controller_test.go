package controller

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/kube"
)

func testEndpoints(name string, ips ...string) *corev1.Endpoints {
	subset := corev1.EndpointSubset{
		Ports: []corev1.EndpointPort{{Name: "http", Port: 8080, Protocol: corev1.ProtocolTCP}},
	}
	for i, ip := range ips {
		subset.Addresses = append(subset.Addresses, corev1.EndpointAddress{
			IP:        ip,
			TargetRef: &corev1.ObjectReference{Kind: "Pod", Namespace: "ns1", Name: []string{"web-1", "web-2", "web-3"}[i]},
		})
	}
	return &corev1.Endpoints{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "ns1"},
		Subsets:    []corev1.EndpointSubset{subset},
	}
}

var _ = Describe("EndpointsReconciler", func() {
	var writes *writeCounter

	BeforeEach(func() {
		writes = &writeCounter{}
	})

	newReconciler := func(objs ...client.Object) *EndpointsReconciler {
		c := newTestClient(writes, objs...)
		return &EndpointsReconciler{Client: c, Scheme: c.Scheme(), Config: testConfig()}
	}

	getKLB := func(r *EndpointsReconciler, name string) (*kuryrv1.KuryrLoadBalancer, error) {
		var klb kuryrv1.KuryrLoadBalancer
		err := r.Get(ctx, types.NamespacedName{Namespace: "ns1", Name: name}, &klb)
		return &klb, err
	}

	It("creates a load balancer holding the endpoint slices", func() {
		r := newReconciler(testEndpoints("web", "10.0.0.5", "10.0.0.6"))

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		klb, err := getKLB(r, "web")
		Expect(err).NotTo(HaveOccurred())
		Expect(klb.Finalizers).To(ConsistOf(kube.KuryrLoadBalancerFinalizer))
		Expect(klb.Spec.Provider).To(Equal("amphora"))
		Expect(klb.Spec.EndpointSlices).To(HaveLen(1))
		slice := klb.Spec.EndpointSlices[0]
		Expect(slice.Endpoints).To(HaveLen(2))
		Expect(slice.Endpoints[0].Addresses).To(Equal([]string{"10.0.0.5"}))
		Expect(slice.Endpoints[0].Conditions.Ready).To(Equal(ptr.To(true)))
		Expect(slice.Endpoints[0].TargetRef.Name).To(Equal("web-1"))
		Expect(slice.Ports).To(Equal([]kuryrv1.EndpointPort{{Name: "http", Port: 8080, Protocol: "TCP"}}))
	})

	It("updates the slices of an existing load balancer only", func() {
		klb := &kuryrv1.KuryrLoadBalancer{
			ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "ns1"},
			Spec:       kuryrv1.KuryrLoadBalancerSpec{IP: "10.1.0.10", SubnetID: "subnet-svc"},
		}
		r := newReconciler(testEndpoints("web", "10.0.0.7"), klb)

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		got, err := getKLB(r, "web")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Spec.IP).To(Equal("10.1.0.10"))
		Expect(got.Spec.SubnetID).To(Equal("subnet-svc"))
		Expect(got.Spec.EndpointSlices[0].Endpoints[0].Addresses).To(Equal([]string{"10.0.0.7"}))
	})

	It("ignores endpoints without addresses until a load balancer exists", func() {
		eps := &corev1.Endpoints{ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "ns1"}}
		r := newReconciler(eps)

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writes.total()).To(BeZero())
	})

	It("ignores endpoints of headless services", func() {
		eps := testEndpoints("db", "10.0.0.8")
		eps.Labels = map[string]string{kube.HeadlessLabel: ""}
		r := newReconciler(eps)

		_, err := r.Reconcile(ctx, request("ns1", "db"))
		Expect(err).NotTo(HaveOccurred())
		_, err = getKLB(r, "db")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("drops the endpoint slices when the endpoints are deleted", func() {
		klb := &kuryrv1.KuryrLoadBalancer{
			ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "ns1"},
			Spec: kuryrv1.KuryrLoadBalancerSpec{
				IP:             "10.1.0.10",
				EndpointSlices: []kuryrv1.EndpointSlice{{Endpoints: []kuryrv1.Endpoint{{Addresses: []string{"10.0.0.5"}}}}},
			},
		}
		r := newReconciler(klb)

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		got, err := getKLB(r, "web")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Spec.EndpointSlices).To(BeNil())
		Expect(got.Spec.IP).To(Equal("10.1.0.10"))

		patches := writes.patches
		_, err = r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writes.patches).To(Equal(patches))
	})

	It("writes mirror endpoints from the pods' secondary interfaces", func() {
		svc := testService("web")
		svc.Annotations = map[string]string{kube.AnnotationXServiceName: "web-x"}
		pod := testPod("web-1")
		pod.Annotations = map[string]string{kube.AnnotationXVIFName: "eth1"}
		kp := boundPort(pod, "10.0.0.5")
		kp.Status.VIFs["eth1"] = kuryrv1.VIFStatus{VIF: testVIF("port-2", "net-x", "10.2.0.7")}
		r := newReconciler(svc, pod, kp, testEndpoints("web", "10.0.0.5"))

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		var mirror corev1.Endpoints
		Expect(r.Get(ctx, types.NamespacedName{Namespace: "ns1", Name: "web-x"}, &mirror)).To(Succeed())
		Expect(mirror.Subsets).To(HaveLen(1))
		Expect(mirror.Subsets[0].Addresses).To(Equal([]corev1.EndpointAddress{{IP: "10.2.0.7"}}))
		Expect(mirror.Subsets[0].Ports).To(HaveLen(1))
	})
})
