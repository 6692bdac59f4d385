package controller

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	networkingv1 "k8s.io/api/networking/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/config"
	"kuryr-operator/internal/kerrors"
	"kuryr-operator/internal/kube"
	"kuryr-operator/pkg/openstack/fake"
)

func testService(name string) *corev1.Service {
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: "ns1"},
		Spec: corev1.ServiceSpec{
			Type:      corev1.ServiceTypeClusterIP,
			ClusterIP: "10.1.0.10",
			Selector:  map[string]string{"app": "web"},
			Ports: []corev1.ServicePort{{
				Name:       "http",
				Port:       80,
				Protocol:   corev1.ProtocolTCP,
				TargetPort: intstr.FromInt32(8080),
			}},
		},
	}
}

var _ = Describe("ServiceReconciler", func() {
	var (
		neutron *fake.Neutron
		writes  *writeCounter
		cfg     config.Config
	)

	BeforeEach(func() {
		neutron = newTestNeutron()
		writes = &writeCounter{}
		cfg = testConfig()
	})

	newReconciler := func(objs ...client.Object) *ServiceReconciler {
		c := newTestClient(writes, objs...)
		return &ServiceReconciler{
			Client:    c,
			Scheme:    c.Scheme(),
			Resolvers: testResolvers(cfg, c, neutron),
			Config:    cfg,
		}
	}

	getKLB := func(r *ServiceReconciler, name string) (*kuryrv1.KuryrLoadBalancer, error) {
		var klb kuryrv1.KuryrLoadBalancer
		err := r.Get(ctx, types.NamespacedName{Namespace: "ns1", Name: name}, &klb)
		return &klb, err
	}

	It("writes the load balancer spec of a ClusterIP service", func() {
		r := newReconciler(testService("web"))

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		klb, err := getKLB(r, "web")
		Expect(err).NotTo(HaveOccurred())
		Expect(klb.Finalizers).To(ConsistOf(kube.KuryrLoadBalancerFinalizer))
		Expect(klb.Spec.IP).To(Equal("10.1.0.10"))
		Expect(klb.Spec.SubnetID).To(Equal("subnet-svc"))
		Expect(klb.Spec.ProjectID).To(Equal("proj-a"))
		Expect(klb.Spec.SecurityGroupsIDs).To(ConsistOf("sg-a"))
		Expect(klb.Spec.Type).To(Equal("ClusterIP"))
		Expect(klb.Spec.Ports).To(Equal([]kuryrv1.LoadBalancerPort{
			{Name: "http", Port: 80, Protocol: "TCP", TargetPort: "8080"},
		}))

		var svc corev1.Service
		Expect(r.Get(ctx, types.NamespacedName{Namespace: "ns1", Name: "web"}, &svc)).To(Succeed())
		Expect(svc.Finalizers).To(ContainElement(kube.ServiceFinalizer))
	})

	It("never touches a headless service", func() {
		svc := testService("db")
		svc.Spec.ClusterIP = corev1.ClusterIPNone
		r := newReconciler(svc)

		_, err := r.Reconcile(ctx, request("ns1", "db"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writes.total()).To(BeZero())
		_, err = getKLB(r, "db")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("skips unsupported types and the legacy annotation", func() {
		np := testService("np")
		np.Spec.Type = corev1.ServiceTypeNodePort
		legacy := testService("legacy")
		legacy.Annotations = map[string]string{kube.AnnotationLBaaSSpec: "{}"}
		r := newReconciler(np, legacy)

		for _, name := range []string{"np", "legacy"} {
			_, err := r.Reconcile(ctx, request("ns1", name))
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(writes.total()).To(BeZero())
	})

	It("fails permanently when the service IP lies outside the annotated subnet", func() {
		svc := testService("web")
		svc.Annotations = map[string]string{kube.AnnotationSubnet: "subnet-pods"}
		r := newReconciler(svc)

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).To(HaveOccurred())
		var integrity *kerrors.IntegrityError
		Expect(errors.As(err, &integrity)).To(BeTrue())

		_, err = getKLB(r, "web")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("patches changed ports and keeps the endpoint slices", func() {
		svc := testService("web")
		svc.Finalizers = []string{kube.ServiceFinalizer}
		existing := &kuryrv1.KuryrLoadBalancer{
			ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "ns1", Finalizers: []string{kube.KuryrLoadBalancerFinalizer}},
			Spec: kuryrv1.KuryrLoadBalancerSpec{
				IP:       "10.1.0.10",
				Ports:    []kuryrv1.LoadBalancerPort{{Name: "http", Port: 80, Protocol: "TCP", TargetPort: "8000"}},
				Provider: "amphora",
				EndpointSlices: []kuryrv1.EndpointSlice{{
					Endpoints: []kuryrv1.Endpoint{{Addresses: []string{"10.0.0.5"}, Conditions: kuryrv1.EndpointConditions{Ready: ptr.To(true)}}},
				}},
			},
		}
		r := newReconciler(svc, existing)

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		klb, err := getKLB(r, "web")
		Expect(err).NotTo(HaveOccurred())
		Expect(klb.Spec.Ports[0].TargetPort).To(Equal("8080"))
		Expect(klb.Spec.SubnetID).To(Equal("subnet-svc"))
		Expect(klb.Spec.Provider).To(Equal("amphora"))
		Expect(klb.Spec.EndpointSlices).To(HaveLen(1))

		patches := writes.patches
		_, err = r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writes.patches).To(Equal(patches))
	})

	It("takes listener timeouts from annotations", func() {
		cfg.TimeoutClientData = 50000
		svc := testService("web")
		svc.Annotations = map[string]string{kube.AnnotationTimeoutMemberData: "70000"}
		r := newReconciler(svc)

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())
		klb, err := getKLB(r, "web")
		Expect(err).NotTo(HaveOccurred())
		Expect(klb.Spec.TimeoutClientData).To(Equal(50000))
		Expect(klb.Spec.TimeoutMemberData).To(Equal(70000))
	})

	It("bumps network policies before creating the load balancer", func() {
		cfg.NetworkPolicyEnabled = true
		np := &networkingv1.NetworkPolicy{ObjectMeta: metav1.ObjectMeta{Name: "allow-web", Namespace: "ns1"}}
		r := newReconciler(testService("web"), np)

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		var got networkingv1.NetworkPolicy
		Expect(r.Get(ctx, client.ObjectKeyFromObject(np), &got)).To(Succeed())
		Expect(got.Annotations).To(HaveKey(kube.AnnotationPolicyCounter))
	})

	It("creates the mirror service", func() {
		svc := testService("web")
		svc.Annotations = map[string]string{
			kube.AnnotationXServiceName: "web-x",
			kube.AnnotationXServiceIP:   "10.1.0.20",
			kube.AnnotationXSubnet:      "subnet-svc",
		}
		r := newReconciler(svc)

		_, err := r.Reconcile(ctx, request("ns1", "web"))
		Expect(err).NotTo(HaveOccurred())

		var mirror corev1.Service
		Expect(r.Get(ctx, types.NamespacedName{Namespace: "ns1", Name: "web-x"}, &mirror)).To(Succeed())
		Expect(mirror.Annotations).To(Equal(map[string]string{
			kube.AnnotationServiceIP:   "10.1.0.20",
			kube.AnnotationSubnet:      "subnet-svc",
			kube.AnnotationServiceName: "web",
		}))
		Expect(mirror.Spec.Ports).To(HaveLen(1))

		var got corev1.Service
		Expect(r.Get(ctx, client.ObjectKeyFromObject(svc), &got)).To(Succeed())
		Expect(got.Finalizers).To(ContainElements(kube.ServiceFinalizer, kube.ServiceXFinalizer))
		Expect(mirrorParent(ctx, &mirror)).To(ConsistOf(request("ns1", "web")))
	})

	Context("finalize", func() {
		It("deletes the load balancer before releasing the service", func() {
			svc := testService("web")
			deleting(svc, kube.ServiceFinalizer)
			klb := &kuryrv1.KuryrLoadBalancer{
				ObjectMeta: metav1.ObjectMeta{Name: "web", Namespace: "ns1", Finalizers: []string{kube.KuryrLoadBalancerFinalizer}},
			}
			r := newReconciler(svc, klb)

			_, err := r.Reconcile(ctx, request("ns1", "web"))
			Expect(err).NotTo(HaveOccurred())

			got, err := getKLB(r, "web")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.DeletionTimestamp).NotTo(BeNil())

			var live corev1.Service
			Expect(r.Get(ctx, client.ObjectKeyFromObject(svc), &live)).To(Succeed())
			Expect(live.Finalizers).To(ContainElement(kube.ServiceFinalizer))
		})

		It("releases the service once the load balancer is gone", func() {
			svc := testService("web")
			deleting(svc, kube.ServiceFinalizer)
			r := newReconciler(svc)

			_, err := r.Reconcile(ctx, request("ns1", "web"))
			Expect(err).NotTo(HaveOccurred())

			var live corev1.Service
			err = r.Get(ctx, client.ObjectKeyFromObject(svc), &live)
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})

		It("deletes the mirror before dropping its finalizer", func() {
			svc := testService("web")
			svc.Annotations = map[string]string{kube.AnnotationXServiceName: "web-x"}
			deleting(svc, kube.ServiceXFinalizer)
			mirror := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "web-x", Namespace: "ns1"}}
			r := newReconciler(svc, mirror)

			_, err := r.Reconcile(ctx, request("ns1", "web"))
			Expect(err).NotTo(HaveOccurred())
			err = r.Get(ctx, client.ObjectKeyFromObject(mirror), &corev1.Service{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())

			_, err = r.Reconcile(ctx, request("ns1", "web"))
			Expect(err).NotTo(HaveOccurred())
			err = r.Get(ctx, client.ObjectKeyFromObject(svc), &corev1.Service{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})
	})
})
