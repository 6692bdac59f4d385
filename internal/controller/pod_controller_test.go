package controller

import (
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/kube"
	"kuryr-operator/pkg/openstack"
	"kuryr-operator/pkg/openstack/fake"
)

var _ = Describe("PodReconciler", func() {
	var (
		neutron *fake.Neutron
		writes  *writeCounter
	)

	BeforeEach(func() {
		neutron = newTestNeutron()
		writes = &writeCounter{}
	})

	newReconciler := func(objs ...client.Object) *PodReconciler {
		c := newTestClient(writes, objs...)
		cfg := testConfig()
		return &PodReconciler{
			Client:        c,
			Scheme:        c.Scheme(),
			Neutron:       neutron,
			Resolvers:     testResolvers(cfg, c, neutron),
			QuotaProject:  "proj-a",
			RetryInterval: cfg.RetryInterval.Duration,
		}
	}

	getKP := func(r *PodReconciler, name string) (*kuryrv1.KuryrPort, error) {
		var kp kuryrv1.KuryrPort
		err := r.Get(ctx, types.NamespacedName{Namespace: "ns1", Name: name}, &kp)
		return &kp, err
	}

	It("creates a KuryrPort for a scheduled pod and holds it with a finalizer", func() {
		pod := testPod("web-1")
		r := newReconciler(pod)

		res, err := r.Reconcile(ctx, request("ns1", "web-1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.RequeueAfter).To(BeZero())

		var got corev1.Pod
		Expect(r.Get(ctx, client.ObjectKeyFromObject(pod), &got)).To(Succeed())
		Expect(got.Finalizers).To(ContainElement(kube.PodFinalizer))

		kp, err := getKP(r, "web-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(kp.Finalizers).To(ConsistOf(kube.KuryrPortFinalizer))
		Expect(kp.Labels).To(HaveKeyWithValue(kube.KuryrPortNodeLabel, "node-1"))
		Expect(kp.Spec.PodUID).To(Equal("web-1-uid"))
		Expect(kp.Spec.PodNodeName).To(Equal("node-1"))
	})

	DescribeTable("leaves pods it does not handle untouched",
		func(mutate func(*corev1.Pod)) {
			pod := testPod("skip")
			mutate(pod)
			r := newReconciler(pod)

			_, err := r.Reconcile(ctx, request("ns1", "skip"))
			Expect(err).NotTo(HaveOccurred())
			Expect(writes.total()).To(BeZero())
			_, err = getKP(r, "skip")
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		},
		Entry("host network", func(p *corev1.Pod) { p.Spec.HostNetwork = true }),
		Entry("not scheduled", func(p *corev1.Pod) { p.Spec.NodeName = "" }),
	)

	It("does not create a KuryrPort twice", func() {
		pod := testPod("web-1")
		r := newReconciler(pod)

		_, err := r.Reconcile(ctx, request("ns1", "web-1"))
		Expect(err).NotTo(HaveOccurred())
		_, err = r.Reconcile(ctx, request("ns1", "web-1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writes.creates).To(Equal(1))
	})

	It("retries later while the port quota is exhausted", func() {
		neutron.Quota = &openstack.PortQuota{Limit: 10, Used: 10}
		r := newReconciler(testPod("web-1"))

		res, err := r.Reconcile(ctx, request("ns1", "web-1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.RequeueAfter).To(Equal(r.RetryInterval))
		_, err = getKP(r, "web-1")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())

		Expect(r.Readyz(httptest.NewRequest("GET", "/readyz", nil))).To(HaveOccurred())
	})

	It("retries later when the pod subnet does not exist yet", func() {
		delete(neutron.Subnets, "subnet-pods")
		r := newReconciler(testPod("web-1"))

		res, err := r.Reconcile(ctx, request("ns1", "web-1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(res.RequeueAfter).To(Equal(r.RetryInterval))
		_, err = getKP(r, "web-1")
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("converges bound ports to the resolved security groups", func() {
		pod := testPod("web-1")
		pod.Finalizers = []string{kube.PodFinalizer}
		r := newReconciler(pod, boundPort(pod, "10.0.0.5"))

		_, err := r.Reconcile(ctx, request("ns1", "web-1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(neutron.Ports["port-1"].SecurityGroups).To(ConsistOf("sg-a"))
		Expect(neutron.PortUpdates).To(Equal(1))

		_, err = r.Reconcile(ctx, request("ns1", "web-1"))
		Expect(err).NotTo(HaveOccurred())
		Expect(neutron.PortUpdates).To(Equal(1))
	})

	Context("finalize", func() {
		It("requests deletion of the KuryrPort of a deleted pod", func() {
			pod := testPod("web-1")
			deleting(pod, kube.PodFinalizer)
			kp := boundPort(pod, "10.0.0.5")
			kp.Finalizers = []string{kube.KuryrPortFinalizer}
			r := newReconciler(pod, kp)

			_, err := r.Reconcile(ctx, request("ns1", "web-1"))
			Expect(err).NotTo(HaveOccurred())

			got, err := getKP(r, "web-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.DeletionTimestamp).NotTo(BeNil())

			var live corev1.Pod
			Expect(r.Get(ctx, client.ObjectKeyFromObject(pod), &live)).To(Succeed())
			Expect(live.Finalizers).To(ContainElement(kube.PodFinalizer))
		})

		It("waits while containers are still running", func() {
			pod := testPod("web-1")
			deleting(pod, kube.PodFinalizer)
			pod.Status.ContainerStatuses = []corev1.ContainerStatus{{
				Name:  "app",
				State: corev1.ContainerState{Running: &corev1.ContainerStateRunning{}},
			}}
			r := newReconciler(pod, boundPort(pod, "10.0.0.5"))

			_, err := r.Reconcile(ctx, request("ns1", "web-1"))
			Expect(err).NotTo(HaveOccurred())
			Expect(writes.total()).To(BeZero())
		})

		It("releases the pod when there is no KuryrPort", func() {
			pod := testPod("web-1")
			deleting(pod, kube.PodFinalizer)
			r := newReconciler(pod)

			_, err := r.Reconcile(ctx, request("ns1", "web-1"))
			Expect(err).NotTo(HaveOccurred())

			var live corev1.Pod
			err = r.Get(ctx, client.ObjectKeyFromObject(pod), &live)
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})

		It("touches a KuryrPort that is already being deleted", func() {
			pod := testPod("web-1")
			deleting(pod, kube.PodFinalizer)
			kp := boundPort(pod, "10.0.0.5")
			deleting(kp, kube.KuryrPortFinalizer)
			r := newReconciler(pod, kp)

			_, err := r.Reconcile(ctx, request("ns1", "web-1"))
			Expect(err).NotTo(HaveOccurred())

			got, err := getKP(r, "web-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Annotations).To(HaveKey(kube.TriggerAnnotation))
		})

		It("ignores an event for an earlier pod with the same name", func() {
			current := testPod("web-1")
			current.UID = "new-uid"
			current.Finalizers = []string{kube.PodFinalizer}
			kp := boundPort(current, "10.0.0.5")
			kp.Finalizers = []string{kube.KuryrPortFinalizer}
			r := newReconciler(current, kp)

			stale := current.DeepCopy()
			stale.UID = "old-uid"
			Expect(r.finalize(ctx, stale)).To(Succeed())

			got, err := getKP(r, "web-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.DeletionTimestamp).To(BeNil())
			Expect(writes.total()).To(BeZero())
		})

		It("removes the KuryrPort of a completed pod", func() {
			pod := testPod("job-1")
			pod.Finalizers = []string{kube.PodFinalizer}
			pod.Status.Phase = corev1.PodSucceeded
			kp := boundPort(pod, "10.0.0.6")
			kp.Finalizers = []string{kube.KuryrPortFinalizer}
			r := newReconciler(pod, kp)

			_, err := r.Reconcile(ctx, request("ns1", "job-1"))
			Expect(err).NotTo(HaveOccurred())

			got, err := getKP(r, "job-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.DeletionTimestamp).NotTo(BeNil())
		})
	})

	It("reports readiness from the port quota", func() {
		r := newReconciler()
		Expect(r.IsReady(ctx)).To(BeTrue())

		neutron.Quota = &openstack.PortQuota{Limit: 5, Used: 3, Reserved: 2}
		Expect(r.IsReady(ctx)).To(BeFalse())

		neutron.Quota = &openstack.PortQuota{Limit: -1, Used: 1000}
		Expect(r.IsReady(ctx)).To(BeTrue())
	})
})
