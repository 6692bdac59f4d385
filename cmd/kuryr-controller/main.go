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

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	kuryrv1 "kuryr-operator/api/v1"
	"kuryr-operator/internal/config"
	"kuryr-operator/internal/controller"
	"kuryr-operator/internal/drivers"
	"kuryr-operator/internal/metrics"
	"kuryr-operator/internal/policy"
	"kuryr-operator/pkg/openstack"
)

var (
	scheme   = runtime.NewScheme()
	setupLog = ctrl.Log.WithName("setup")
)

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(kuryrv1.AddToScheme(scheme))
}

type options struct {
	metricsAddr    string
	probeAddr      string
	leaderElection bool
	configPath     string
	zap            zap.Options
}

func main() {
	if err := newCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	opts := &options{zap: zap.Options{
		Development: true,
		TimeEncoder: zapcore.ISO8601TimeEncoder,
	}}
	cmd := &cobra.Command{
		Use:           "kuryr-controller",
		Short:         "Reconciles pods, services and network policies into OpenStack Neutron resources",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctrl.SetLogger(zap.New(zap.UseFlagOptions(&opts.zap)))
			if err := run(opts); err != nil {
				setupLog.Error(err, "controller manager exited")
				return err
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.metricsAddr, "metrics-bind-address", ":8080", "The address the metric endpoint binds to.")
	flags.StringVar(&opts.probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	flags.BoolVar(&opts.leaderElection, "leader-elect", false,
		"Enable leader election for controller manager. "+
			"Enabling this will ensure there is only one active controller manager.")
	flags.StringVar(&opts.configPath, "config", os.Getenv("CONFIG_FILE"), "Path to the YAML configuration file.")

	zfs := flag.NewFlagSet("zap", flag.ContinueOnError)
	opts.zap.BindFlags(zfs)
	flags.AddGoFlagSet(zfs)
	return cmd
}

func run(opts *options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	keystone := openstack.NewKeystoneClient(cfg.OpenStack.AuthURL, cfg.OpenStack.DomainName, cfg.OpenStack.Timeout.Duration,
		openstack.WithKeystoneInsecureTLS(cfg.OpenStack.InsecureTLS))
	session := openstack.NewSession(keystone, cfg.OpenStack.Username, cfg.OpenStack.Password, cfg.OpenStack.ProjectID)
	neutron := openstack.NewNeutronClient(cfg.OpenStack.NeutronEndpoint, session, cfg.OpenStack.Timeout.Duration,
		openstack.WithNeutronInsecureTLS(cfg.OpenStack.InsecureTLS))

	mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
		Scheme:                 scheme,
		Metrics:                metricsserver.Options{BindAddress: opts.metricsAddr},
		HealthProbeBindAddress: opts.probeAddr,
		LeaderElection:         opts.leaderElection,
		LeaderElectionID:       "kuryr-controller.openstack.org",
	})
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}
	metrics.Register()

	c := mgr.GetClient()
	var engine *policy.Engine
	if usesPolicy(cfg) {
		engine = policy.NewEngine(c, neutron, cfg.PodSecurityGroups)
	}
	resolvers, err := drivers.New(cfg, c, neutron, engine)
	if err != nil {
		return fmt.Errorf("set up resolvers: %w", err)
	}

	quotaProject := cfg.DefaultProject
	if quotaProject == "" {
		quotaProject = cfg.OpenStack.ProjectID
	}
	pods := &controller.PodReconciler{
		Client:        c,
		Scheme:        mgr.GetScheme(),
		Neutron:       neutron,
		Resolvers:     resolvers,
		QuotaProject:  quotaProject,
		RetryInterval: cfg.RetryInterval.Duration,
	}
	// rule synthesis only runs with policies enabled; the policy
	// security groups driver may still use the engine without it
	if cfg.NetworkPolicyEnabled {
		pods.Policy = engine
	}

	reconcilers := []struct {
		name  string
		setup func(ctrl.Manager) error
	}{
		{"pod", pods.SetupWithManager},
		{"service", (&controller.ServiceReconciler{
			Client: c, Scheme: mgr.GetScheme(), Resolvers: resolvers, Config: cfg,
		}).SetupWithManager},
		{"endpoints", (&controller.EndpointsReconciler{
			Client: c, Scheme: mgr.GetScheme(), Config: cfg,
		}).SetupWithManager},
		{"kuryrsecuritygroup", (&controller.KuryrSecurityGroupReconciler{
			Client: c, Scheme: mgr.GetScheme(), Neutron: neutron,
			DefaultSecurityGroups: cfg.PodSecurityGroups, RetryInterval: cfg.RetryInterval.Duration,
		}).SetupWithManager},
		{"service-securitygroup", (&controller.ServiceSecurityGroupReconciler{
			Client: c, Scheme: mgr.GetScheme(), RetryInterval: cfg.RetryInterval.Duration,
		}).SetupWithManager},
	}
	for _, rec := range reconcilers {
		if err := rec.setup(mgr); err != nil {
			return fmt.Errorf("set up %s controller: %w", rec.name, err)
		}
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("set up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("vif", pods.Readyz); err != nil {
		return fmt.Errorf("set up ready check: %w", err)
	}

	setupLog.Info("starting manager", "networkPolicies", cfg.NetworkPolicyEnabled,
		"podSecurityGroupsDriver", cfg.PodSecurityGroupsDriver, "serviceSecurityGroupsDriver", cfg.ServiceSecurityGroupsDriver)
	return mgr.Start(ctrl.SetupSignalHandler())
}

// usesPolicy reports whether any component needs the network policy
// engine.
func usesPolicy(cfg config.Config) bool {
	if cfg.NetworkPolicyEnabled {
		return true
	}
	for _, d := range []string{cfg.PodSecurityGroupsDriver, cfg.ServiceSecurityGroupsDriver, cfg.FallbackSecurityGroupsDriver} {
		if d == config.DriverPolicy {
			return true
		}
	}
	return false
}
