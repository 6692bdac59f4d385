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

// Package kerrors classifies reconciliation failures into the outcomes the
// controllers act on: retry later, abandon, or surface to the operator.
package kerrors

import (
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// NotReadyError means a dependency is not visible yet or a write lost an
// optimistic concurrency race. The reconcile is retried after a delay.
type NotReadyError struct {
	Resource string
	Err      error
}

func (e *NotReadyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resource not ready: %s: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("resource not ready: %s", e.Resource)
}

func (e *NotReadyError) Unwrap() error { return e.Err }

// NewNotReady builds a NotReadyError for resource.
func NewNotReady(resource string, err error) error {
	return &NotReadyError{Resource: resource, Err: err}
}

// NamespaceTerminatingError is returned when a create was rejected because
// the target namespace is being deleted. It is never retried.
type NamespaceTerminatingError struct {
	Namespace string
	Err       error
}

func (e *NamespaceTerminatingError) Error() string {
	return fmt.Sprintf("namespace %s is terminating", e.Namespace)
}

func (e *NamespaceTerminatingError) Unwrap() error { return e.Err }

// IntegrityError reports declared networking state that contradicts what
// exists, e.g. an address matching zero or several subnets.
type IntegrityError struct {
	Msg string
}

func (e *IntegrityError) Error() string { return "integrity error: " + e.Msg }

// NewIntegrity formats an IntegrityError.
func NewIntegrity(format string, args ...any) error {
	return &IntegrityError{Msg: fmt.Sprintf(format, args...)}
}

// ConfigError reports a missing or invalid setting discovered while
// resolving networking parameters.
type ConfigError struct {
	Option string
	Msg    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Option, e.Msg)
}

func IsNotReady(err error) bool {
	var target *NotReadyError
	return errors.As(err, &target)
}

func IsNamespaceTerminating(err error) bool {
	var target *NamespaceTerminatingError
	return errors.As(err, &target)
}

// IsTerminal reports errors that retrying cannot fix.
func IsTerminal(err error) bool {
	var integrity *IntegrityError
	var cfg *ConfigError
	return errors.As(err, &integrity) || errors.As(err, &cfg)
}

// FromAPI translates a Kubernetes API write error for obj. Conflicts become
// NotReady, namespace termination becomes NamespaceTerminatingError and
// everything else is returned unchanged.
func FromAPI(err error, namespace, obj string) error {
	switch {
	case err == nil:
		return nil
	case apierrors.HasStatusCause(err, corev1.NamespaceTerminatingCause):
		return &NamespaceTerminatingError{Namespace: namespace, Err: err}
	case apierrors.IsConflict(err):
		return NewNotReady(obj, err)
	default:
		return err
	}
}
