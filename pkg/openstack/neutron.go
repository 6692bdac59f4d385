package openstack

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// NeutronClient talks to the Neutron v2.0 REST API. Tokens come from a
// TokenSource and are refreshed once when Neutron answers 401.
type NeutronClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

type NeutronOption func(*NeutronClient)

func WithNeutronInsecureTLS(insecure bool) NeutronOption {
	return func(c *NeutronClient) {
		tr := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}, //nolint:gosec
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2: true,
		}
		c.httpClient.Transport = tr
	}
}

// WithNeutronHTTPClient replaces the HTTP client, mostly for tests.
func WithNeutronHTTPClient(hc *http.Client) NeutronOption {
	return func(c *NeutronClient) {
		c.httpClient = hc
	}
}

func NewNeutronClient(baseURL string, tokens TokenSource, timeout time.Duration, opts ...NeutronOption) *NeutronClient {
	c := &NeutronClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				ForceAttemptHTTP2: true,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Interface = (*NeutronClient)(nil)

type portResponse struct {
	Port Port `json:"port"`
}

type subnetResponse struct {
	Subnet Subnet `json:"subnet"`
}

type subnetsResponse struct {
	Subnets []Subnet `json:"subnets"`
}

type networkResponse struct {
	Network Network `json:"network"`
}

type securityGroupResponse struct {
	SecurityGroup SecurityGroup `json:"security_group"`
}

type securityGroupsResponse struct {
	SecurityGroups []SecurityGroup `json:"security_groups"`
}

type securityGroupRuleBody struct {
	Rule SecurityGroupRule `json:"security_group_rule"`
}

type quotaDetailsResponse struct {
	Quota struct {
		Port PortQuota `json:"port"`
	} `json:"quota"`
}

// GetNetwork fetches a network by ID. A missing network yields (nil, nil).
func (c *NeutronClient) GetNetwork(ctx context.Context, networkID string) (*Network, error) {
	var out networkResponse
	found, err := c.get(ctx, "/v2.0/networks/"+url.PathEscape(networkID), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out.Network, nil
}

// GetSubnet fetches a subnet by ID. A missing subnet yields (nil, nil).
func (c *NeutronClient) GetSubnet(ctx context.Context, subnetID string) (*Subnet, error) {
	var out subnetResponse
	found, err := c.get(ctx, "/v2.0/subnets/"+url.PathEscape(subnetID), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out.Subnet, nil
}

// ListSubnets lists subnets matching every non-empty field of filter.
func (c *NeutronClient) ListSubnets(ctx context.Context, filter SubnetFilter) ([]Subnet, error) {
	q := url.Values{}
	if filter.ProjectID != "" {
		q.Set("project_id", filter.ProjectID)
	}
	if filter.CIDR != "" {
		q.Set("cidr", filter.CIDR)
	}
	if name := strings.TrimSpace(filter.Name); name != "" {
		q.Set("name", name)
	}
	var out subnetsResponse
	if _, err := c.get(ctx, withQuery("/v2.0/subnets", q), &out); err != nil {
		return nil, err
	}
	return out.Subnets, nil
}

// GetPort fetches a port by ID. A missing port yields (nil, nil).
func (c *NeutronClient) GetPort(ctx context.Context, portID string) (*Port, error) {
	var out portResponse
	found, err := c.get(ctx, "/v2.0/ports/"+url.PathEscape(portID), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out.Port, nil
}

// UpdatePortSecurityGroups replaces the security groups of a port.
func (c *NeutronClient) UpdatePortSecurityGroups(ctx context.Context, portID string, securityGroupIDs []string) error {
	if securityGroupIDs == nil {
		securityGroupIDs = []string{}
	}
	body := map[string]any{"port": map[string]any{"security_groups": securityGroupIDs}}
	return c.do(ctx, http.MethodPut, "/v2.0/ports/"+url.PathEscape(portID), body, nil, http.StatusOK)
}

// GetSecurityGroup fetches a security group by ID. Missing yields (nil, nil).
func (c *NeutronClient) GetSecurityGroup(ctx context.Context, id string) (*SecurityGroup, error) {
	var out securityGroupResponse
	found, err := c.get(ctx, "/v2.0/security-groups/"+url.PathEscape(id), &out)
	if err != nil || !found {
		return nil, err
	}
	return &out.SecurityGroup, nil
}

// ListSecurityGroups lists security groups by project and optional name.
func (c *NeutronClient) ListSecurityGroups(ctx context.Context, projectID, name string) ([]SecurityGroup, error) {
	q := url.Values{}
	if projectID != "" {
		q.Set("project_id", projectID)
	}
	if name != "" {
		q.Set("name", name)
	}
	var out securityGroupsResponse
	if _, err := c.get(ctx, withQuery("/v2.0/security-groups", q), &out); err != nil {
		return nil, err
	}
	return out.SecurityGroups, nil
}

// CreateSecurityGroupRule creates rule and returns it with its Neutron ID.
func (c *NeutronClient) CreateSecurityGroupRule(ctx context.Context, rule SecurityGroupRule) (*SecurityGroupRule, error) {
	rule.ID = ""
	var out securityGroupRuleBody
	if err := c.do(ctx, http.MethodPost, "/v2.0/security-group-rules", securityGroupRuleBody{Rule: rule}, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out.Rule, nil
}

// DeleteSecurityGroupRule deletes a rule. Deleting a missing rule succeeds.
func (c *NeutronClient) DeleteSecurityGroupRule(ctx context.Context, ruleID string) error {
	err := c.do(ctx, http.MethodDelete, "/v2.0/security-group-rules/"+url.PathEscape(ruleID), nil, nil, http.StatusNoContent)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// GetPortQuota returns the port quota usage of a project.
func (c *NeutronClient) GetPortQuota(ctx context.Context, projectID string) (*PortQuota, error) {
	var out quotaDetailsResponse
	if err := c.do(ctx, http.MethodGet, "/v2.0/quotas/"+url.PathEscape(projectID)+"/details.json", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out.Quota.Port, nil
}

// get issues a GET and reports found=false on 404.
func (c *NeutronClient) get(ctx context.Context, path string, out any) (bool, error) {
	err := c.do(ctx, http.MethodGet, path, nil, out, http.StatusOK)
	if IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (c *NeutronClient) do(ctx context.Context, method, path string, in, out any, want int) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return err
		}
	}
	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
		resp.Body.Close()
		c.tokens.Invalidate()
		if resp, err = c.send(ctx, method, path, payload); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Service: "neutron", Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *NeutronClient) send(ctx context.Context, method, path string, payload []byte) (*http.Response, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("neutron: %w", err)
		}
		req.Header.Set("X-Auth-Token", token)
	}
	return c.httpClient.Do(req)
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

// StatusError is a non-success HTTP answer from an OpenStack service.
type StatusError struct {
	Service string
	Method  string
	Path    string
	Code    int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s %s: unexpected status %d: %s", e.Service, e.Method, e.Path, e.Code, e.Body)
}

func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsConflict reports a 409, e.g. a duplicate rule or a revision mismatch.
func IsConflict(err error) bool {
	return hasStatus(err, http.StatusConflict)
}

func hasStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

var existingRuleID = regexp.MustCompile(`Rule id is ([0-9A-Za-z-]+)`)

// ExistingRuleID extracts the ID of the already existing rule from a
// duplicate rule 409. It returns "" for any other error.
func ExistingRuleID(err error) string {
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusConflict {
		return ""
	}
	if m := existingRuleID.FindStringSubmatch(se.Body); m != nil {
		return m[1]
	}
	return ""
}
