// Package cluster talks to the external command-line collaborators the
// automation depends on: rosa for account identity, oc for hub cluster
// access, kubectl for declarative resource management. Every operation
// is a bounded subprocess invocation; nothing here links a cloud SDK.
package cluster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Client invokes the automation CLIs. The zero value is not usable;
// construct with NewClient.
type Client struct {
	runner CommandRunner
	logger *zap.Logger

	// Credential secret replicated into namespaces provisioned by
	// declarative applies.
	secretName      string
	secretNamespace string

	whoAmITimeout  time.Duration
	loginTimeout   time.Duration
	kubectlTimeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRunner substitutes the subprocess runner.
func WithRunner(r CommandRunner) ClientOption {
	return func(c *Client) { c.runner = r }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithCredentialSecret overrides the secret replicated on namespace
// provisioning.
func WithCredentialSecret(name, namespace string) ClientOption {
	return func(c *Client) {
		c.secretName = name
		c.secretNamespace = namespace
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		runner:          ExecRunner{},
		logger:          zap.NewNop(),
		secretName:      "rosa-creds-secret",
		secretNamespace: "ns-rosa-hcp",
		whoAmITimeout:   5 * time.Second,
		loginTimeout:    30 * time.Second,
		kubectlTimeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AuthStatus is the parsed result of an identity probe.
type AuthStatus struct {
	Authenticated bool              `json:"authenticated"`
	UserInfo      map[string]string `json:"user_info"`
	RawOutput     string            `json:"raw_output"`
}

// WhoAmI probes CLI authentication state. The output is a sequence of
// "Key: value" lines; keys are normalized to snake_case.
func (c *Client) WhoAmI(ctx context.Context) (AuthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.whoAmITimeout)
	defer cancel()

	stdout, stderr, err := c.runner.Run(ctx, nil, "rosa", "whoami")
	if err != nil {
		return AuthStatus{}, classify(ctx, "rosa", "whoami", stderr, err)
	}

	info := make(map[string]string)
	for _, line := range strings.Split(string(stdout), "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), " ", "_"))
		info[key] = strings.TrimSpace(value)
	}

	return AuthStatus{
		Authenticated: true,
		UserInfo:      info,
		RawOutput:     string(stdout),
	}, nil
}

// HubCredentials locate and authenticate against the hub cluster.
type HubCredentials struct {
	APIURL   string
	Username string
	Password string
}

// HubStatus describes a verified hub connection.
type HubStatus struct {
	Connected   bool              `json:"connected"`
	APIURL      string            `json:"api_url"`
	Username    string            `json:"username"`
	ClusterInfo map[string]string `json:"cluster_info"`
}

// HubLogin verifies hub connectivity with an interactive-style login,
// then gathers best-effort cluster details. Detail collection failures
// do not fail the login.
func (c *Client) HubLogin(ctx context.Context, creds HubCredentials) (HubStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, c.loginTimeout)
	defer cancel()

	_, stderr, err := c.runner.Run(ctx, nil, "oc", "login", creds.APIURL,
		"--username", creds.Username,
		"--password", creds.Password,
		"--insecure-skip-tls-verify=true")
	if err != nil {
		return HubStatus{}, classify(ctx, "oc", "login", stderr, err)
	}

	info := make(map[string]string)
	if out, _, err := c.runner.Run(ctx, nil, "oc", "version", "--short"); err == nil {
		info["version"] = strings.TrimSpace(string(out))
	}
	if out, _, err := c.runner.Run(ctx, nil, "oc", "whoami"); err == nil {
		info["current_user"] = strings.TrimSpace(string(out))
	}

	return HubStatus{
		Connected:   true,
		APIURL:      creds.APIURL,
		Username:    creds.Username,
		ClusterInfo: info,
	}, nil
}

// ApplyManifest applies one serialized document and returns the tool's
// confirmation output.
func (c *Client) ApplyManifest(ctx context.Context, manifest []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.kubectlTimeout)
	defer cancel()

	stdout, stderr, err := c.runner.Run(ctx, manifest, "kubectl", "apply", "-f", "-")
	if err != nil {
		return "", classify(ctx, "kubectl", "apply", stderr, err)
	}
	return strings.TrimSpace(string(stdout)), nil
}

// CopyCredentialSecret replicates the configured credential secret into
// namespace. The source manifest is fetched, scrubbed of server-managed
// fields, re-targeted and re-applied.
func (c *Client) CopyCredentialSecret(ctx context.Context, namespace string) error {
	ctx, cancel := context.WithTimeout(ctx, c.kubectlTimeout)
	defer cancel()

	stdout, stderr, err := c.runner.Run(ctx, nil, "kubectl", "get", "secret", c.secretName,
		"-n", c.secretNamespace, "-o", "yaml")
	if err != nil {
		return classify(ctx, "kubectl", "get secret", stderr, err)
	}

	retargeted, err := retargetSecret(stdout, namespace)
	if err != nil {
		return fmt.Errorf("rewrite secret manifest: %w", err)
	}

	if _, stderr, err = c.runner.Run(ctx, retargeted, "kubectl", "apply", "-f", "-"); err != nil {
		return classify(ctx, "kubectl", "apply secret", stderr, err)
	}

	c.logger.Info("credential secret copied",
		zap.String("secret", c.secretName),
		zap.String("namespace", namespace))
	return nil
}

// retargetSecret rewrites a fetched secret manifest for re-creation in
// another namespace, dropping the fields the API server owns.
func retargetSecret(manifest []byte, namespace string) ([]byte, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(manifest, &doc); err != nil {
		return nil, err
	}

	meta, ok := doc["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret manifest has no metadata")
	}
	meta["namespace"] = namespace
	for _, field := range []string{"resourceVersion", "uid", "creationTimestamp", "managedFields", "ownerReferences"} {
		delete(meta, field)
	}

	return yaml.Marshal(doc)
}
