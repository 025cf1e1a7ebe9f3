package sshutil

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Default timeouts for establishing a session.
const (
	DefaultConnectTimeout   = 5 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second
)

// Client wraps an SSH connection with additional metadata.
type Client struct {
	*ssh.Client
	Host    string // The original host/alias used to connect
	Address string // The resolved address (host:port)
}

// DialOptions tunes how a connection is established.
type DialOptions struct {
	// ConnectTimeout bounds the TCP connect.
	ConnectTimeout time.Duration
	// HandshakeTimeout bounds the SSH banner exchange and authentication.
	HandshakeTimeout time.Duration
	// StrictHostKeyChecking verifies host keys against KnownHostsPath.
	// When false, host key verification is skipped.
	StrictHostKeyChecking bool
	// KnownHostsPath defaults to ~/.ssh/known_hosts.
	KnownHostsPath string
}

// DefaultDialOptions returns the 5s/5s connect and handshake budget with strict host key checking.
func DefaultDialOptions() DialOptions {
	return DialOptions{
		ConnectTimeout:        DefaultConnectTimeout,
		HandshakeTimeout:      DefaultHandshakeTimeout,
		StrictHostKeyChecking: true,
	}
}

// Dial establishes an SSH connection using the given credentials.
// Connection settings not present in creds are resolved from ~/.ssh/config.
func Dial(ctx context.Context, creds Credentials, opts DialOptions) (*Client, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = DefaultConnectTimeout
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultHandshakeTimeout
	}

	settings := resolveSSHSettings(creds)

	config, err := buildSSHConfig(settings, opts)
	if err != nil {
		var hwErr *errors.Error
		if stderrors.As(err, &hwErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrConnection,
			fmt.Sprintf("Couldn't set up SSH for '%s'", creds.Host),
			"Check the key file and known_hosts are readable.")
	}

	address := settings.address()
	dialer := net.Dialer{Timeout: opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConnection,
			fmt.Sprintf("Can't reach '%s' at %s", creds.Host, address),
			suggestionForDialError(err))
	}

	// The deadline covers the banner exchange and authentication.
	_ = conn.SetDeadline(time.Now().Add(opts.HandshakeTimeout))
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, config)
	if err != nil {
		conn.Close()

		var hostKeyErr *HostKeyMismatchError
		if stderrors.As(err, &hostKeyErr) {
			return nil, errors.New(errors.ErrConnection,
				hostKeyErr.Error(),
				hostKeyErr.Suggestion())
		}

		return nil, errors.WrapWithCode(err, errors.ErrConnection,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", creds.Host),
			suggestionForHandshakeError(err, settings.encryptedKeys))
	}
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(sshConn, chans, reqs)
	return &Client{
		Client:  client,
		Host:    creds.Host,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// GetHost returns the original host/alias used to connect.
func (c *Client) GetHost() string {
	return c.Host
}

// GetAddress returns the resolved host:port address.
func (c *Client) GetAddress() string {
	return c.Address
}

// buildSSHConfig creates an SSH client config with authentication methods.
// It also populates settings.encryptedKeys with any keys that exist but are encrypted.
func buildSSHConfig(settings *sshSettings, opts DialOptions) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	tryKeyFile := func(keyPath string) {
		keyAuth, err := keyFileAuth(keyPath, settings.password)
		if err != nil {
			var encErr *EncryptedKeyError
			if stderrors.As(err, &encErr) {
				settings.encryptedKeys = append(settings.encryptedKeys, keyPath)
			}
			return
		}
		authMethods = append(authMethods, keyAuth)
	}

	if settings.identityFile != "" {
		tryKeyFile(settings.identityFile)
	}

	if settings.password != "" {
		password := settings.password
		authMethods = append(authMethods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	if agentAuth := sshAgentAuth(); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}

	defaultKeys := []string{
		filepath.Join(homeDir(), ".ssh", "id_ed25519"),
		filepath.Join(homeDir(), ".ssh", "id_rsa"),
		filepath.Join(homeDir(), ".ssh", "id_ecdsa"),
	}
	for _, keyPath := range defaultKeys {
		if keyPath == settings.identityFile {
			continue
		}
		tryKeyFile(keyPath)
	}

	if len(authMethods) == 0 {
		msg := "No SSH auth methods available"
		suggestion := "Set a password or key_file for this target, or load a key into ssh-agent."

		if len(settings.encryptedKeys) > 0 {
			msg = fmt.Sprintf("Found SSH key(s) but they're encrypted: %s", strings.Join(settings.encryptedKeys, ", "))
			suggestion = "Set the key passphrase as the target password, or add the key to ssh-agent."
		}

		return nil, errors.New(errors.ErrConfig, msg, suggestion)
	}

	var hostKeyCallback ssh.HostKeyCallback
	if opts.StrictHostKeyChecking {
		knownHostsPath := opts.KnownHostsPath
		if knownHostsPath == "" {
			knownHostsPath = filepath.Join(homeDir(), ".ssh", "known_hosts")
		}
		var err error
		hostKeyCallback, err = createHostKeyCallback(knownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	} else {
		hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // Host key checking disabled in config
	}

	return &ssh.ClientConfig{
		User:            settings.user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.ConnectTimeout,
	}, nil
}

// agentConn holds the reusable SSH agent connection.
var (
	agentConn     net.Conn
	agentClient   agent.ExtendedAgent
	agentConnOnce sync.Once
)

// sshAgentAuth returns an auth method using the SSH agent if available.
// Returns nil if the agent has no keys loaded.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentConnOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	})

	if agentClient == nil {
		return nil
	}

	// An empty agent causes auth failures when placed before other methods.
	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}

	return ssh.PublicKeysCallback(agentClient.Signers)
}

// CloseAgent closes the SSH agent connection if one is open.
func CloseAgent() {
	if agentConn != nil {
		agentConn.Close()
	}
}

// keyFileAuth returns an auth method using a private key file.
// An encrypted key is decrypted with passphrase when one is given;
// otherwise EncryptedKeyError is returned.
func keyFileAuth(keyPath, passphrase string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err == nil {
		return ssh.PublicKeys(signer), nil
	}

	var missing *ssh.PassphraseMissingError
	if stderrors.As(err, &missing) || isEncryptedPEM(key) {
		if passphrase == "" {
			return nil, &EncryptedKeyError{Path: keyPath}
		}
		signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(passphrase))
		if err != nil {
			return nil, &EncryptedKeyError{Path: keyPath}
		}
		return ssh.PublicKeys(signer), nil
	}
	return nil, err
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Try: ssh <host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error, encryptedKeys []string) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		if len(encryptedKeys) > 0 {
			return "Your key(s) are encrypted: " + strings.Join(encryptedKeys, ", ") +
				". Set the passphrase as the target password or add them to ssh-agent."
		}
		return "Auth failed. Check the user, password or key file for this target."
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline") {
		return "The server accepted the connection but never finished the handshake."
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}

// EncryptedKeyError is returned when an SSH key requires a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key at %s is encrypted (passphrase protected)", e.Path)
}

// HostKeyMismatchError provides helpful context when known_hosts verification fails.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns actionable steps to fix the host key mismatch.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	var wantTypes []string
	for _, k := range e.Want {
		wantTypes = append(wantTypes, k.Key.Type())
	}
	wantStr := "unknown"
	if len(wantTypes) > 0 {
		wantStr = strings.Join(wantTypes, ", ")
	}

	return fmt.Sprintf(
		"The server's host key doesn't match what's in known_hosts.\n"+
			"  Known types: %s\n"+
			"  Server sent: %s\n\n"+
			"  Remove the old entry with: ssh-keygen -R %s -f %s",
		wantStr, e.ReceivedType, host, e.KnownHosts)
}

// isEncryptedPEM checks if PEM data contains encryption markers.
func isEncryptedPEM(data []byte) bool {
	return bytes.Contains(data, []byte("ENCRYPTED")) ||
		bytes.Contains(data, []byte("Proc-Type: 4,ENCRYPTED"))
}

// createHostKeyCallback wraps the knownhosts callback to provide better error messages.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		dir := filepath.Dir(knownHostsPath)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		if err != nil {
			var keyErr *knownhosts.KeyError
			if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
				return &HostKeyMismatchError{
					Hostname:     hostname,
					ReceivedType: key.Type(),
					KnownHosts:   knownHostsPath,
					Want:         keyErr.Want,
				}
			}
		}
		return err
	}, nil
}
