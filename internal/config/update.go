package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/pkg/sshutil"
	"gopkg.in/yaml.v3"
)

// Marshal renders cfg as YAML. Secrets are masked unless showSecrets is set.
func Marshal(cfg *Config, showSecrets bool) ([]byte, error) {
	out := *cfg
	if !showSecrets {
		out.Targets = make(map[string]sshutil.Credentials, len(cfg.Targets))
		for id, t := range cfg.Targets {
			if t.Password != "" {
				t.Password = secretMask
			}
			out.Targets[id] = t
		}
		if out.Notify.Telegram.Token != "" {
			out.Notify.Telegram.Token = secretMask
		}
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return data, nil
}

const secretMask = "********"

// WriteDefault writes a commented starter config to path.
// An existing file is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("%s already exists", path),
				"Use --force to overwrite it.")
		}
	}

	doc, err := starterDocument()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't create "+dir, "Check directory permissions.")
		}
	}

	// 0600 since targets may hold passwords.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Couldn't write "+path, "Check file permissions.")
	}
	return nil
}

// starterDocument builds the default config as a yaml.Node tree so the
// written file carries explanatory comments.
func starterDocument() (*yaml.Node, error) {
	cfg := DefaultConfig()
	cfg.Targets = nil

	var root yaml.Node
	if err := root.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	comment(&root, "monitor", "Sampling and alerting policy. Durations use Go syntax: 30s, 5m, 1h.")
	comment(&root, "ssh", "Connection budgets. Set strict_host_key_checking: false only for throwaway hosts.")
	comment(&root, "notify", "Where alerts go. Leave telegram.token empty to disable Telegram.")

	var target yaml.Node
	if err := target.Encode(map[string]any{
		"host":     "web-1.example.com",
		"port":     22,
		"user":     "deploy",
		"key_file": "~/.ssh/id_ed25519",
	}); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	key := &yaml.Node{
		Kind:        yaml.ScalarNode,
		Tag:         "!!str",
		Value:       "targets",
		HeadComment: "Hosts to watch, keyed by user id. Secrets may reference env vars: ${WEB1_PASSWORD}.",
	}
	targets := &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: "123456789"},
			&target,
		},
	}
	root.Content = append(root.Content, key, targets)
	return &root, nil
}

// comment sets a head comment on a top-level key of a mapping node.
func comment(root *yaml.Node, key, text string) {
	if root.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			root.Content[i].HeadComment = text
			return
		}
	}
}
