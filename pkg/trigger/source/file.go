package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"mercator-hq/tripwire/pkg/trigger"
	"mercator-hq/tripwire/pkg/trigger/condition"
	"mercator-hq/tripwire/pkg/trigger/policies"
)

// FileSource loads policy definitions from YAML files on disk.
type FileSource struct {
	path   string
	logger *slog.Logger
}

// NewFileSource creates a file-based policy source. The path can be a
// single file or a directory; for a directory, all .yaml and .yml files
// are loaded.
func NewFileSource(path string, logger *slog.Logger) *FileSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSource{
		path:   path,
		logger: logger.With("component", "policy_source"),
	}
}

// LoadPolicies loads all policy definitions from the configured path.
func (s *FileSource) LoadPolicies() ([]trigger.Policy, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path %q: %w", s.path, err)
	}

	var loaded []trigger.Policy

	if info.IsDir() {
		loaded, err = s.loadDirectory()
	} else {
		loaded, err = s.loadFile(s.path)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("loaded policies from source",
		"path", s.path,
		"policy_count", len(loaded),
	)

	return loaded, nil
}

func (s *FileSource) loadDirectory() ([]trigger.Policy, error) {
	var loaded []trigger.Policy

	err := filepath.Walk(s.path, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		fromFile, err := s.loadFile(path)
		if err != nil {
			return err
		}
		loaded = append(loaded, fromFile...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %q: %w", s.path, err)
	}

	return loaded, nil
}

func (s *FileSource) loadFile(path string) ([]trigger.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", path, err)
	}

	parsed, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy file %q: %w", path, err)
	}

	s.logger.Debug("loaded policy file",
		"path", path,
		"policy_count", len(parsed),
	)

	return parsed, nil
}

// policyFile is the top-level YAML document.
type policyFile struct {
	Policies []policySpec `yaml:"policies"`
}

// policySpec is one declarative policy definition.
type policySpec struct {
	Name        string           `yaml:"name"`
	Entity      string           `yaml:"entity"`
	Kind        string           `yaml:"kind"`
	Ops         []string         `yaml:"ops"`
	Condition   *condition.Node  `yaml:"condition"`
	Field       string           `yaml:"field"`
	Fields      []string         `yaml:"fields"`
	Value       any              `yaml:"value"`
	Transitions []transitionSpec `yaml:"transitions"`
	Label       string           `yaml:"label"`
	DiffOnly    bool             `yaml:"diff_only"`
}

type transitionSpec struct {
	From any `yaml:"from"`
	To   any `yaml:"to"`
}

// ParseBytes parses a YAML policy document into policies. A versioned
// definition expands into its protect and increment pair.
func ParseBytes(data []byte) ([]trigger.Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	var result []trigger.Policy
	for i, spec := range file.Policies {
		built, err := spec.build()
		if err != nil {
			return nil, fmt.Errorf("policy %d (%q): %w", i, spec.Name, err)
		}
		result = append(result, built...)
	}
	return result, nil
}

func (s policySpec) build() ([]trigger.Policy, error) {
	if s.Entity == "" {
		return nil, fmt.Errorf("entity is required")
	}

	ops, err := parseOps(s.Ops)
	if err != nil {
		return nil, err
	}

	var cond trigger.Condition
	if s.Condition != nil {
		if err := s.Condition.Validate(); err != nil {
			return nil, fmt.Errorf("invalid condition: %w", err)
		}
		cond = s.Condition
	}

	switch s.Kind {
	case "protect":
		if len(ops) == 0 {
			return nil, fmt.Errorf("protect requires ops")
		}
		return []trigger.Policy{policies.Protect(s.Entity, s.Name, ops, cond)}, nil

	case "append_only":
		return []trigger.Policy{policies.AppendOnly(s.Entity, s.Name)}, nil

	case "read_only":
		if len(s.Fields) == 0 {
			return nil, fmt.Errorf("read_only requires fields")
		}
		return []trigger.Policy{policies.ReadOnly(s.Entity, s.Name, s.Fields...)}, nil

	case "soft_delete":
		if s.Field == "" {
			return nil, fmt.Errorf("soft_delete requires field")
		}
		value := s.Value
		if value == nil {
			value = false
		}
		return []trigger.Policy{policies.SoftDelete(s.Entity, s.Name, s.Field, value)}, nil

	case "versioned":
		if s.Field == "" {
			return nil, fmt.Errorf("versioned requires field")
		}
		return policies.Versioned(s.Entity, s.Field), nil

	case "fsm":
		if s.Field == "" {
			return nil, fmt.Errorf("fsm requires field")
		}
		if len(s.Transitions) == 0 {
			return nil, fmt.Errorf("fsm requires transitions")
		}
		transitions := make([]trigger.Transition, len(s.Transitions))
		for i, t := range s.Transitions {
			transitions[i] = trigger.Transition{From: t.From, To: t.To}
		}
		return []trigger.Policy{policies.FSM(s.Entity, s.Name, s.Field, transitions...)}, nil

	case "audit":
		if s.Label == "" {
			return nil, fmt.Errorf("audit requires label")
		}
		if len(ops) == 0 {
			ops = trigger.Ops(trigger.OpInsert, trigger.OpUpdate, trigger.OpDelete)
		}
		return []trigger.Policy{{
			Name:      s.Name,
			Entity:    s.Entity,
			Ops:       ops,
			Timing:    trigger.After,
			Kind:      trigger.KindAudit,
			Condition: cond,
			Label:     s.Label,
			DiffOnly:  s.DiffOnly,
		}}, nil

	default:
		return nil, fmt.Errorf("unknown policy kind %q", s.Kind)
	}
}

func parseOps(names []string) (trigger.OpSet, error) {
	var ops trigger.OpSet
	for _, name := range names {
		switch name {
		case "insert":
			ops = append(ops, trigger.OpInsert)
		case "update":
			ops = append(ops, trigger.OpUpdate)
		case "delete":
			ops = append(ops, trigger.OpDelete)
		default:
			return nil, fmt.Errorf("unknown op %q", name)
		}
	}
	return ops, nil
}
