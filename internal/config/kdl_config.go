package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/Greenplumwine/mbnav/internal/types"
)

// ConfigFileName is looked up in the project root and the home directory.
const ConfigFileName = ".mbnav.kdl"

// LoadKDL attempts to load configuration from a .mbnav.kdl file in dir.
// Returns (nil, nil) when no config file exists.
func LoadKDL(dir string) (*Config, error) {
	kdlPath := filepath.Join(dir, ConfigFileName)

	if _, err := os.Stat(kdlPath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, err
	}

	// Resolve the project root relative to the directory holding the file.
	if cfg.Project.Root != "" && !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(dir, cfg.Project.Root))
	} else if cfg.Project.Root == "" {
		if absRoot, err := filepath.Abs(dir); err == nil {
			cfg.Project.Root = absRoot
		} else {
			cfg.Project.Root = dir
		}
	}

	return cfg, nil
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "scan":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Scan.MaxFileSize = int64(v)
					}
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Scan.MaxFileSize = sz
						}
					}
				case "quick_check_limit":
					if v, ok := firstIntArg(cn); ok {
						cfg.Scan.QuickCheckLimit = v
					}
				case "include_test_dirs":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Scan.IncludeTestDirs = b
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				}
			}
		case "navigation":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "timeout_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Navigation.TimeoutMs = v
					}
				case "throttle_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Navigation.ThrottleMs = v
					}
				case "window_policy":
					if s, ok := firstStringArg(cn); ok {
						cfg.Navigation.WindowPolicy = types.WindowPolicy(s)
					}
				}
			}
		case "resolution":
			parseResolutionNode(cfg, n)
		case "exclude":
			// An exclude block replaces the defaults; global and project
			// lists are recombined during merge.
			cfg.Exclude = collectStringArgs(n)
		}
	}

	return cfg, nil
}

func parseResolutionNode(cfg *Config, n *document.Node) {
	for _, cn := range n.Children {
		switch nodeName(cn) {
		case "custom_statement_dirs":
			cfg.Resolution.CustomStatementDirs = collectStringArgs(cn)
		case "ignored_suffixes":
			cfg.Resolution.IgnoredSuffixes = collectStringArgs(cn)
		case "priority":
			for _, pn := range cn.Children {
				switch nodeName(pn) {
				case "enabled":
					if b, ok := firstBoolArg(pn); ok {
						cfg.Resolution.PathPriority.Enabled = b
					}
				case "priority_dirs":
					cfg.Resolution.PathPriority.PriorityDirectories = collectStringArgs(pn)
				case "exclude_dirs":
					cfg.Resolution.PathPriority.ExcludeDirectories = collectStringArgs(pn)
				}
			}
		case "rules":
			for _, rn := range cn.Children {
				if nodeName(rn) != "rule" {
					continue
				}
				rule := types.NameMatchingRule{Enabled: true}
				for _, fn := range rn.Children {
					switch nodeName(fn) {
					case "name":
						if s, ok := firstStringArg(fn); ok {
							rule.Name = s
						}
					case "interface_pattern":
						if s, ok := firstStringArg(fn); ok {
							rule.InterfacePattern = s
						}
					case "statement_pattern":
						if s, ok := firstStringArg(fn); ok {
							rule.StatementPattern = s
						}
					case "enabled":
						if b, ok := firstBoolArg(fn); ok {
							rule.Enabled = b
						}
					case "description":
						if s, ok := firstStringArg(fn); ok {
							rule.Description = s
						}
					}
				}
				cfg.Resolution.Rules = append(cfg.Resolution.Rules, rule)
			}
		}
	}
}

// Helper functions leveraging the kdl-go document model.
func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	// Block format: strings are child nodes whose name is the value.
	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB".
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return num * multiplier, nil
}
