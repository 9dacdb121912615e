package redact

import (
	_ "embed"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"gopkg.in/yaml.v3"
)

const (
	ActionRemove                = "remove"
	ActionContextualReplacement = "contextual_replacement"
)

// SupportedActions lists the actions a rule may name.
var SupportedActions = []string{ActionRemove, ActionContextualReplacement}

//go:embed rules/capabilities.yaml
var capabilityRules []byte

// Rule says what to do with the value a JSONPath addresses.
type Rule struct {
	Description string `yaml:"description"`
	Action      string `yaml:"action"`
}

// RuleSet is a named collection of rules keyed by JSONPath.
type RuleSet struct {
	Description              string          `yaml:"description"`
	Format                   string          `yaml:"format"`
	RemovedSecretReplacement string          `yaml:"removedSecretReplacement"`
	SecretPrefix             string          `yaml:"secretPrefix"`
	Rules                    map[string]Rule `yaml:"rules"`
}

// LoadRuleSet parses and validates a YAML rule set.
func LoadRuleSet(raw []byte) (RuleSet, error) {
	var rs RuleSet
	if err := yaml.Unmarshal(raw, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parsing rule set: %w", err)
	}
	if rs.RemovedSecretReplacement == "" {
		rs.RemovedSecretReplacement = "<REMOVED>"
	}
	if rs.SecretPrefix == "" {
		rs.SecretPrefix = "REDACTED"
	}
	for path, rule := range rs.Rules {
		if !slices.Contains(SupportedActions, rule.Action) {
			return RuleSet{}, fmt.Errorf("unsupported action (%s) in rule %s, supported actions are %s",
				rule.Action, path, strings.Join(SupportedActions, ","))
		}
		if _, err := jsonpath.New(path); err != nil {
			return RuleSet{}, fmt.Errorf("invalid rule path %s: %w", path, err)
		}
		if _, err := pathSegments(path); err != nil {
			return RuleSet{}, err
		}
	}
	return rs, nil
}

// CapabilityRuleSet returns the built in rules for WebDriver capabilities.
func CapabilityRuleSet() (RuleSet, error) {
	return LoadRuleSet(capabilityRules)
}

var segmentPattern = regexp.MustCompile(`^(?:\.([A-Za-z_][A-Za-z0-9_\-]*)|\["([^"]*)"\]|\[(\d+)\])`)

// pathSegments splits a definite JSONPath (no wildcards, filters or
// recursive descent) into its keys. Bracketed keys must be double quoted;
// jsonpath cannot parse single quoted ones.
func pathSegments(path string) ([]string, error) {
	if !strings.HasPrefix(path, "$") {
		return nil, fmt.Errorf("rule path %s must start at the root ($)", path)
	}
	rest := path[1:]
	var segments []string
	for rest != "" {
		m := segmentPattern.FindStringSubmatch(rest)
		if m == nil {
			return nil, fmt.Errorf("rule path %s must address a single value, cannot parse %q", path, rest)
		}
		for _, group := range m[1:] {
			if group != "" {
				segments = append(segments, group)
				break
			}
		}
		rest = rest[len(m[0]):]
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("rule path %s addresses the whole document", path)
	}
	return segments, nil
}

var sjsonEscaper = strings.NewReplacer(`\`, `\\`, `.`, `\.`, `*`, `\*`, `?`, `\?`, `|`, `\|`, `#`, `\#`, `@`, `\@`)

// sjsonKey converts a definite JSONPath into an sjson path.
func sjsonKey(path string) (string, error) {
	segments, err := pathSegments(path)
	if err != nil {
		return "", err
	}
	escaped := make([]string, len(segments))
	for i, s := range segments {
		if _, err := strconv.Atoi(s); err == nil {
			escaped[i] = s
			continue
		}
		escaped[i] = sjsonEscaper.Replace(s)
	}
	return strings.Join(escaped, "."), nil
}
