// Package redact scrubs secrets from JSON documents using JSONPath rules,
// so capability payloads can be logged without leaking grid credentials.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/PaesslerAG/jsonpath"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"
)

// tokenLength is the number of hex digits kept from a secret's hash.
const tokenLength = 16

// Redactor applies one rule set. Contextual replacements are stable for the
// lifetime of the Redactor: the same secret always maps to the same token.
// It is safe for concurrent use.
type Redactor struct {
	rules RuleSet

	mu           sync.Mutex
	replacements map[string]string
}

// New returns a Redactor for rs.
func New(rs RuleSet) *Redactor {
	return &Redactor{
		rules:        rs,
		replacements: make(map[string]string),
	}
}

// NewCapabilityRedactor returns a Redactor using the built in capability
// rules.
func NewCapabilityRedactor() (*Redactor, error) {
	rs, err := CapabilityRuleSet()
	if err != nil {
		return nil, err
	}
	return New(rs), nil
}

// Redact returns content with every rule applied. Rules whose path is
// absent from the document are skipped.
func (r *Redactor) Redact(content string) (string, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return "", fmt.Errorf("parsing document: %w", err)
	}

	paths := make([]string, 0, len(r.rules.Rules))
	for path := range r.rules.Rules {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	keys := make([]string, len(paths))
	replacements := make([]string, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			key, replacement, err := r.detect(doc, path, r.rules.Rules[path])
			keys[i], replacements[i] = key, replacement
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	redacted := content
	for i, key := range keys {
		if key == "" {
			continue
		}
		var err error
		redacted, err = sjson.Set(redacted, key, replacements[i])
		if err != nil {
			return "", fmt.Errorf("applying rule %s: %w", paths[i], err)
		}
	}
	return redacted, nil
}

// detect evaluates one rule. An empty key means the rule has nothing to
// replace.
func (r *Redactor) detect(doc interface{}, path string, rule Rule) (string, string, error) {
	value, err := jsonpath.Get(path, doc)
	if err != nil {
		// Unknown key: the document does not carry this secret.
		return "", "", nil
	}
	secret, ok := value.(string)
	if !ok || secret == "" || r.alreadyRedacted(secret) {
		return "", "", nil
	}

	var replacement string
	switch rule.Action {
	case ActionRemove:
		replacement = r.rules.RemovedSecretReplacement
	case ActionContextualReplacement:
		replacement = r.contextualReplacement(secret)
	default:
		return "", "", fmt.Errorf("unsupported action (%s) for rule (%s)", rule.Action, path)
	}
	if replacement == secret {
		return "", "", nil
	}

	key, err := sjsonKey(path)
	if err != nil {
		return "", "", err
	}
	return key, replacement, nil
}

// alreadyRedacted recognises values a previous pass produced, so that
// redacting twice is a no-op.
func (r *Redactor) alreadyRedacted(value string) bool {
	if value == r.rules.RemovedSecretReplacement {
		return true
	}
	prefix := r.rules.SecretPrefix + "_"
	if !strings.HasPrefix(value, prefix) || len(value) != len(prefix)+tokenLength {
		return false
	}
	_, err := hex.DecodeString(value[len(prefix):])
	return err == nil
}

func (r *Redactor) contextualReplacement(secret string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if replacement, ok := r.replacements[secret]; ok {
		return replacement
	}
	hash := sha256.Sum256([]byte(secret))
	replacement := r.rules.SecretPrefix + "_" + hex.EncodeToString(hash[:])[:tokenLength]
	r.replacements[secret] = replacement
	return replacement
}
