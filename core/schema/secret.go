package schema

import (
	"regexp"
	"strings"
)

// SecretPlaceholder stands in for the webhook secret in stored definitions and snapshots.
const SecretPlaceholder = "__WEBHOOK_SECRET__"

// webhookSecretRe matches a webhook secret comparison inside a rule. Group 2 is the secret.
var webhookSecretRe = regexp.MustCompile(`(@request\.(?:headers\.x_webhook_secret|query\.webhook_secret)\s*=\s*")([^"]+)(")`)

// RedactRule replaces webhook secrets compared in rule with SecretPlaceholder.
func RedactRule(rule string) string {
	return webhookSecretRe.ReplaceAllString(rule, "${1}"+SecretPlaceholder+"${3}")
}

// Redacted returns a copy of c whose rules carry no webhook secret.
func (c Collection) Redacted() Collection {
	return c.mapRules(RedactRule)
}

// HasPlaceholder reports whether any rule of c still refers to SecretPlaceholder.
func (c Collection) HasPlaceholder() bool {
	for _, kind := range RuleKinds {
		if v, ok := c.Rules.Get(kind).Get(); ok && strings.Contains(v, SecretPlaceholder) {
			return true
		}
	}
	return false
}

// WithSecret returns a copy of c with SecretPlaceholder replaced by secret in every rule.
func (c Collection) WithSecret(secret string) Collection {
	return c.mapRules(func(rule string) string {
		return strings.ReplaceAll(rule, SecretPlaceholder, secret)
	})
}

func (c Collection) mapRules(fn func(string) string) Collection {
	out := c
	for _, kind := range RuleKinds {
		if v, ok := c.Rules.Get(kind).Get(); ok {
			out.Rules.Set(kind, Of(fn(v)))
		}
	}
	return out
}

// HasPlaceholder reports whether any collection of d refers to SecretPlaceholder.
func (d Definition) HasPlaceholder() bool {
	for _, c := range d {
		if c.HasPlaceholder() {
			return true
		}
	}
	return false
}

// WithSecret returns a copy of d with SecretPlaceholder replaced by secret.
func (d Definition) WithSecret(secret string) Definition {
	out := make(Definition, len(d))
	for i, c := range d {
		out[i] = c.WithSecret(secret)
	}
	return out
}
