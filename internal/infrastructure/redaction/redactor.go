// Package redaction scrubs granted secret values out of a component's
// stdout/stderr before it reaches the host's own logs.
package redaction

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// Redactor scrubs secret-shaped substrings out of guest component
// output. All fields are read-only after construction, making it safe
// for concurrent use by every instance of a component sharing one
// stdout/stderr writer.
type Redactor struct {
	patterns []*regexp.Regexp
	hashMode bool
	salt     string

	// gitleaksDetector runs gitleaks' full pattern set (222+ rules) when
	// enabled; nil falls back to defaultPatterns plus Config.Patterns only.
	gitleaksDetector *detect.Detector
}

// Config holds the configuration for the Redactor.
type Config struct {
	// Patterns are additional regexes to redact, e.g. a component's own
	// granted secret-env-var values turned into match patterns.
	Patterns []string
	// HashMode replaces a match with a salted HMAC instead of [REDACTED],
	// so repeated occurrences of the same secret remain correlatable.
	HashMode bool
	// Salt keys the HMAC in HashMode. Empty means a deterministic but
	// unsalted hash.
	Salt string
	// DisableGitleaks skips loading the gitleaks detector, relying on
	// defaultPatterns and Patterns only. Default: false.
	DisableGitleaks bool
}

// New creates a new Redactor with the given configuration.
func New(cfg Config) (*Redactor, error) {
	r := &Redactor{
		hashMode: cfg.HashMode,
		salt:     cfg.Salt,
		patterns: make([]*regexp.Regexp, 0, len(cfg.Patterns)+len(defaultPatterns)),
	}

	if !cfg.DisableGitleaks {
		detector, err := newGitleaksDetector()
		if err == nil {
			r.gitleaksDetector = detector
		}
		// else: fall back to regex patterns only; gitleaks' bundled TOML
		// config failing to parse is not a reason to refuse to start.
	}

	for _, p := range defaultPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, wassetteerr.Internalf("redaction.New", err, "compiling default pattern %q", p)
		}
		r.patterns = append(r.patterns, re)
	}

	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, wassetteerr.Validationf("redaction.New", "InvalidPattern", "compiling pattern %q: %v", p, err)
		}
		r.patterns = append(r.patterns, re)
	}

	return r, nil
}

// newGitleaksDetector loads gitleaks' bundled default ruleset (222+
// patterns for cloud provider keys, tokens, and private key headers).
func newGitleaksDetector() (*detect.Detector, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(strings.NewReader(config.DefaultConfig)); err != nil {
		return nil, fmt.Errorf("reading gitleaks default config: %w", err)
	}

	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("unmarshaling gitleaks config: %w", err)
	}

	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("translating gitleaks config: %w", err)
	}

	return detect.NewDetector(cfg), nil
}

// ScrubString replaces secret-shaped substrings of input. It runs the
// gitleaks detector first (when enabled), then the regex pattern list,
// so a value caught by either is redacted exactly once.
func (r *Redactor) ScrubString(input string) string {
	if input == "" {
		return ""
	}

	result := input

	if r.gitleaksDetector != nil {
		fragment := detect.Fragment{Raw: result}
		for _, finding := range r.gitleaksDetector.Detect(fragment) {
			replacement := "[REDACTED]"
			if r.hashMode {
				replacement = r.hash(finding.Secret)
			}
			result = strings.ReplaceAll(result, finding.Secret, replacement)
		}
	}

	for _, re := range r.patterns {
		result = re.ReplaceAllStringFunc(result, func(match string) string {
			if r.hashMode {
				return r.hash(match)
			}
			return "[REDACTED]"
		})
	}

	return result
}

// hash returns a truncated HMAC-SHA256 of secret, formatted as
// [hmac:xxxxxxxxxxxxxxxx]. Truncating to 8 bytes keeps two occurrences
// of the same secret correlatable without round-tripping the original.
func (r *Redactor) hash(secret string) string {
	mac := hmac.New(sha256.New, []byte(r.salt))
	mac.Write([]byte(secret))
	sum := mac.Sum(nil)
	return fmt.Sprintf("[hmac:%s]", hex.EncodeToString(sum)[:16])
}

// defaultPatterns are the fallback regexes applied when gitleaks is
// disabled or a secret doesn't match any of its rules.
var defaultPatterns = []string{
	// AWS Access Key ID
	`\b((?:AKIA|ABIA|ACCA|ASIA)[0-9A-Z]{16})\b`,
	// Generic private key header
	`-----BEGIN [A-Z ]+ PRIVATE KEY-----`,
	// GitHub token
	`gh[pousr]_[A-Za-z0-9_]{36,255}`,
	// Slack token
	`xox[baprs]-([0-9a-zA-Z]{10,48})?`,
}
