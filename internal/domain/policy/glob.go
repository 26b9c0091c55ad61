package policy

import (
	"github.com/bmatcuk/doublestar/v4"

	"github.com/wassette-dev/wassette/internal/domain/wassetteerr"
)

// ValidateGlob rejects unsupported metacharacters in pattern, per §3's
// invariant (v): glob patterns contain no unsupported metacharacters.
// * matches any sequence not crossing a path separator; ** crosses
// separators — exactly doublestar's own semantics, so no translation
// layer sits between the policy's glob dialect and the matcher.
func ValidateGlob(pattern string) error {
	if !doublestar.ValidatePattern(pattern) {
		return wassetteerr.Parsef("policy.ValidateGlob", "InvalidGlob", "invalid glob pattern %q", pattern)
	}
	return nil
}

// MatchGlob reports whether candidate matches pattern under the same
// semantics ValidateGlob accepts.
func MatchGlob(pattern, candidate string) bool {
	ok, _ := doublestar.Match(pattern, candidate)
	return ok
}
