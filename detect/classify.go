package detect

import "strings"

// maxScanBytes caps how much of a URL is examined. Anything beyond this
// cannot change the verdict enough to justify scanning megabytes of
// attacker-controlled input.
const maxScanBytes = 8192

// decodePasses bounds nested percent-decoding (e.g. %252e -> %2e -> .).
const decodePasses = 3

// Confidence bonuses, applied on top of a signature's base confidence
// and capped at 100.
const (
	indicatorBonus = 5 // per extra matched pattern within the winning signature
	maxExtraBonus  = 2 // at most two extra indicators counted
	encodedBonus   = 5 // payload was percent-encoded (obfuscation)
)

// Result is the verdict for a single URL: at most one attack type.
type Result struct {
	Type       AttackType
	Severity   Severity
	Confidence int
}

// Classify analyzes a URL and returns at most one detection verdict.
// Signatures are evaluated in ascending priority order and the first
// match wins, so a URL never yields two verdicts no matter how many
// signatures its text is compatible with. Empty or blank URLs yield no
// verdict.
func Classify(rawURL string) (Result, bool) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return Result{}, false
	}
	if len(raw) > maxScanBytes {
		raw = raw[:maxScanBytes]
	}
	decoded := decodeURL(raw)

	for i := range catalog {
		sig := &catalog[i]
		matched := sig.Match(raw, decoded)
		if matched == 0 {
			continue
		}
		return Result{
			Type:       sig.Type,
			Severity:   sig.Severity,
			Confidence: confidence(sig.BaseConfidence, matched, raw != decoded),
		}, true
	}
	return Result{}, false
}

func confidence(base, matched int, encoded bool) int {
	extra := matched - 1
	if extra > maxExtraBonus {
		extra = maxExtraBonus
	}
	score := base + extra*indicatorBonus
	if encoded {
		score += encodedBonus
	}
	if score > 100 {
		score = 100
	}
	return score
}

// decodeURL percent-decodes up to decodePasses times, stopping early
// once a pass is a no-op. Invalid escapes are left in place rather than
// failing the whole URL, and '+' is not treated as a space: the input
// is a raw request target, not form data.
func decodeURL(s string) string {
	for i := 0; i < decodePasses; i++ {
		next := percentDecode(s)
		if next == s {
			return s
		}
		s = next
	}
	return s
}

func percentDecode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if s[i] == '%' && i+2 < len(s) {
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if ok1 && ok2 {
				b.WriteByte(hi<<4 | lo)
				i += 3
				continue
			}
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
