package detect

import "regexp"

// Signature is one attack-pattern rule: a set of compiled patterns plus
// the verdict metadata the classifier copies into a detection. The
// catalog is immutable package state built once at init; Match performs
// no allocation beyond the regexp engine's own.
//
// Patterns are Go regexp (RE2). RE2 guarantees linear-time matching, so
// adversarially long URLs cannot trigger catastrophic backtracking.
type Signature struct {
	Type           AttackType
	Severity       Severity
	BaseConfidence int
	Priority       int

	patterns []*regexp.Regexp
}

// Match reports how many of the signature's patterns match either the
// raw or the decoded form of a URL. Zero means no match.
func (s *Signature) Match(raw, decoded string) int {
	n := 0
	for _, pat := range s.patterns {
		if pat.MatchString(decoded) || (raw != decoded && pat.MatchString(raw)) {
			n++
		}
	}
	return n
}

// catalog holds every signature in ascending priority order. Priority
// rank is part of the observable contract: changing it changes which
// attack type wins on overlapping payloads. More specific or more
// dangerous patterns rank before broader ones that could false-positive
// on the same string (Command Injection before the traversal families,
// deep traversal before single-hop).
var catalog = []Signature{
	{
		Type: CommandInjection, Severity: SeverityHigh, BaseConfidence: 90, Priority: 10,
		patterns: []*regexp.Regexp{
			// Terminator class after the command keeps "&id=5"-style query
			// strings from matching as shell commands.
			regexp.MustCompile(`(?i)[;&|]\s*(ls|cat|rm|whoami|pwd|uname|id|ps|netstat|mkdir|chmod|chown)([\s+;&|/-]|$)`),
			regexp.MustCompile(`(?i)(&&|\|\|)\s*(ls|cat|rm|whoami|pwd|uname|id)([\s+;&|/-]|$)`),
			regexp.MustCompile(`\$\s*\(`),
			regexp.MustCompile("`[^`]+`"),
			regexp.MustCompile(`(?i)\b(system|shell_exec|passthru|popen)\s*\(`),
		},
	},
	{
		Type: XXE, Severity: SeverityHigh, BaseConfidence: 85, Priority: 20,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)<!ENTITY`),
			regexp.MustCompile(`(?i)<!DOCTYPE`),
			regexp.MustCompile(`(?i)\bSYSTEM\s+['"]`),
			regexp.MustCompile(`(?i)ENTITY\s*%`),
		},
	},
	{
		Type: FileInclusion, Severity: SeverityHigh, BaseConfidence: 85, Priority: 30,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)php://(filter|input)`),
			regexp.MustCompile(`(?i)\b(data|expect|zip|phar)://`),
			regexp.MustCompile(`(?i)(\.\./){3,}(etc/(passwd|shadow)|windows/system32)`),
		},
	},
	{
		Type: SSRF, Severity: SeverityHigh, BaseConfidence: 85, Priority: 40,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)https?://(127\.0\.0\.1|localhost|0\.0\.0\.0|\[?::1\]?)`),
			regexp.MustCompile(`(?i)https?://169\.254\.169\.254`),
			regexp.MustCompile(`(?i)https?://192\.168\.\d{1,3}\.\d{1,3}`),
			regexp.MustCompile(`(?i)https?://10\.\d{1,3}\.\d{1,3}\.\d{1,3}`),
			regexp.MustCompile(`(?i)https?://172\.(1[6-9]|2\d|3[01])\.\d{1,3}\.\d{1,3}`),
			regexp.MustCompile(`(?i)\b(gopher|dict)://`),
			regexp.MustCompile(`(?i)\bfile://`),
		},
	},
	{
		Type: CrossSiteScripting, Severity: SeverityHigh, BaseConfidence: 80, Priority: 50,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)<script[\s>]`),
			regexp.MustCompile(`(?i)\b(java|vb)script\s*:`),
			regexp.MustCompile(`(?i)\bon(error|load|click|mouseover|focus)\s*=`),
			regexp.MustCompile(`(?i)<iframe[\s>]`),
			regexp.MustCompile(`(?i)<svg[^>]*onload`),
			regexp.MustCompile(`(?i)<img[^>]*src\s*=\s*["']?\s*javascript:`),
			regexp.MustCompile(`(?i)\balert\s*\(`),
			regexp.MustCompile(`(?i)document\.(cookie|write)`),
			regexp.MustCompile(`(?i)\beval\s*\(`),
		},
	},
	{
		Type: SQLInjection, Severity: SeverityHigh, BaseConfidence: 80, Priority: 60,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)'\s*or\s*'?1'?\s*=\s*'?1`),
			regexp.MustCompile(`(?i)'\s*or\s*'?[a-z]'?\s*=\s*'?[a-z]'?`),
			regexp.MustCompile(`'\s*--`),
			regexp.MustCompile(`;\s*--`),
			regexp.MustCompile(`(?i)\bunion\s+(all\s+)?select\b`),
			regexp.MustCompile(`(?i)\bselect\s+.{0,100}\s+from\b`),
			regexp.MustCompile(`(?i)\binsert\s+into\b`),
			regexp.MustCompile(`(?i)\bdelete\s+from\b`),
			regexp.MustCompile(`(?i)\bupdate\s+\w+\s+set\b`),
			regexp.MustCompile(`(?i)\bdrop\s+(table|database)\b`),
			regexp.MustCompile(`(?i)\b(xp|sp)_\w+`),
		},
	},
	{
		Type: LDAPInjection, Severity: SeverityMedium, BaseConfidence: 70, Priority: 70,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\(\s*[|&!]`),
			regexp.MustCompile(`\*\s*\)`),
			regexp.MustCompile(`(?i)\(\w+=\*\)`),
		},
	},
	{
		Type: DirectoryTraversal, Severity: SeverityMedium, BaseConfidence: 75, Priority: 80,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(\.\./){2,}`),
			regexp.MustCompile(`(\.\.\\){2,}`),
			regexp.MustCompile(`/etc/(passwd|shadow)\b`),
			regexp.MustCompile(`(?i)\.\.%25(2f|5c)`),
		},
	},
	{
		Type: PathTraversal, Severity: SeverityMedium, BaseConfidence: 65, Priority: 90,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`\.\./`),
			regexp.MustCompile(`\.\.\\`),
			regexp.MustCompile(`(?i)\.\.%(2f|5c)`),
		},
	},
}

// Catalog returns the signatures in ascending priority order. The slice
// is shared immutable state; callers must not modify it.
func Catalog() []Signature {
	return catalog
}
