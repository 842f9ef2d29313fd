package detect

// AttackType identifies a known attack pattern family. The values are
// the exact strings exposed over the API and persisted by the store.
type AttackType string

const (
	CommandInjection   AttackType = "Command Injection"
	XXE                AttackType = "XML External Entity"
	FileInclusion      AttackType = "File Inclusion"
	SSRF               AttackType = "Server-Side Request Forgery"
	CrossSiteScripting AttackType = "Cross-Site Scripting"
	SQLInjection       AttackType = "SQL Injection"
	LDAPInjection      AttackType = "LDAP Injection"
	DirectoryTraversal AttackType = "Directory Traversal"
	PathTraversal      AttackType = "Path Traversal"
)

// Severity grades a detection. The classifier only ever produces High
// or Medium; Low exists for display compatibility in statistics and is
// never assigned.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// AttackTypes lists every attack type the catalog can produce, in
// priority order.
func AttackTypes() []AttackType {
	types := make([]AttackType, 0, len(catalog))
	for _, sig := range catalog {
		types = append(types, sig.Type)
	}
	return types
}
