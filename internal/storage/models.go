package storage

// AuditEntry records one state-changing user action for diagnostics. Entries
// never contain secrets or prompt text.
type AuditEntry struct {
	UserID   int64
	Action   string
	MetaJSON string
}
