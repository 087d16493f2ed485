// Package auditlog mounts the read-only admin views of the audit trail.
//
//	GET /admin/audit-logs            ?user_id=&action=&from=&to=&page=&per_page=
//	GET /admin/audit-logs/actions
//	GET /admin/audit-logs/export     same filters, CSV attachment
//	GET /admin/audit-logs/{id}
//
// Every route requires an administrator session. There is deliberately no
// route that modifies or deletes entries.
package auditlog
