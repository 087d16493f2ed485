// Package audit implements the append-only audit trail.
//
// Entries are written through a Logger, which scrubs secrets from the
// properties, fills the client IP and user agent from the request context
// and never fails the caller: a storage error is logged and Log returns nil.
//
//	store := audit.NewMemoryStore()
//	log := audit.NewLogger(store,
//	    audit.WithIPExtractor(clientip.GetIPFromContext),
//	    audit.WithUserAgentExtractor(clientip.GetUserAgentFromContext),
//	)
//	log.Log(ctx, audit.ActionLogin,
//	    audit.WithActor(audit.User(user.ID)),
//	    audit.WithSubject(audit.User(user.ID)),
//	)
//
// Storage exposes no update or delete operation. The only way entries leave
// the store is Purge, driven by RetentionJob:
//
//	job := audit.NewRetentionJob(store, cfg.RetentionDays, audit.WithAuditLogger(log))
//	report, err := job.Run(ctx)
//
// Reader serves the admin views: paginated queries where Filter.UserID
// matches entries in which the user is the actor or the subject, the cached
// list of distinct actions and a streaming CSV export.
package audit
