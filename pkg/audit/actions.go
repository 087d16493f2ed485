package audit

// Actions recorded by the panel.
const (
	ActionLogin       = "auth.login"
	ActionLoginFailed = "auth.login_failed"
	ActionLogout      = "auth.logout"

	ActionTwoFactorSuccess = "auth.2fa_success"
	ActionTwoFactorFailed  = "auth.2fa_failed"

	ActionTwoFactorEnabled         = "auth.2fa_enabled"
	ActionTwoFactorDisabled        = "auth.2fa_disabled"
	ActionRecoveryCodesRegenerated = "auth.2fa_recovery_codes_regenerated"

	ActionUserCreated = "user.created"

	ActionAuditExported = "audit.exported"
	ActionAuditPurged   = "audit.purged"
)

// Results used in ActionProperties.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)
