package constants

const (
	// Session / context keys
	ContextKeyUserID  = "user_id"
	ContextKeyActor   = "actor"
	ContextKeyRequest = "request_id"
	SessionCookieName = "workforce_session"

	// Header carrying the signed actor token
	AuthTokenHeader = "auth-token"

	// Pagination
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	MinPasswordLength = 6

	// Human id prefixes
	StringIDPrefixTask    = "TASK"
	StringIDPrefixProject = "PROJ"

	// Default project horizon when no duty date is supplied
	DefaultProjectDutyDays = 28

	MaxAIGeneratedTasks = 20
)
