package middlewares

const (
	ctxUserIDKey  = "auth.userID"
	ctxIsAdminKey = "auth.isAdmin"
)
