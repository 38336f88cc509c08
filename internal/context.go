package internal

type contextKey string

// UserContextKey carries the authenticated caller set by the jwt middleware.
const UserContextKey contextKey = "user"
