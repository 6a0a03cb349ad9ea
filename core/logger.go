package core

type (
	// Logger logs messages along with optional args: error, map[string]interface{}, Identity.
	Logger interface {
		Debug(msg string, args ...interface{})
		Info(msg string, args ...interface{})
		Warn(msg string, args ...interface{})
		Error(msg string, args ...interface{})
		Fatal(msg string, args ...interface{})
	}

	// Identity is the authenticated caller of a request, as carried by its token.
	Identity struct {
		ID       string
		Username string
		Email    string
	}
)
