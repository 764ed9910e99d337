package core

// Logger is any service that can log messages.
// Args are free-form: errors, map[string]interface{} extras, or the learner.Learner the message is about.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
