package identity

// Identity backend endpoints. The backend is the school platform that
// issued the caller's token; it answers with a verdict, not a session.
const (
	verifyTeacherTokenEndpoint = "/users/verifyTeacherToken"
	verifyStudentTokenEndpoint = "/students/verifyStudentToken"
)
