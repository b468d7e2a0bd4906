// Package conversation carries messages between the login attempt and the person
// sitting in front of it.
package conversation

// Channel renders text to the user and collects acknowledgments. Implementations
// are provided by the host: the PAM conversation function or a terminal.
type Channel interface {
	// Info shows an informational message.
	Info(message string) error
	// Prompt shows message and blocks until the user answers.
	Prompt(message string) (string, error)
}

// ContinuePrompt gates the start of polling until the user has seen the code.
const ContinuePrompt = "Press Enter to continue:"
