package credstore

// Username identifies an authenticated user. It is used both as a map key
// and as the identity carried through the decision engine. Conversions from
// raw strings happen at the boundary; internal code never compares mixed
// representations.
type Username string

// String returns the username as a plain string.
func (u Username) String() string {
	return string(u)
}

// UserCommand is an external program configured to run after a user
// authenticates. The command is invoked as-is with no arguments and no
// shell interpretation.
type UserCommand struct {
	// Name is an optional label. Adding a command whose name matches an
	// existing one replaces it instead of appending a duplicate.
	Name string `json:"name,omitempty"`

	// Path is the working directory for the invocation. Empty means the
	// process working directory.
	Path string `json:"path,omitempty"`

	// Command is the program to execute.
	Command string `json:"command"`
}

// String renders the command in shell-like form for log output.
func (c UserCommand) String() string {
	dir := c.Path
	if dir == "" {
		dir = "."
	}
	return "cd " + dir + " && " + c.Command
}
