package main

// Exit codes shared by all commands.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (missing variables, bad log file)
	ExitDataError   = 3 // Data error (unparsable archive, malformed deposition)
)
