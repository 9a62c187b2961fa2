// Package exitcodes defines the standard exit codes used by drptestbones.
package exitcodes

// Exit code constants used by drptestbones
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Every queue entry completed and every comparison matched
// * TestFailure (1): The backbone failed an entry or a product differs from its reference
// * RuntimeErr (2): Configuration errors, missing queue directories, invalid descriptors
const (
	Success     = 0 // All checks pass
	TestFailure = 1 // Backbone or comparison failures
	RuntimeErr  = 2 // Runtime errors or timeouts
)
