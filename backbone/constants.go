package backbone

const (
	// RootEnvVar names the environment variable holding the OSIRIS root.
	RootEnvVar = "OSIRIS_ROOT"

	// DefaultBinary is the executable that hosts the pipeline.
	DefaultBinary = "idl"

	// DefaultStartupFile is the IDL startup script loaded from the test directory.
	DefaultStartupFile = "drpStartup.pro"

	// TestsSubdir is the test directory below the OSIRIS root.
	TestsSubdir = "tests"

	// Backbone command arguments
	StartupFlag       = "-IDL_STARTUP"
	ExecuteFlag       = "-e"
	TestSingleCommand = "drpTestSingle"

	defaultTailBytes = 64 * 1024
	maxLineBytes     = 1024 * 1024
)
