package flags

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/backbone"
)

const EnvVarPrefix = "DRP"

var (
	OsirisRoot = &cli.StringFlag{
		Name:    "osiris-root",
		Value:   "",
		EnvVars: append([]string{backbone.RootEnvVar}, opservice.PrefixEnvVar(EnvVarPrefix, "OSIRIS_ROOT")...),
		Usage:   "Root of the OSIRIS DRP checkout; locates the test directory and relativises reported paths",
	}
	TestDir = &cli.StringFlag{
		Name:    "testdir",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TESTDIR"),
		Usage:   "Directory holding the IDL startup file (default: <osiris-root>/tests)",
	}
	Binary = &cli.StringFlag{
		Name:    "idl-binary",
		Value:   backbone.DefaultBinary,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "IDL_BINARY"),
		Usage:   "Path to the IDL binary hosting the pipeline backbone",
	}
	StartupFile = &cli.StringFlag{
		Name:    "startup-file",
		Value:   backbone.DefaultStartupFile,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STARTUP_FILE"),
		Usage:   "IDL startup file name inside the test directory",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TIMEOUT"),
		Usage:   "Kill the backbone after this long (e.g. '30m'). 0 waits forever.",
	}
	MetricsFile = &cli.StringFlag{
		Name:    "metrics-file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_FILE"),
		Usage:   "Write Prometheus metrics to this textfile on exit",
	}

	Transcript = &cli.StringFlag{
		Name:    "transcript",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TRANSCRIPT"),
		Usage:   "Also write the backbone output, without ANSI escapes, to this file",
	}

	SuiteFile = &cli.StringFlag{
		Name:     "suite",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "SUITE"),
		Usage:    "Path to the suite definition (eg. 'suite.yaml' or 'suite.toml')",
	}
	Cases = &cli.StringFlag{
		Name:    "case",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CASE"),
		Usage:   "Comma-separated names of the cases to run (default: every case)",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz-addr",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Serve /healthz on this address during the run (e.g. '0.0.0.0:8080'). Empty disables it.",
	}
	MetricsAddr = &cli.StringFlag{
		Name:    "metrics-addr",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "METRICS_ADDR"),
		Usage:   "Serve Prometheus /metrics on this address during the run (e.g. '0.0.0.0:7300'). Empty disables it.",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOGDIR"),
		Usage:   "Directory for per-case backbone transcripts. Empty disables transcripts.",
	}
)

// Flags are shared by every command.
var Flags []cli.Flag

// ConsumeFlags are added to the commands that run the backbone.
var ConsumeFlags = []cli.Flag{
	Transcript,
}

// SuiteFlags are added to the suite command.
var SuiteFlags = []cli.Flag{
	SuiteFile,
	Cases,
	LogDir,
	HealthzAddr,
	MetricsAddr,
}

var suiteRequiredFlags = []cli.Flag{
	SuiteFile,
}

func init() {
	Flags = []cli.Flag{
		OsirisRoot,
		TestDir,
		Binary,
		StartupFile,
		Timeout,
		MetricsFile,
	}
	Flags = append(Flags, oplog.CLIFlags(EnvVarPrefix)...)
}

// SplitCases turns the value of the case flag into case names.
func SplitCases(value string) []string {
	var names []string
	for _, name := range strings.Split(value, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// CheckSuiteRequired checks the flags the suite command cannot run without.
func CheckSuiteRequired(ctx *cli.Context) error {
	for _, f := range suiteRequiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
