package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	drp "github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/backbone"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/exitcodes"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/flags"
)

// fakeIDL marks every waiting entry of the queue named in its last
// argument as done.
const fakeIDL = `#!/bin/sh
dir=$(printf '%s' "$4" | sed "s/^[^']*'\(.*\)'.*$/\1/")
for f in "$dir"*.waiting; do
	[ -e "$f" ] && mv "$f" "${f%.waiting}.done"
done
echo "consumed $dir"
`

type cliFixture struct {
	dir      string
	queueDir string
	idl      string
	out      *bytes.Buffer
}

func newCLIFixture(t *testing.T, descriptors ...string) *cliFixture {
	t.Helper()
	t.Setenv(backbone.RootEnvVar, "")
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	f := &cliFixture{
		dir:      dir,
		queueDir: filepath.Join(dir, "queue"),
		idl:      filepath.Join(dir, "idl"),
		out:      &bytes.Buffer{},
	}
	require.NoError(t, os.MkdirAll(f.queueDir, 0o755))
	require.NoError(t, os.WriteFile(f.idl, []byte(fakeIDL), 0o755))
	for _, name := range descriptors {
		require.NoError(t, os.WriteFile(filepath.Join(f.queueDir, name), []byte("<DRF/>"), 0o644))
	}
	return f
}

func (f *cliFixture) run(args ...string) error {
	app := newApp()
	app.Writer = f.out
	app.ErrWriter = f.out
	return app.RunContext(context.Background(), append([]string{"drptestbones"}, args...))
}

func writeFITS(t *testing.T, path string, data []float64) {
	t.Helper()
	w, err := os.Create(path)
	require.NoError(t, err)
	defer w.Close()

	f, err := fitsio.Create(w)
	require.NoError(t, err)
	defer f.Close()

	img := fitsio.NewImage(-64, []int{len(data)})
	defer img.Close()
	require.NoError(t, img.Write(data))
	require.NoError(t, f.Write(img))
}

func TestPrepareCommand(t *testing.T) {
	f := newCLIFixture(t, "arp_spec.xml", "crossflat.xml")
	require.NoError(t, f.run("prepare", "--testdir", f.dir, f.queueDir))

	assert.Contains(t, f.out.String(), "001.arp_spec.waiting")
	assert.Contains(t, f.out.String(), "002.crossflat.waiting")
	assert.FileExists(t, filepath.Join(f.queueDir, "002.crossflat.waiting"))
}

func TestPrepareCommandInvalidName(t *testing.T) {
	f := newCLIFixture(t, "arp.spec.xml")
	err := f.run("prepare", "--testdir", f.dir, f.queueDir)
	require.Error(t, err)
	assert.Equal(t, exitcodes.RuntimeErr, drp.ExitCode(err))
}

func TestPrepareCommandNeedsQueueDir(t *testing.T) {
	f := newCLIFixture(t)
	err := f.run("prepare", "--testdir", f.dir)
	require.Error(t, err)
	assert.True(t, drp.IsRuntimeError(err))
}

func TestRunAndListCommands(t *testing.T) {
	f := newCLIFixture(t, "arp_spec.xml")
	transcript := filepath.Join(f.dir, "transcript.log")
	metricsFile := filepath.Join(f.dir, "drp.prom")

	require.NoError(t, f.run("run",
		"--testdir", f.dir,
		"--idl-binary", f.idl,
		"--transcript", transcript,
		"--metrics-file", metricsFile,
		f.queueDir,
	))
	assert.FileExists(t, filepath.Join(f.queueDir, "001.arp_spec.done"))
	assert.Contains(t, f.out.String(), "consumed "+f.queueDir+"/")

	logged, err := os.ReadFile(transcript)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "consumed")

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "drp_backbone_runs_total")

	f.out.Reset()
	require.NoError(t, f.run("list", "--testdir", f.dir, f.queueDir))
	assert.Contains(t, f.out.String(), "001.arp_spec.done")
}

func TestConsumeCommandMissingQueue(t *testing.T) {
	f := newCLIFixture(t)
	err := f.run("consume", "--testdir", f.dir, "--idl-binary", f.idl, filepath.Join(f.dir, "missing"))
	require.Error(t, err)
	assert.Equal(t, exitcodes.RuntimeErr, drp.ExitCode(err))
}

func TestConsumeCommandWithoutRoot(t *testing.T) {
	f := newCLIFixture(t)
	err := f.run("consume", f.queueDir)
	require.Error(t, err)
	assert.True(t, backbone.IsConfigError(err))
	assert.Equal(t, exitcodes.RuntimeErr, drp.ExitCode(err))
}

func TestDiffCommand(t *testing.T) {
	f := newCLIFixture(t)
	a := filepath.Join(f.dir, "a.fits")
	b := filepath.Join(f.dir, "b.fits")
	c := filepath.Join(f.dir, "c.fits")
	writeFITS(t, a, []float64{1, 2, 3})
	writeFITS(t, b, []float64{1, 2, 3.000001})
	writeFITS(t, c, []float64{1, 2, 4})

	require.NoError(t, f.run("diff", "--testdir", f.dir, a, b))
	assert.Contains(t, f.out.String(), "No differences found.")

	f.out.Reset()
	err := f.run("diff", "--testdir", f.dir, a, c)
	require.Error(t, err)
	assert.Equal(t, exitcodes.TestFailure, drp.ExitCode(err))
	assert.Contains(t, f.out.String(), "Data differs at [3]")

	err = f.run("diff", "--testdir", f.dir, a, filepath.Join(f.dir, "missing.fits"))
	require.Error(t, err)
	assert.Equal(t, exitcodes.RuntimeErr, drp.ExitCode(err))
}

func TestRunSuite(t *testing.T) {
	f := newCLIFixture(t, "arp_spec.xml")
	expected := filepath.Join(f.dir, "expected.fits")
	actual := filepath.Join(f.dir, "actual.fits")
	writeFITS(t, expected, []float64{1, 2})
	writeFITS(t, actual, []float64{1, 2})
	suitePath := filepath.Join(f.dir, "suite.toml")
	require.NoError(t, os.WriteFile(suitePath, []byte(`
[[cases]]
name = "arp_spec"
queue = "queue"

[[cases.compare]]
expected = "expected.fits"
actual = "actual.fits"
`), 0o644))

	var startErr error
	closed := make(chan error, 1)
	app := cli.NewApp()
	app.Writer = f.out
	app.Flags = suiteCommandFlags(t)
	app.Action = func(ctx *cli.Context) error {
		lc, err := runSuite(ctx, func(cause error) { closed <- cause })
		if err != nil {
			return err
		}
		startErr = lc.Start(ctx.Context)
		return lc.Stop(ctx.Context)
	}
	require.NoError(t, app.Run([]string{"drptestbones",
		"--testdir", f.dir,
		"--idl-binary", f.idl,
		"--suite", suitePath,
		"--logdir", filepath.Join(f.dir, "logs"),
	}))
	require.NoError(t, startErr)
	assert.NoError(t, <-closed)
	assert.FileExists(t, filepath.Join(f.queueDir, "001.arp_spec.done"))
	assert.Contains(t, f.out.String(), "DRP Integration Test Results")
}

func TestRunSuiteBadSuiteFile(t *testing.T) {
	f := newCLIFixture(t)
	suitePath := filepath.Join(f.dir, "suite.yaml")
	require.NoError(t, os.WriteFile(suitePath, []byte("cases: []\n"), 0o644))

	app := cli.NewApp()
	app.Writer = f.out
	app.Flags = suiteCommandFlags(t)
	app.Action = func(ctx *cli.Context) error {
		_, err := runSuite(ctx, func(error) {})
		return err
	}
	err := app.Run([]string{"drptestbones", "--testdir", f.dir, "--suite", suitePath})
	require.Error(t, err)
	assert.True(t, drp.IsRuntimeError(err))
	assert.Equal(t, exitcodes.RuntimeErr, drp.ExitCode(err))
}

func suiteCommandFlags(t *testing.T) []cli.Flag {
	t.Helper()
	for _, cmd := range newApp().Commands {
		if cmd.Name == "suite" {
			return cmd.Flags
		}
	}
	t.Fatal("suite command not found")
	return nil
}

func TestCommandsHaveFlags(t *testing.T) {
	for _, cmd := range newApp().Commands {
		names := make(map[string]bool)
		for _, fl := range cmd.Flags {
			names[fl.Names()[0]] = true
		}
		assert.True(t, names[flags.OsirisRoot.Name], "command %s", cmd.Name)
		assert.True(t, names[flags.TestDir.Name], "command %s", cmd.Name)
	}
}
