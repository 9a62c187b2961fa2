package drptestbones

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/optimism/op-service/testlog"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/suite"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, s *suite.Suite) (*SuiteResult, error) {
	args := m.Called(ctx, s)
	result, _ := args.Get(0).(*SuiteResult)
	return result, args.Error(1)
}

func newTestService(t *testing.T, runner SuiteRunner) (*service, chan error) {
	t.Helper()
	shutdown := make(chan error, 1)
	logger := testlog.Logger(t, log.LevelInfo)
	cfg := &Config{Log: logger, Stdout: &bytes.Buffer{}}
	return &service{
		config:    cfg,
		version:   "test",
		suite:     &suite.Suite{Cases: []suite.Case{{Name: "arp_spec", Queue: "/q"}}},
		runner:    runner,
		formatter: NewConsoleResultFormatter(logger, cfg.Stdout),
		shutdownCallback: func(err error) {
			shutdown <- err
		},
	}, shutdown
}

func resultWith(statuses ...CaseStatus) *SuiteResult {
	result := &SuiteResult{RunID: "run"}
	for i, s := range statuses {
		result.Cases = append(result.Cases, &CaseResult{Name: string(rune('a' + i)), Status: s})
	}
	return result
}

func TestServiceStartPass(t *testing.T) {
	runner := &mockRunner{}
	runner.On("Run", mock.Anything, mock.Anything).Return(resultWith(CaseStatusPass), nil).Once()
	svc, shutdown := newTestService(t, runner)

	require.NoError(t, svc.Start(context.Background()))
	assert.False(t, svc.Stopped())
	assert.Equal(t, CaseStatusPass, svc.Result().Status())

	select {
	case err := <-shutdown:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown callback was not called")
	}

	require.NoError(t, svc.Stop(context.Background()))
	assert.True(t, svc.Stopped())
	require.NoError(t, svc.Stop(context.Background()), "stopping twice is fine")
	runner.AssertExpectations(t)
}

func TestServiceStartOutcomes(t *testing.T) {
	tests := []struct {
		name        string
		result      *SuiteResult
		err         error
		wantFailure bool
		wantRuntime bool
	}{
		{name: "failure", result: resultWith(CaseStatusPass, CaseStatusFail), wantFailure: true},
		{name: "case error", result: resultWith(CaseStatusFail, CaseStatusError), wantRuntime: true},
		{name: "runner error", result: resultWith(), err: context.Canceled, wantRuntime: true},
		{name: "runner error without result", err: errors.New("boom"), wantRuntime: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &mockRunner{}
			runner.On("Run", mock.Anything, mock.Anything).Return(tt.result, tt.err)
			svc, shutdown := newTestService(t, runner)

			err := svc.Start(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.wantFailure, IsTestFailureError(err))
			assert.Equal(t, tt.wantRuntime, IsRuntimeError(err))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
			assert.Empty(t, shutdown, "shutdown is left to the lifecycle on error")
		})
	}
}

func TestNewService(t *testing.T) {
	dir := t.TempDir()
	suitePath := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(suitePath, []byte(`
cases:
  - name: arp_spec
    queue: arp_spec/queue
  - name: crossflat
    queue: crossflat/queue
`), 0o644))

	newConfig := func() *Config {
		return &Config{
			Root:      dir,
			SuiteFile: suitePath,
			Log:       testlog.Logger(t, log.LevelInfo),
		}
	}

	t.Run("selects cases", func(t *testing.T) {
		cfg := newConfig()
		cfg.Cases = []string{"crossflat"}
		svc, err := New(context.Background(), cfg, "test", func(error) {})
		require.NoError(t, err)
		require.Len(t, svc.suite.Cases, 1)
		assert.Equal(t, filepath.Join(dir, "crossflat", "queue"), svc.suite.Cases[0].Queue)
		assert.True(t, svc.Stopped())
	})

	t.Run("unknown case", func(t *testing.T) {
		cfg := newConfig()
		cfg.Cases = []string{"nope"}
		_, err := New(context.Background(), cfg, "test", func(error) {})
		require.ErrorContains(t, err, `unknown case "nope"`)
	})

	t.Run("missing suite file", func(t *testing.T) {
		cfg := newConfig()
		cfg.SuiteFile = filepath.Join(dir, "missing.yaml")
		_, err := New(context.Background(), cfg, "test", func(error) {})
		require.Error(t, err)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := New(context.Background(), nil, "test", func(error) {})
		require.Error(t, err)
	})
}
