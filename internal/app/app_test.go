package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeDep struct {
	name     string
	startErr error
	stopped  atomic.Bool
	block    chan struct{}
}

func (d *fakeDep) Start() error {
	if d.startErr != nil {
		return d.startErr
	}
	if d.block != nil {
		<-d.block
	}
	return nil
}

func (d *fakeDep) Stop() error {
	d.stopped.Store(true)
	if d.block != nil {
		close(d.block)
	}
	return nil
}

func (d *fakeDep) Name() string { return d.name }

func TestCreateAppValidation(t *testing.T) {
	t.Parallel()

	tests := map[string]*Config{
		"missing service name": {StopTimeout: time.Second},
		"missing stop timeout": {ServiceName: "test"},
		"missing both":         {},
	}

	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := CreateApp(cfg)
			require.Error(t, err)
		})
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	dep := &fakeDep{name: "blocking", block: make(chan struct{})}
	a, err := CreateApp(&Config{ServiceName: "test", StopTimeout: 5 * time.Second}, dep)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.Run(ctx))
	require.True(t, dep.stopped.Load())
}

func TestRunStopsOnDependencyFailure(t *testing.T) {
	t.Parallel()

	good := &fakeDep{name: "good"}
	bad := &fakeDep{name: "bad", startErr: errors.New("boom")}
	a, err := CreateApp(&Config{ServiceName: "test", StopTimeout: 5 * time.Second}, good, bad)
	require.NoError(t, err)

	require.NoError(t, a.Run(context.Background()))
	require.True(t, good.stopped.Load())
	require.True(t, bad.stopped.Load())
}

func TestRunOnlyOnce(t *testing.T) {
	t.Parallel()

	a, err := CreateApp(&Config{ServiceName: "test", StopTimeout: time.Second})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, a.Run(ctx))

	require.Error(t, a.Run(context.Background()))
}
