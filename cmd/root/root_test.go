package root_test

import (
	"bytes"
	"testing"

	"fjacquet/fintrack/cmd/root"
	"fjacquet/fintrack/internal/container"
	"fjacquet/fintrack/internal/logging"
	"fjacquet/fintrack/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "fintrack", root.Cmd.Use)
	assert.Contains(t, root.Cmd.Short, "personal finance")
	assert.Contains(t, root.Cmd.Long, "imports bank statements")
	assert.NotNil(t, root.Cmd.RunE)
	assert.NotNil(t, root.Cmd.PersistentPreRunE)
	assert.NotNil(t, root.Cmd.PersistentPostRunE)
}

func TestRootCommand_Flags(t *testing.T) {
	root.Init()
	root.Init()

	tests := []struct {
		name      string
		shorthand string
		def       string
	}{
		{"config", "c", ""},
		{"user", "u", "local"},
		{"log-level", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := root.Cmd.PersistentFlags().Lookup(tt.name)
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
			assert.Equal(t, tt.def, f.DefValue)
		})
	}
}

func TestRootCommand_BuildsAndClosesContainer(t *testing.T) {
	root.Init()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	logger := logging.NewMockLogger()
	ds := store.NewMemoryStore(logger)
	root.ContainerOptions = []container.Option{container.WithLogger(logger), container.WithDataStore(ds)}
	t.Cleanup(func() { root.ContainerOptions = nil })

	var out bytes.Buffer
	root.Cmd.SetOut(&out)
	root.Cmd.SetArgs([]string{"--user", "alice"})
	require.NoError(t, root.Cmd.Execute())

	assert.Contains(t, out.String(), "fintrack")
	assert.Equal(t, "alice", root.UserID())
	assert.True(t, logger.HasEntry("INFO", "Container initialized successfully"))
	assert.Nil(t, root.App(), "container should be released after the command")
	assert.NoError(t, root.Close())
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	root.Init()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	root.Cmd.SetOut(&bytes.Buffer{})
	root.Cmd.SetErr(&bytes.Buffer{})
	root.Cmd.SetArgs([]string{"--config", "missing.yaml", "--user", "local"})
	err := root.Cmd.Execute()
	assert.Error(t, err)
	assert.Nil(t, root.App())
}
