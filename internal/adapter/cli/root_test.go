package cli_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ismoil793/mega-miyya/internal/adapter/cli"
)

type fakeRunner struct {
	ran bool
}

func (r *fakeRunner) Run(ctx context.Context) error {
	r.ran = true
	return nil
}

type fakeAccounts struct {
	account string
	enabled bool
	err     error
}

func (a *fakeAccounts) SetAccountEnabled(ctx context.Context, account string, enabled bool) error {
	a.account = account
	a.enabled = enabled
	return a.err
}

func execute(t *testing.T, deps cli.Dependencies, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	deps.Args = cli.Arguments{OutWriter: &out, ErrWriter: &out}

	root := cli.NewRootCommand(deps)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand_VersionFlag(t *testing.T) {
	out, err := execute(t, cli.Dependencies{Version: "v1.2.3"}, "--version")

	assert.ErrorIs(t, err, cli.ErrVersionRequested)
	assert.Contains(t, out, "v1.2.3")
}

func TestServeCommand_RunsServer(t *testing.T) {
	runner := &fakeRunner{}

	_, err := execute(t, cli.Dependencies{Server: runner}, "serve")

	require.NoError(t, err)
	assert.True(t, runner.ran)
}

func TestAccountEnable(t *testing.T) {
	accounts := &fakeAccounts{}

	out, err := execute(t, cli.Dependencies{Accounts: accounts}, "account", "enable", "octo")

	require.NoError(t, err)
	assert.Equal(t, "octo", accounts.account)
	assert.True(t, accounts.enabled)
	assert.Contains(t, out, "account octo enabled")
}

func TestAccountDisable(t *testing.T) {
	accounts := &fakeAccounts{}

	out, err := execute(t, cli.Dependencies{Accounts: accounts}, "account", "disable", "octo")

	require.NoError(t, err)
	assert.False(t, accounts.enabled)
	assert.Contains(t, out, "account octo disabled")
}

func TestAccountEnable_PropagatesError(t *testing.T) {
	accounts := &fakeAccounts{err: errors.New("db locked")}

	_, err := execute(t, cli.Dependencies{Accounts: accounts}, "account", "enable", "octo")

	assert.EqualError(t, err, "db locked")
}

func TestAccountEnable_RequiresArgument(t *testing.T) {
	_, err := execute(t, cli.Dependencies{Accounts: &fakeAccounts{}}, "account", "enable")

	assert.Error(t, err)
}
