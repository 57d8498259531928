package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmdStructure(t *testing.T) {
	assert.Equal(t, "dockhand", rootCmd.Use)
	assert.Contains(t, rootCmd.Short, "backup")

	flag := rootCmd.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "config", flag.Name)
}

func TestRootCmdSubcommands(t *testing.T) {
	commands := rootCmd.Commands()

	commandNames := make([]string, len(commands))
	for i, cmd := range commands {
		commandNames[i] = cmd.Name()
	}

	assert.Contains(t, commandNames, "backup")
	assert.Contains(t, commandNames, "restore")
	assert.Contains(t, commandNames, "recover")
	assert.Contains(t, commandNames, "version")
}

func TestRootCmdHelp(t *testing.T) {
	var output bytes.Buffer
	rootCmd.SetOut(&output)
	rootCmd.SetArgs([]string{"--help"})

	err := rootCmd.Execute()
	assert.NoError(t, err)

	helpOutput := output.String()
	assert.Contains(t, helpOutput, "Dockhand")
	assert.Contains(t, helpOutput, "Available Commands:")
	assert.Contains(t, helpOutput, "backup")
	assert.Contains(t, helpOutput, "restore")
	assert.Contains(t, helpOutput, "recover")
}

func TestBackupCmdStructure(t *testing.T) {
	cmd := newBackupCommand()
	assert.Equal(t, "backup", cmd.Name())

	subNames := make([]string, 0, len(cmd.Commands()))
	for _, sub := range cmd.Commands() {
		subNames = append(subNames, sub.Name())
	}
	assert.Contains(t, subNames, "list")
	assert.Contains(t, subNames, "delete")
}

func TestRestoreCmdRequiresTarget(t *testing.T) {
	cmd := newRestoreCommand()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{})

	assert.Error(t, cmd.Execute(), "restore without a target must fail")
}

func TestRestoreCmdYesFlag(t *testing.T) {
	cmd := newRestoreCommand()
	flag := cmd.Flags().Lookup("yes")
	require.NotNil(t, flag)
	assert.Equal(t, "y", flag.Shorthand)
}

func TestVersionCmd(t *testing.T) {
	setVersionInfo("1.2.3", "abc1234", "2025-02-01")

	var output bytes.Buffer
	cmd := newVersionCommand()
	cmd.SetOut(&output)
	require.NoError(t, cmd.Execute())

	assert.Contains(t, output.String(), "1.2.3")
	assert.Contains(t, output.String(), "abc1234")
}
