package main

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	cmd := exportCommand(testLogger())
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"--format", "pdf"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --format")
}

func TestExportRejectsMalformedDateFlags(t *testing.T) {
	cmd := exportCommand(testLogger())
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"--from", "11 Jan 2025"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from")
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := rootCommand(testLogger())

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"process", "export", "reconcile", "dbhealth"}, names)
}
