package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommandPrintsRootVersion(t *testing.T) {
	original := rootCmd.Version
	defer func() { rootCmd.Version = original }()
	rootCmd.Version = "1.2.3-test"

	cmd := newVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)

	require.Equal(t, "permanode version 1.2.3-test\n", buf.String())
}

func TestConfigPathDefaultsWhenUnset(t *testing.T) {
	original := rootConfigPath
	defer func() { rootConfigPath = original }()
	rootConfigPath = ""

	require.Equal(t, "config.yaml", configPath())
}

func TestConfigPathUsesFlagValue(t *testing.T) {
	original := rootConfigPath
	defer func() { rootConfigPath = original }()
	rootConfigPath = "/etc/permanode/config.yaml"

	require.Equal(t, "/etc/permanode/config.yaml", configPath())
}
