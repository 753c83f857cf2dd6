package main

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	cases := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"info":    logrus.InfoLevel,
		"warn":    logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"unknown": logrus.InfoLevel,
	}
	for level, want := range cases {
		setupLogging(level)
		require.Equal(t, want, logrus.GetLevel(), "level %q", level)
	}
}

func TestRmCommandFlags(t *testing.T) {
	cmd := newRmCommand()
	require.NotNil(t, cmd.Flags().Lookup("recursive"))

	recursive, err := cmd.Flags().GetBool("recursive")
	require.NoError(t, err)
	require.False(t, recursive)
}
