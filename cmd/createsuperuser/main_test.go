package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubPasswordEntries(t *testing.T, entries ...string) {
	t.Helper()

	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	i := 0
	readPassword = func(fd int) ([]byte, error) {
		if i >= len(entries) {
			return nil, errors.New("no more input")
		}
		entry := entries[i]
		i++
		return []byte(entry), nil
	}
}

func TestPromptPasswordMatchingEntries(t *testing.T) {
	stubPasswordEntries(t, "secret password", "secret password")

	got, err := promptPassword()
	require.NoError(t, err)
	assert.Equal(t, "secret password", got)
}

func TestPromptPasswordMismatchedEntries(t *testing.T) {
	stubPasswordEntries(t, "first entry", "second entry")

	_, err := promptPassword()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "do not match")
}

func TestPromptPasswordReadFailure(t *testing.T) {
	stubPasswordEntries(t)

	_, err := promptPassword()
	require.Error(t, err)
}
