package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/natvps/panel/pkg/secrets"
)

func TestKeygenCmd(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := newKeygenCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	key, err := secrets.DecodeKey(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Len(t, key, secrets.KeySize)
}
