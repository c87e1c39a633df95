// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/canonical/erp-auth/pkg/apikeys"
)

func TestAPIKeyGenerate(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"apikey", "generate", "--bcrypt-cost", "4"})

	require.NoError(t, rootCmd.Execute())

	var out apiKeyOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.True(t, strings.HasPrefix(out.Key, apikeys.KeyPrefix))
	assert.Equal(t, out.Key[:apikeys.PrefixLength], out.Prefix)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(out.Hash), []byte(out.Key)))
}

func TestAPIKeyHashRejectsMalformedKey(t *testing.T) {
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"apikey", "hash", "not-a-key", "--bcrypt-cost", "4"})

	assert.Error(t, rootCmd.Execute())
}
