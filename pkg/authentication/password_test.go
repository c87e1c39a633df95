// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{password: "Abc12345!", valid: true},
		{password: "Abcdefg1", valid: true},
		{password: "Ab1!", valid: false},
		{password: "abc12345!", valid: false},
		{password: "ABC12345!", valid: false},
		{password: "Abcdefgh!", valid: false},
		{password: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrWeakPassword)
			}
		})
	}
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("Abc12345!")
	require.NoError(t, err)

	assert.NotEqual(t, "Abc12345!", hash)
	assert.True(t, h.Compare(hash, "Abc12345!"))
	assert.False(t, h.Compare(hash, "Abc12345?"))
	assert.False(t, h.Compare("", "Abc12345!"))
}
