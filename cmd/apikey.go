// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/canonical/erp-auth/pkg/apikeys"
	"github.com/canonical/erp-auth/pkg/authentication"
)

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Offline API key helpers",
}

var apikeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Mint an API key and print the values to store",
	Long:  `Mint an API key and print the lookup prefix and bcrypt hash to provision it out of band.`,
	Args:  cobra.NoArgs,
	RunE:  runAPIKeyGenerate,
}

var apikeyHashCmd = &cobra.Command{
	Use:   "hash <key>",
	Short: "Print the lookup prefix and bcrypt hash of an existing key",
	Args:  cobra.ExactArgs(1),
	RunE:  runAPIKeyHash,
}

func init() {
	apikeyCmd.PersistentFlags().Int("bcrypt-cost", 12, "bcrypt cost used for the key hash")

	apikeyCmd.AddCommand(apikeyGenerateCmd)
	apikeyCmd.AddCommand(apikeyHashCmd)
	rootCmd.AddCommand(apikeyCmd)
}

type apiKeyOutput struct {
	Key    string `json:"key,omitempty"`
	Prefix string `json:"prefix"`
	Hash   string `json:"hash"`
}

func runAPIKeyGenerate(cmd *cobra.Command, _ []string) error {
	raw, err := apikeys.GenerateKey()
	if err != nil {
		return err
	}

	return printAPIKey(cmd, raw, true)
}

func runAPIKeyHash(cmd *cobra.Command, args []string) error {
	return printAPIKey(cmd, args[0], false)
}

func printAPIKey(cmd *cobra.Command, raw string, showKey bool) error {
	cost, _ := cmd.Flags().GetInt("bcrypt-cost")

	prefix, hash, err := apikeys.HashKey(authentication.NewBcryptHasher(cost), raw)
	if err != nil {
		return fmt.Errorf("cannot hash key: %w", err)
	}

	out := apiKeyOutput{Prefix: prefix, Hash: hash}
	if showKey {
		out.Key = raw
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
