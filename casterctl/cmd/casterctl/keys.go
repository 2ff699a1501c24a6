// Copyright 2026 The Caster Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtkcaster/caster/pkg/casterclient"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
	"github.com/rtkcaster/caster/private/app/flag"
)

func newKeys(pather CommandPather) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the trust sets of a caster",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(
		newKeysPublic(cmd),
		newKeysApply(cmd),
		newKeysCredentials(cmd),
	)
	return cmd
}

func newKeysPublic(pather CommandPather) *cobra.Command {
	return &cobra.Command{
		Use:     "public <key-file>",
		Short:   "Print the hex encoded public key of a private key",
		Example: fmt.Sprintf("  %[1]s public management.key", pather.CommandPath()),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			priv, err := loadPrivateKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(priv.Public().(ed25519.PublicKey)))
			return nil
		},
	}
}

func grants(values []string) ([]wire.KeyGrant, error) {
	var gs []wire.KeyGrant
	for _, v := range values {
		pub, expires, err := parseGrant(v)
		if err != nil {
			return nil, err
		}
		gs = append(gs, casterclient.Grant(pub, expires))
	}
	return gs, nil
}

func newKeysApply(pather CommandPather) *cobra.Command {
	var envFlags flag.CasterEnvironment
	var flags struct {
		key       string
		official  []string
		community []string
		blacklist []string
		timeout   time.Duration
	}
	cmd := &cobra.Command{
		Use:   "apply --key <management-key-file> [flags]",
		Short: "Add keys to the trust sets of a caster",
		Example: fmt.Sprintf(`  %[1]s apply --key management.key --official 3b6a...
  %[1]s apply --key management.key --community 3b6a...@2027-01-01T00:00:00Z
  %[1]s apply --key management.key --blacklist 9f01...`, pather.CommandPath()),
		Long: `'apply' sends one signed batch to the key management channel of a caster.

Keys are hex encoded ed25519 public keys. A key may carry an expiry time in
RFC 3339 format, separated by '@'. The batch is applied entirely or not at all.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var batch wire.KeyBatch
			var err error
			if batch.Official, err = grants(flags.official); err != nil {
				return serrors.Wrap("parsing official keys", err)
			}
			if batch.Community, err = grants(flags.community); err != nil {
				return serrors.Wrap("parsing community keys", err)
			}
			if batch.Blacklist, err = grants(flags.blacklist); err != nil {
				return serrors.Wrap("parsing blacklisted keys", err)
			}
			if batch.Len() == 0 {
				return serrors.New("no keys given")
			}
			cmd.SilenceUsage = true

			priv, err := loadPrivateKey(flags.key)
			if err != nil {
				return err
			}
			if err := envFlags.LoadExternalVars(); err != nil {
				return err
			}
			admin := casterclient.KeyAdmin{
				Endpoint: envFlags.KeyManagement(),
				Key:      priv,
				Timeout:  flags.timeout,
			}
			if err := admin.Apply(&batch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d keys\n", batch.Len())
			return nil
		},
	}
	envFlags.Register(cmd.Flags())
	cmd.Flags().StringVar(&flags.key, "key", "", "File holding the management private key")
	cmd.Flags().StringSliceVar(&flags.official, "official", nil, "Official signing keys")
	cmd.Flags().StringSliceVar(&flags.community, "community", nil, "Community signing keys")
	cmd.Flags().StringSliceVar(&flags.blacklist, "blacklist", nil, "Blacklisted keys")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", casterclient.DefaultTimeout, "Timeout")
	if err := cmd.MarkFlagRequired("key"); err != nil {
		panic(err)
	}
	return cmd
}

func newKeysCredentials(pather CommandPather) *cobra.Command {
	var flags struct {
		signers  []string
		validity time.Duration
	}
	cmd := &cobra.Command{
		Use:   "credentials <connection-public-key> --signer <key-file>...",
		Short: "Issue signed credentials for a basestation connection key",
		Example: fmt.Sprintf(`  %[1]s credentials 3b6a... --signer official.key --validity 720h`,
			pather.CommandPath()),
		Long: `'credentials' signs the permissions of a basestation connection key with
every given signer and prints the hex encoded credentials.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := parsePublicKey(args[0])
			if err != nil {
				return err
			}
			if flags.validity <= 0 {
				return serrors.New("validity must be positive", "validity", flags.validity)
			}
			cmd.SilenceUsage = true
			var signers []ed25519.PrivateKey
			for _, f := range flags.signers {
				priv, err := loadPrivateKey(f)
				if err != nil {
					return err
				}
				signers = append(signers, priv)
			}
			creds := casterclient.NewCredentials(pub, time.Now().Add(flags.validity), signers...)
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(creds.Marshal()))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&flags.signers, "signer", nil, "Files holding the signing keys")
	cmd.Flags().DurationVar(&flags.validity, "validity", 30*24*time.Hour,
		"How long the credentials stay valid")
	if err := cmd.MarkFlagRequired("signer"); err != nil {
		panic(err)
	}
	return cmd
}
