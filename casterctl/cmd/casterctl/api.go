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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtkcaster/caster/caster/mgmtapi"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/private/app/flag"
)

// apiClient talks to the management API of a caster.
type apiClient struct {
	base   string
	client *http.Client
}

func newAPIClient(base string, timeout time.Duration) *apiClient {
	return &apiClient{
		base:   strings.TrimSuffix(base, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

// do sends body as JSON and decodes a successful response into out, if out
// is not nil. Error responses are reported with their problem details.
func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return serrors.Wrap("encoding request", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return serrors.Wrap("creating request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return serrors.Wrap("sending request", err, "url", req.URL)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var p mgmtapi.Problem
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil || p.Title == "" {
			return serrors.New("request failed", "status", resp.Status)
		}
		return serrors.New(p.Title, "status", p.Status, "detail", p.Detail)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return serrors.Wrap("decoding response", err)
	}
	return nil
}

func newInfo(pather CommandPather) *cobra.Command {
	var envFlags flag.CasterEnvironment
	var flags struct {
		timeout time.Duration
		format  string
	}
	cmd := &cobra.Command{
		Use:     "info",
		Short:   "Show the identity and endpoints of a caster",
		Example: fmt.Sprintf("  %[1]s info --api http://127.0.0.1:8080", pather.CommandPath()),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printf, err := getPrintf(flags.format, cmd.OutOrStdout())
			if err != nil {
				return serrors.Wrap("get formatting", err)
			}
			cmd.SilenceUsage = true
			if err := envFlags.LoadExternalVars(); err != nil {
				return err
			}
			var info mgmtapi.Info
			c := newAPIClient(envFlags.API(), flags.timeout)
			if err := c.do(cmd.Context(), http.MethodGet, "/info", nil, &info); err != nil {
				return err
			}
			if flags.format != "human" {
				return encode(flags.format, cmd.OutOrStdout(), info)
			}
			printf("Caster ID:      %d\n", info.CasterID)
			printf("Registration:   %s\n", info.Endpoints.Registration)
			printf("Query:          %s\n", info.Endpoints.Query)
			printf("Client publish: %s\n", info.Endpoints.ClientPublish)
			printf("Proxy publish:  %s\n", info.Endpoints.ProxyPublish)
			printf("Notifications:  %s\n", info.Endpoints.Notifications)
			printf("Key management: %s\n", info.Endpoints.KeyManagement)
			printf("Proxy control:  %s\n", info.Endpoints.ProxyControl)
			return nil
		},
	}
	envFlags.Register(cmd.Flags())
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 5*time.Second, "Timeout")
	cmd.Flags().StringVar(&flags.format, "format", "human", formatUsage)
	return cmd
}

func newProxy(pather CommandPather) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy",
		Short: "Link and unlink federated casters",
		Long: `'proxy' manages the casters whose basestations a caster mirrors.

The remote caster is identified by its query, proxy publish and notification
endpoints. Linking fetches the remote roster before the command returns.`,
		Args: cobra.NoArgs,
	}
	cmd.AddCommand(
		newProxyOp(cmd, "add", http.MethodPost, "Mirror the basestations of a remote caster"),
		newProxyOp(cmd, "remove", http.MethodDelete, "Stop mirroring a remote caster"),
	)
	return cmd
}

func newProxyOp(pather CommandPather, use, method, short string) *cobra.Command {
	var envFlags flag.CasterEnvironment
	var flags struct {
		remote  mgmtapi.Proxy
		timeout time.Duration
	}
	cmd := &cobra.Command{
		Use:   use + " [flags]",
		Short: short,
		Example: fmt.Sprintf(`  %[1]s %[2]s --remote-query tcp://10.0.0.2:6601 \
      --remote-publish tcp://10.0.0.2:6603 --remote-notify tcp://10.0.0.2:6604`,
			pather.CommandPath(), use),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			if err := envFlags.LoadExternalVars(); err != nil {
				return err
			}
			c := newAPIClient(envFlags.API(), flags.timeout)
			if err := c.do(cmd.Context(), method, "/proxy", flags.remote, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Proxy %s: %s\n", use, flags.remote.Query)
			return nil
		},
	}
	envFlags.Register(cmd.Flags())
	cmd.Flags().StringVar(&flags.remote.Query, "remote-query", "", "Query endpoint of the remote caster")
	cmd.Flags().StringVar(&flags.remote.Publish, "remote-publish", "",
		"Proxy publish endpoint of the remote caster")
	cmd.Flags().StringVar(&flags.remote.Notify, "remote-notify", "",
		"Notification endpoint of the remote caster")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "Timeout")
	for _, f := range []string{"remote-query", "remote-publish", "remote-notify"} {
		if err := cmd.MarkFlagRequired(f); err != nil {
			panic(err)
		}
	}
	return cmd
}
