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
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rtkcaster/caster/pkg/casterclient"
	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
	"github.com/rtkcaster/caster/private/app/flag"
)

// pollInterval bounds how long a receive blocks before the command checks
// for cancellation.
const pollInterval = 200 * time.Millisecond

// Frame is the machine readable form of a received frame. Correction frames
// carry Payload, notifications carry Event and either Station or Reason.
type Frame struct {
	CasterID int64    `json:"caster_id" yaml:"caster_id"`
	StreamID int64    `json:"stream_id" yaml:"stream_id"`
	Payload  string   `json:"payload,omitempty" yaml:"payload,omitempty"`
	Event    string   `json:"event,omitempty" yaml:"event,omitempty"`
	Station  *Station `json:"station,omitempty" yaml:"station,omitempty"`
	Reason   string   `json:"reason,omitempty" yaml:"reason,omitempty"`
}

type streamKey struct {
	casterID int64
	streamID int64
}

// parseStream parses "<caster ID>:<stream ID>".
func parseStream(s string) (streamKey, error) {
	c, st, ok := strings.Cut(s, ":")
	if !ok {
		return streamKey{}, serrors.New("stream must be caster:stream", "stream", s)
	}
	casterID, err := strconv.ParseInt(c, 10, 64)
	if err != nil {
		return streamKey{}, serrors.Wrap("parsing caster ID", err, "stream", s)
	}
	streamID, err := strconv.ParseInt(st, 10, 64)
	if err != nil {
		return streamKey{}, serrors.Wrap("parsing stream ID", err, "stream", s)
	}
	return streamKey{casterID: casterID, streamID: streamID}, nil
}

func toFrame(m casterclient.Message, notifications bool) (Frame, error) {
	f := Frame{CasterID: m.CasterID, StreamID: m.StreamID}
	if !notifications {
		f.Payload = hex.EncodeToString(m.Payload)
		return f, nil
	}
	n, err := m.Notification()
	if err != nil {
		return Frame{}, err
	}
	switch n.Kind {
	case wire.NotificationNewStation:
		s := stationFrom(n.Station)
		f.Event, f.Station = "new_station", &s
	case wire.NotificationRemoved:
		f.Event, f.Reason = "removed", n.Reason.String()
	}
	return f, nil
}

func printFrame(printf func(string, ...any), f Frame) {
	switch f.Event {
	case "":
		printf("caster %d stream %d: %d bytes %s\n",
			f.CasterID, f.StreamID, len(f.Payload)/2, f.Payload)
	case "new_station":
		printf("caster %d stream %d: new station %q %s %s\n",
			f.CasterID, f.StreamID, f.Station.Name, f.Station.Class, f.Station.Format)
	default:
		printf("caster %d stream %d: removed %s\n", f.CasterID, f.StreamID, f.Reason)
	}
}

func newSubscribe(pather CommandPather) *cobra.Command {
	var envFlags flag.CasterEnvironment
	var flags struct {
		streams       []string
		notifications bool
		count         int
		idle          time.Duration
		format        string
	}

	var cmd = &cobra.Command{
		Use:     "subscribe [flags]",
		Short:   "Print correction frames or notifications published by a caster",
		Aliases: []string{"sub"},
		Args:    cobra.NoArgs,
		Example: fmt.Sprintf(`  %[1]s subscribe --stream 1:3
  %[1]s subscribe --status --format json
  %[1]s subscribe --count 10 --idle-timeout 30s`, pather.CommandPath()),
		Long: `'subscribe' prints the frames a caster publishes to its clients.

By default all streams are selected. With --status, the notification channel
is read instead and every frame is decoded as a notification.

The command runs until it is interrupted, --count frames were printed, or no
frame arrived within --idle-timeout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var keys []streamKey
			for _, s := range flags.streams {
				k, err := parseStream(s)
				if err != nil {
					return err
				}
				keys = append(keys, k)
			}
			printf, err := getPrintf(flags.format, cmd.OutOrStdout())
			if err != nil {
				return serrors.Wrap("get formatting", err)
			}
			cmd.SilenceUsage = true

			if err := envFlags.LoadExternalVars(); err != nil {
				return err
			}
			endpoint := envFlags.ClientPublish()
			if flags.notifications {
				endpoint = envFlags.Notifications()
			}
			log.Debug("Resolved caster environment flags", "endpoint", endpoint)

			sub, err := casterclient.NewSubscriber(endpoint, pollInterval)
			if err != nil {
				return err
			}
			defer sub.Close()
			if len(keys) == 0 {
				err = sub.SubscribeAll()
			}
			for _, k := range keys {
				if err != nil {
					break
				}
				err = sub.Subscribe(k.casterID, k.streamID)
			}
			if err != nil {
				return serrors.Wrap("subscribing", err)
			}

			return receive(cmd.Context(), sub, flags.count, flags.idle, func(m casterclient.Message) error {
				f, err := toFrame(m, flags.notifications)
				if err != nil {
					return err
				}
				if flags.format != "human" {
					return encode(flags.format, cmd.OutOrStdout(), f)
				}
				printFrame(printf, f)
				return nil
			})
		},
	}

	envFlags.Register(cmd.Flags())
	cmd.Flags().StringSliceVar(&flags.streams, "stream", nil,
		"Streams to select as caster:stream (default all)")
	cmd.Flags().BoolVar(&flags.notifications, "status", false,
		"Read the status notification channel")
	cmd.Flags().IntVarP(&flags.count, "count", "c", 0,
		"Stop after this many frames (0 means unlimited)")
	cmd.Flags().DurationVar(&flags.idle, "idle-timeout", 0,
		"Fail if no frame arrives for this long (0 means wait forever)")
	cmd.Flags().StringVar(&flags.format, "format", "human", formatUsage)
	return cmd
}

type receiver interface {
	Recv() (casterclient.Message, error)
}

// receive hands frames to handle until ctx is done or count frames were
// handled. It fails if idle is positive and no frame arrives for that long.
func receive(ctx context.Context, r receiver, count int, idle time.Duration,
	handle func(casterclient.Message) error) error {

	last := time.Now()
	for n := 0; count <= 0 || n < count; {
		if ctx.Err() != nil {
			return nil
		}
		m, err := r.Recv()
		switch {
		case errors.Is(err, casterclient.ErrTimeout):
			if idle > 0 && time.Since(last) > idle {
				return serrors.JoinNoStack(casterclient.ErrTimeout, nil, "idle", idle)
			}
			continue
		case err != nil:
			return err
		}
		last = time.Now()
		if err := handle(m); err != nil {
			return err
		}
		n++
	}
	return nil
}
