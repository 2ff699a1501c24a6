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
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rtkcaster/caster/pkg/casterclient"
	"github.com/rtkcaster/caster/pkg/log"
	"github.com/rtkcaster/caster/pkg/private/serrors"
	"github.com/rtkcaster/caster/pkg/wire"
	"github.com/rtkcaster/caster/private/app/flag"
)

// Station is the machine readable form of a basestation.
type Station struct {
	CasterID           int64   `json:"caster_id" yaml:"caster_id"`
	StreamID           int64   `json:"stream_id" yaml:"stream_id"`
	Name               string  `json:"name" yaml:"name"`
	Class              string  `json:"class" yaml:"class"`
	Format             string  `json:"format" yaml:"format"`
	Latitude           float64 `json:"latitude" yaml:"latitude"`
	Longitude          float64 `json:"longitude" yaml:"longitude"`
	ExpectedUpdateRate float64 `json:"expected_update_rate" yaml:"expected_update_rate"`
	RealUpdateRate     float64 `json:"real_update_rate" yaml:"real_update_rate"`
	// Uptime in seconds.
	Uptime          int64  `json:"uptime" yaml:"uptime"`
	SourcePublicKey string `json:"source_public_key,omitempty" yaml:"source_public_key,omitempty"`
}

func stationFrom(s *wire.StationInfo) Station {
	st := Station{
		CasterID:           s.CasterID,
		StreamID:           s.StreamID,
		Name:               s.Name,
		Class:              s.Class.String(),
		Format:             s.Format.String(),
		Latitude:           s.Latitude,
		Longitude:          s.Longitude,
		ExpectedUpdateRate: s.ExpectedUpdateRate,
		RealUpdateRate:     s.RealUpdateRate,
		Uptime:             s.Uptime,
	}
	if len(s.SourcePublicKey) > 0 {
		st.SourcePublicKey = hex.EncodeToString(s.SourcePublicKey)
	}
	return st
}

// QueryResult is the machine readable result of the query command.
type QueryResult struct {
	CasterID int64     `json:"caster_id" yaml:"caster_id"`
	Stations []Station `json:"stations" yaml:"stations"`
}

// queryFlags are the filters of the query command. Every set filter must
// match.
type queryFlags struct {
	name      string
	classes   []string
	formats   []string
	streamIDs []int64
	region    string
	minRate   float64
}

func (f *queryFlags) request() (*wire.QueryRequest, error) {
	var q wire.SubQuery
	empty := true
	if f.name != "" {
		rel := wire.NameEqual
		if strings.ContainsAny(f.name, "%_") {
			rel = wire.NameLike
		}
		q.Name = &wire.NameCondition{Relation: rel, Value: f.name}
		empty = false
	}
	for _, c := range f.classes {
		class, err := wire.ParseStationClass(strings.ToUpper(c))
		if err != nil {
			return nil, err
		}
		q.Classes = append(q.Classes, class)
		empty = false
	}
	for _, s := range f.formats {
		format, err := wire.ParseMessageFormat(strings.ToUpper(s))
		if err != nil {
			return nil, err
		}
		q.Formats = append(q.Formats, format)
		empty = false
	}
	if len(f.streamIDs) > 0 {
		q.StreamIDs = f.streamIDs
		empty = false
	}
	if f.region != "" {
		r, err := parseRegion(f.region)
		if err != nil {
			return nil, err
		}
		q.Region = r
		empty = false
	}
	if f.minRate > 0 {
		q.RealUpdateRate = []wire.DoubleCondition{
			{Relation: wire.GreaterOrEqual, Value: f.minRate},
		}
		empty = false
	}
	if empty {
		return &wire.QueryRequest{}, nil
	}
	return &wire.QueryRequest{SubQueries: []wire.SubQuery{q}}, nil
}

// parseRegion parses "<latitude>,<longitude>,<radius in meters>".
func parseRegion(s string) (*wire.CircularRegion, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, serrors.New("region must be latitude,longitude,radius", "region", s)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, serrors.Wrap("parsing region", err, "region", s)
		}
		v[i] = f
	}
	if v[2] <= 0 {
		return nil, serrors.New("region radius must be positive", "radius", v[2])
	}
	return &wire.CircularRegion{Latitude: v[0], Longitude: v[1], Radius: v[2]}, nil
}

func newQuery(pather CommandPather) *cobra.Command {
	var envFlags flag.CasterEnvironment
	var flags struct {
		filter  queryFlags
		timeout time.Duration
		format  string
	}

	var cmd = &cobra.Command{
		Use:     "query [flags]",
		Short:   "List the basestations known to a caster",
		Aliases: []string{"q"},
		Args:    cobra.NoArgs,
		Example: fmt.Sprintf(`  %[1]s query
  %[1]s query --class official --message-format rtcm_v3
  %[1]s query --name 'zurich%%' --format json
  %[1]s query --region 47.37,8.54,25000`, pather.CommandPath()),
		Long: `'query' lists the basestations known to a caster, including the ones it
mirrors from federated casters.

Filters are combined; a station is listed if it matches all of them. A name
containing '%' or '_' is matched as a SQL LIKE pattern.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.filter.request()
			if err != nil {
				return err
			}
			printf, err := getPrintf(flags.format, cmd.OutOrStdout())
			if err != nil {
				return serrors.Wrap("get formatting", err)
			}
			cmd.SilenceUsage = true

			if err := envFlags.LoadExternalVars(); err != nil {
				return err
			}
			endpoint := envFlags.Query()
			log.Debug("Resolved caster environment flags", "query", endpoint)

			reply, err := casterclient.Query(endpoint, req, flags.timeout)
			if err != nil {
				return err
			}
			res := QueryResult{CasterID: reply.CasterID, Stations: []Station{}}
			for _, s := range reply.Stations {
				res.Stations = append(res.Stations, stationFrom(s))
			}

			if flags.format != "human" {
				return encode(flags.format, cmd.OutOrStdout(), res)
			}
			if len(res.Stations) == 0 {
				printf("No basestations known to caster %d\n", res.CasterID)
				return nil
			}
			printf("Basestations known to caster %d\n", res.CasterID)
			renderStations(cmd.OutOrStdout(), res.Stations)
			return nil
		},
	}

	envFlags.Register(cmd.Flags())
	cmd.Flags().StringVar(&flags.filter.name, "name", "", "Informal name or LIKE pattern")
	cmd.Flags().StringSliceVar(&flags.filter.classes, "class", nil,
		"Station classes (official|registered_community|community)")
	cmd.Flags().StringSliceVar(&flags.filter.formats, "message-format", nil,
		"Correction formats (rtcm_v2|rtcm_v3|cmr|cmr_plus|sbas|rtca)")
	cmd.Flags().Int64SliceVar(&flags.filter.streamIDs, "stream", nil, "Stream IDs")
	cmd.Flags().StringVar(&flags.filter.region, "region", "",
		"Circular region as latitude,longitude,radius in meters")
	cmd.Flags().Float64Var(&flags.filter.minRate, "min-rate", 0,
		"Minimum measured update rate in messages per second")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", casterclient.DefaultTimeout, "Timeout")
	cmd.Flags().StringVar(&flags.format, "format", "human", formatUsage)
	return cmd
}

func renderStations(w io.Writer, stations []Station) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader([]string{
		"Caster", "Stream", "Name", "Class", "Format", "Position", "Rate", "Uptime",
	})
	for _, s := range stations {
		table.Append([]string{
			strconv.FormatInt(s.CasterID, 10),
			strconv.FormatInt(s.StreamID, 10),
			s.Name,
			s.Class,
			s.Format,
			fmt.Sprintf("%.5f,%.5f", s.Latitude, s.Longitude),
			fmt.Sprintf("%.2f/%.2f", s.RealUpdateRate, s.ExpectedUpdateRate),
			(time.Duration(s.Uptime) * time.Second).String(),
		})
	}
	table.Render()
}
