// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"log/slog"
	"os"

	"github.com/blinklabs-io/tally/internal/node"
	"github.com/spf13/cobra"
)

func proposalsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "Print stored proposals as JSON without starting the node",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := configFromCommand(cmd)
			// Keep stdout for the JSON document
			logLevel := slog.LevelWarn
			if globalFlags.debug || cfg.Debug {
				logLevel = slog.LevelDebug
			}
			logger := slog.New(
				slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
					Level: logLevel,
				}),
			)
			if err := node.Dump(cfg, logger, os.Stdout); err != nil {
				logger.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	return cmd
}
