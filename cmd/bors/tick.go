/*
Copyright 2026 The Bors Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"time"

	"github.com/spf13/cobra"
)

// gracefulShutdownTimeout bounds how long serve waits for the HTTP
// servers to drain in-flight requests before exiting.
const gracefulShutdownTimeout = 10 * time.Second

func newTickCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "run exactly one tick over every configured repository and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := buildDeployment(ctx, *configPath)
			if err != nil {
				return err
			}
			defer d.closeStore()

			return d.engine.Tick(ctx)
		},
	}
}
