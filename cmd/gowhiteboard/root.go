/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"github.com/spf13/cobra"

	"gowhiteboard/internal/version"
)

// needsStorage marks commands whose PersistentPreRunE opens the repository.
const needsStorage = "storage"

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "gowhiteboard",
		Short:         "Whiteboards with sticky notes, text boxes and mind maps",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := cmd.Annotations[needsStorage]; !ok {
				a.loadConfig()
				return nil
			}
			return a.setup(cmd.Context())
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetVersionTemplate("gowhiteboard {{.Version}}\n")

	root.AddCommand(
		versionCmd(a),
		newCmd(a),
		listCmd(a),
		showCmd(a),
		renameCmd(a),
		rmCmd(a),
		importCmd(a),
		exportCmd(a),
		searchCmd(a),
		shellCmd(a),
		tuiCmd(a),
		uiCmd(a),
		configCmd(a),
	)
	return root
}

func withStorage(c *cobra.Command) *cobra.Command {
	if c.Annotations == nil {
		c.Annotations = map[string]string{}
	}
	c.Annotations[needsStorage] = "true"
	return c
}

func versionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("gowhiteboard %s\n", version.String())
		},
	}
}
