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
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gowhiteboard/internal/config"
)

func configCmd(a *app) *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the configuration",
	}
	c.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				p, err := config.ConfigPath()
				if err != nil {
					return err
				}
				cmd.Println(p)
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Long:  "Print the configuration after defaults and environment overrides. Overridden keys are listed last.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				data, err := yaml.Marshal(a.cfg)
				if err != nil {
					return err
				}
				cmd.Print(string(data))
				for _, key := range config.Keys() {
					if env, ok := config.EnvOverrideFor(key); ok {
						cmd.Printf("# %s overridden by %s\n", key, env)
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the effective configuration to the config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if a.cfgPath == "" {
					return errors.New("config path is unknown")
				}
				if _, err := os.Stat(a.cfgPath); err == nil {
					return fmt.Errorf("%s already exists", a.cfgPath)
				}
				if err := config.SaveTo(a.cfgPath, a.cfg); err != nil {
					return err
				}
				cmd.Println(a.cfgPath)
				return nil
			},
		},
		&cobra.Command{
			Use:   "set-password",
			Short: "Store the PostgreSQL password in the OS keyring (read from stdin)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				cmd.Print("password: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				pw := strings.TrimRight(line, "\r\n")
				if pw == "" {
					return errors.New("empty password")
				}
				return config.Save(a.cfg, pw)
			},
		},
		&cobra.Command{
			Use:   "forget-password",
			Short: "Remove the PostgreSQL password from the OS keyring",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return config.ForgetPostgresPassword()
			},
		},
	)
	return c
}
