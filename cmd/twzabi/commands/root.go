/** Copyright 2020-2023 Alibaba Group Holding Limited.

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

// Package commands implements the twzabi command-line tool.
package commands

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/twizzler/rt-abi-go/pkg/common"
	"github.com/twizzler/rt-abi-go/pkg/common/log"
)

var rootLong = strings.TrimSpace(`
twzabi is a companion tool for the twizzler runtime ABI. It decodes and
encodes packed error words, converts object IDs between their textual
forms, and loads object images into an in-process runtime to inspect
their metadata and foreign object tables.`)

// options are shared by every subcommand.
type options struct {
	viper      *viper.Viper
	configPath string
	format     string
	config     common.Config
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{viper: common.NewViper()}

	cmd := &cobra.Command{
		Use:           "twzabi [command]",
		Version:       common.TWZ_ABI_VERSION_STRING,
		Short:         "twzabi inspects twizzler runtime ABI values",
		Long:          rootLong,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.LoadConfig(opts.viper, opts.configPath)
			if err != nil {
				return err
			}
			opts.config = cfg
			log.SetLogLevel(cfg.LogLevel)
			return nil
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path of a config file (yaml, json or toml)")
	flags.StringVarP(&opts.format, "output", "o", "table", "output format: "+strings.Join(ValidOutputFormats, ", "))
	if err := common.BindFlags(opts.viper, flags); err != nil {
		log.Fatal(err, "failed to bind flags")
	}

	cmd.AddCommand(newErrcodeCmd(opts))
	cmd.AddCommand(newObjIDCmd(opts))
	cmd.AddCommand(newInspectCmd(opts))
	return cmd
}

func (o *options) output(cmd *cobra.Command) (*Output, error) {
	return NewOutput(cmd.OutOrStdout(), o.format)
}
