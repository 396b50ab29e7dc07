package main

import (
	"fmt"
	"strings"

	"github.com/alvarorichard/anistream/internal/cipher"
	"github.com/alvarorichard/anistream/internal/models"
	"github.com/alvarorichard/anistream/internal/resolver"
	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var provider string
	var order []string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search every provider in parallel",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.resolver.Search(cmd.Context(), resolver.SearchQuery{
				Query:    strings.Join(args, " "),
				Provider: provider,
				Order:    order,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "search only this provider")
	cmd.Flags().StringSliceVar(&order, "providers", nil, "provider priority, comma separated")
	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "info <id>",
		Short: "Show details and episode numbers of a show",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := a.resolver.Info(cmd.Context(), args[0], provider)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), details)
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider that issued the id")
	return cmd
}

func newSourcesCmd(a *app) *cobra.Command {
	var provider, mode, server string
	cmd := &cobra.Command{
		Use:   "sources <id> <episode>",
		Short: "Resolve playable streams of an episode",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := models.ParseMode(mode)
			if err != nil {
				return err
			}
			res, err := a.resolver.Sources(cmd.Context(), resolver.SourceQuery{
				ID:       args[0],
				Episode:  args[1],
				Mode:     m,
				ServerID: server,
				Provider: provider,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "provider that issued the id")
	cmd.Flags().StringVarP(&mode, "mode", "m", "sub", "audio track: sub, dub or raw")
	cmd.Flags().StringVar(&server, "server", "", "server id from the servers endpoint")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>",
		Short: "Decode an obfuscated AllAnime source url",
		Args:  cobra.ExactArgs(1),
		// Tokens start with "--".
		DisableFlagParsing: true,
		// Needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			token, _ := cipher.Strip(strings.TrimSpace(args[0]))
			_, err := fmt.Fprintln(cmd.OutOrStdout(), cipher.Decode(token))
			return err
		},
	}
}
