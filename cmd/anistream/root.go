package main

import (
	"encoding/json"
	"io"

	"github.com/alvarorichard/anistream/internal/api"
	"github.com/alvarorichard/anistream/internal/config"
	"github.com/alvarorichard/anistream/internal/resolver"
	"github.com/alvarorichard/anistream/internal/scraper"
	"github.com/alvarorichard/anistream/internal/util"
	"github.com/alvarorichard/anistream/internal/version"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// app is what every subcommand needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	resolver *resolver.Resolver
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var envFile string

	root := &cobra.Command{
		Use:           "anistream",
		Short:         "Multi-provider anime stream resolver",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var files []string
			if envFile != "" {
				files = append(files, envFile)
			}
			cfg, err := config.Load(cmd.Flags(), files...)
			if err != nil {
				return err
			}
			util.InitLogger(cfg.Debug)
			return a.init(cfg)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")

	flags := root.PersistentFlags()
	flags.Bool("debug", false, "enable debug logging")
	flags.StringVar(&envFile, "env-file", "", "load environment from this file instead of .env")
	flags.String("metadata-source", "anilist", "catalog used for numeric ids (anilist, jikan)")
	flags.Duration("search-timeout", 0, "per-provider timeout of a parallel search")
	flags.Duration("resolve-deadline", 0, "overall deadline of one fallback chain")
	flags.Duration("upstream-timeout", 0, "timeout of one upstream request")
	flags.Bool("tls-fingerprint", false, "scrape with a browser TLS fingerprint")

	root.AddCommand(
		newServeCmd(a),
		newSearchCmd(a),
		newInfoCmd(a),
		newSourcesCmd(a),
		newDecodeCmd(),
	)
	return root
}

// init wires the providers, the title lookup and the resolver from cfg.
func (a *app) init(cfg *config.Config) error {
	a.cfg = cfg

	registry := scraper.NewDefaultRegistry(scraper.Config{
		Client: util.NewHTTPClient(util.ClientOptions{
			Timeout:     cfg.UpstreamTimeout,
			Fingerprint: cfg.TLSFingerprint,
			Cookies:     true,
		}),
		AllAnimeAPI:  cfg.AllAnimeAPI,
		HiAnimeBase:  cfg.HiAnimeBase,
		AniWatchBase: cfg.AniWatchBase,
		AnikaiBase:   cfg.AnikaiBase,
	})

	lookup, err := api.New(cfg.MetadataSource, api.Options{
		Client:            util.NewHTTPClient(util.ClientOptions{Timeout: cfg.UpstreamTimeout}),
		RequestsPerSecond: cfg.MetadataRPS,
	})
	if err != nil {
		return errors.Wrap(err, "title lookup")
	}
	titles := api.NewCachedLookup(lookup, cfg.TitleCacheTTL, cfg.TitleCacheSize)

	a.resolver = resolver.New(registry, titles, resolver.Options{
		SearchTimeout: cfg.SearchTimeout,
		SearchLimit:   cfg.SearchLimit,
		Deadline:      cfg.ResolveDeadline,
	})
	util.Debug("Resolver ready", "providers", registry.Names(), "metadata", titles.Name())
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
