package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anfragment/zenfilter/internal/cfg"
	"github.com/anfragment/zenfilter/internal/engine"
	"github.com/anfragment/zenfilter/internal/filterlist"
	"github.com/anfragment/zenfilter/internal/logger"
)

var (
	cfgFile    string
	extraLists []string
	printCSS   bool
	config     *cfg.Config
	logCloser  io.Closer
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "zenfilter",
	Short: "Match URLs against ad-blocking filter lists",
	Long: `zenfilter compiles Adblock Plus, uBlock Origin and AdGuard filter lists and
reports whether requests are blocked and which cosmetic rules apply to a page.`,
	SilenceUsage: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

var checkCmd = &cobra.Command{
	Use:   "check URL",
	Short: "Check whether a request is blocked",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

var cosmeticCmd = &cobra.Command{
	Use:   "cosmetic URL",
	Short: "Print the cosmetic resources of a page",
	Args:  cobra.ExactArgs(1),
	RunE:  runCosmetic,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print statistics of the loaded filter lists",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: config.toml in the user config directory)")
	rootCmd.PersistentFlags().StringSliceVarP(&extraLists, "list", "l", nil, "additional filter list file, may be repeated")

	checkCmd.Flags().String("source", "", "URL of the page that issued the request")
	checkCmd.Flags().String("type", "", "resource type, e.g. script, image or document")

	cosmeticCmd.Flags().BoolVar(&printCSS, "css", false, "print the stylesheet instead of the selector list")

	rootCmd.AddCommand(checkCmd, cosmeticCmd, statsCmd, initCmd)
}

// setup reads the config and directs the log to its file.
func setup() error {
	c, err := cfg.Load(cfgFile)
	if err != nil {
		return err
	}
	config = c

	closer, err := logger.SetupLogger(c.Logger())
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	logCloser = closer

	if c.File() != "" {
		log.Printf("using config %q", c.File())
	}
	return nil
}

// buildEngine loads every enabled list and the lists given with --list.
func buildEngine(opts ...engine.Option) (*engine.Engine, error) {
	if err := setup(); err != nil {
		return nil, err
	}

	lists := config.EnabledLists()
	for _, path := range extraLists {
		lists = append(lists, cfg.FilterList{Name: path, Path: path, Enabled: true})
	}
	if len(lists) == 0 {
		return nil, fmt.Errorf("no enabled filter lists found in config")
	}

	e := engine.New(opts...)
	for _, list := range lists {
		if err := loadList(e, list); err != nil {
			return nil, err
		}
	}
	if err := e.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize: %w", err)
	}
	return e, nil
}

func loadList(e *engine.Engine, list cfg.FilterList) error {
	f, err := os.Open(list.Path)
	if err != nil {
		return fmt.Errorf("open list %q: %w", list.Name, err)
	}
	defer f.Close()

	if _, err := e.LoadNamed(list.Name, f); err != nil {
		return err
	}
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	resourceType, _ := cmd.Flags().GetString("type")

	// Cosmetic rules play no part in network matching.
	e, err := buildEngine(engine.WithoutCosmetic())
	if err != nil {
		return err
	}

	res, err := e.CheckNetworkRequest(args[0], source, resourceType)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case res.Blocked():
		fmt.Fprintln(out, "blocked")
		fmt.Fprintf(out, "  filter: %s\n", res.Filter.RawRule)
		if res.Important {
			fmt.Fprintln(out, "  important: exceptions ignored")
		}
	case res.Matched:
		fmt.Fprintln(out, "allowed")
		fmt.Fprintf(out, "  filter: %s\n", res.Filter.RawRule)
		fmt.Fprintf(out, "  exception: %s\n", res.Exception.RawRule)
	default:
		fmt.Fprintln(out, "allowed")
	}
	return nil
}

func runCosmetic(cmd *cobra.Command, args []string) error {
	e, err := buildEngine()
	if err != nil {
		return err
	}

	res, err := e.URLCosmeticResources(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if res.IsEmpty() {
		fmt.Fprintln(out, "no cosmetic resources")
		return nil
	}
	if res.Generichide {
		fmt.Fprintln(out, "generichide: generic rules suppressed")
	}

	if printCSS {
		if css := res.CSS(); css != "" {
			fmt.Fprintln(out, css)
		}
	} else {
		if len(res.HideSelectors) > 0 {
			fmt.Fprintf(out, "hide (%d):\n", len(res.HideSelectors))
			for _, sel := range res.HideSelectors {
				fmt.Fprintf(out, "  %s\n", sel)
			}
		}
		if len(res.StyleSelectors) > 0 {
			selectors := make([]string, 0, len(res.StyleSelectors))
			for sel := range res.StyleSelectors {
				selectors = append(selectors, sel)
			}
			sort.Strings(selectors)
			fmt.Fprintf(out, "style (%d):\n", len(selectors))
			for _, sel := range selectors {
				fmt.Fprintf(out, "  %s { %s }\n", sel, strings.Join(res.StyleSelectors[sel], "; "))
			}
		}
		if len(res.Exceptions) > 0 {
			fmt.Fprintf(out, "exceptions (%d):\n", len(res.Exceptions))
			for _, exc := range res.Exceptions {
				fmt.Fprintf(out, "  %s\n", exc)
			}
		}
	}

	if res.InjectedScript != "" {
		fmt.Fprintln(out, "script:")
		fmt.Fprintln(out, res.InjectedScript)
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	e, err := buildEngine()
	if err != nil {
		return err
	}

	s := e.Stats()
	out := cmd.OutOrStdout()
	for _, source := range s.Sources {
		printSourceStats(out, source.Name, source.Stats)
	}
	if len(s.Sources) > 1 {
		printSourceStats(out, "total", s.Total)
	}

	fmt.Fprintf(out, "network: %d rules, %d exceptions, %d generichide, %d badfiltered\n",
		s.Network.Blocks, s.Network.Exceptions, s.Network.GenericHide, s.Network.BadFiltered)
	fmt.Fprintf(out, "index: %d buckets, %d rules in catch-all\n", s.Network.Buckets, s.Network.CatchAll)
	fmt.Fprintf(out, "cosmetic: %d rules, %d exceptions, %d scriptlets\n",
		s.CosmeticRules, s.CosmeticExceptions, s.Scriptlets)
	return nil
}

func printSourceStats(out io.Writer, name string, s filterlist.Stats) {
	fmt.Fprintf(out, "%s:\n", name)
	if s.Info.Title != "" {
		fmt.Fprintf(out, "  title: %s\n", s.Info.Title)
	}
	if s.Info.Version != "" {
		fmt.Fprintf(out, "  version: %s\n", s.Info.Version)
	}
	if s.Info.Expires > 0 {
		fmt.Fprintf(out, "  expires: %s\n", s.Info.Expires)
	}
	rules, exceptions := s.Rules()
	fmt.Fprintf(out, "  lines: %d (%d blank, %d comments)\n", s.Total, s.Blank, s.Comments)
	fmt.Fprintf(out, "  rules: %d, exceptions: %d, ignored hosts: %d\n", rules, exceptions, s.IgnoredHosts)
	if s.Skipped == 0 {
		return
	}
	fmt.Fprintf(out, "  skipped: %d\n", s.Skipped)
	reasons := make([]string, 0, len(s.SkipReasons))
	for reason := range s.SkipReasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(out, "    %s: %d\n", reason, s.SkipReasons[reason])
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		var err error
		path, err = cfg.DefaultPath()
		if err != nil {
			return err
		}
	}

	if err := cfg.WriteDefault(path); err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
	return nil
}
