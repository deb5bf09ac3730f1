// Command nostrbird republishes posts from a filtered stream to nostr relays
// as signed text notes, and manages the stream's rules.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/pkg/profile"

	"nostrbird.lol/config"
	"nostrbird.lol/log"
	"nostrbird.lol/lol"
)

type StreamCmd struct{}

type RulesCmd struct{}

type CreateCmd struct {
	Account string `arg:"positional,required" help:"account whose posts the stream should deliver"`
}

type DeleteCmd struct {
	Account string `arg:"positional,required" help:"account to stop following"`
}

type PublishCmd struct {
	Text []string `arg:"positional,required" help:"text of the note"`
}

type EnvCmd struct{}

type HelpCmd struct{}

var args struct {
	Stream  *StreamCmd  `arg:"subcommand:stream" help:"read the filtered stream and publish every post to the relays"`
	Rules   *RulesCmd   `arg:"subcommand:rules" help:"list the stream rules"`
	Create  *CreateCmd  `arg:"subcommand:create" help:"add the rule following an account"`
	Delete  *DeleteCmd  `arg:"subcommand:delete" help:"delete the rule following an account"`
	Publish *PublishCmd `arg:"subcommand:publish" help:"publish one text note to the relays"`
	Env     *EnvCmd     `arg:"subcommand:env" help:"print the configuration as a shell script, secrets redacted"`
	Help    *HelpCmd    `arg:"subcommand:help" help:"print the environment variables that configure nostrbird"`
}

func main() { os.Exit(run()) }

func run() int {
	p := arg.MustParse(&args)
	var err error
	var cfg *config.C
	if cfg, err = config.New(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "ERROR: %s\n\n", err)
		config.PrintHelp(&config.C{}, os.Stderr)
		return 1
	}
	lol.SetLogLevel(cfg.LogLevel)
	if p.Subcommand() == nil {
		p.WriteHelp(os.Stderr)
		return 1
	}
	if cfg.Pprof {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Profile)).Stop()
	}
	switch {
	case args.Env != nil:
		cfg.PrintEnv(os.Stdout)
	case args.Help != nil:
		config.PrintHelp(cfg, os.Stdout)
	case args.Stream != nil:
		err = runStream(cfg)
	case args.Rules != nil:
		err = listRules(cfg)
	case args.Create != nil:
		err = createRule(cfg, args.Create.Account)
	case args.Delete != nil:
		err = deleteRule(cfg, args.Delete.Account)
	case args.Publish != nil:
		err = publishNote(cfg, strings.Join(args.Publish.Text, " "))
	}
	if err != nil {
		log.F.F("%s failed: %v", p.SubcommandNames()[0], err)
		return 1
	}
	return 0
}
