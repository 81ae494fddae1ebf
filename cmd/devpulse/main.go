package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/devpulse/devpulse/internal/config"
	"github.com/devpulse/devpulse/internal/generator"
	"github.com/devpulse/devpulse/internal/logging"
	"github.com/devpulse/devpulse/internal/runner"
	"github.com/devpulse/devpulse/internal/secrets"
	"github.com/devpulse/devpulse/internal/social"
	"github.com/devpulse/devpulse/internal/sources"
)

// The LLM API key is the one fixed-name environment variable; all other
// credentials are indirected through the config file.
const llmKeyEnvVar = "OPENAI_API_KEY"

var (
	configPath string
	dryRun     bool
	checkCreds bool
)

func main() {
	root := &cobra.Command{
		Use:           "devpulse",
		Short:         "Turns recent developer and fitness activity into social posts",
		RunE:          run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.Flags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "generate content but do not post")
	root.Flags().BoolVar(&checkCreds, "check", false, "validate posting credentials and exit")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Local development convenience; absence of a .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		// Same treatment as a missing LLM key: report an empty run
		// before failing.
		fmt.Println(runner.Summary{}.String())
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With("run_id", uuid.NewString())

	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := secrets.NewEnvResolver(logger)

	client := buildTwitterClient(cfg.Posting.Targets.Twitter, resolver, logger)

	if checkCreds {
		if client == nil {
			return fmt.Errorf("twitter target is disabled or credentials are missing")
		}
		if err := client.ValidateCredentials(ctx); err != nil {
			return fmt.Errorf("credential check: %w", err)
		}
		fmt.Println("Twitter credentials are valid.")
		return nil
	}

	apiKey, ok := resolver.Resolve(llmKeyEnvVar)
	if !ok {
		// Nothing can be generated without the key; report an empty
		// run before failing.
		fmt.Println(runner.Summary{}.String())
		return fmt.Errorf("required environment variable %s is not set", llmKeyEnvVar)
	}

	gen := generator.New(apiKey, cfg.LLM.Model, cfg.Persona, logger)

	var publisher runner.Publisher
	if client != nil {
		publisher = social.NewPublisher(client, dryRun, logger)
	}

	bindings := buildBindings(cfg.DataSources, resolver, logger)

	logger.Info("starting run", "sources", len(bindings), "dry_run", dryRun)

	summary := runner.New(cfg, bindings, gen, publisher, logger).Run(ctx)

	fmt.Println(summary.String())
	logger.Info("run finished",
		"fetched", summary.ActivitiesFetched,
		"generated", summary.ContentGenerated,
		"attempted", summary.PostsAttempted,
		"sent", summary.PostsSent)

	return nil
}

// buildBindings resolves credentials for each enabled source and
// constructs its adapter. A source with missing credentials is skipped
// with a warning; it never receives partial credentials.
func buildBindings(ds config.DataSources, resolver secrets.Resolver, logger *slog.Logger) []runner.SourceBinding {
	var bindings []runner.SourceBinding

	if gh := ds.GitHub; gh.Enabled {
		username, okUser := resolver.Resolve(gh.UsernameEnvVar)
		token, okToken := resolver.Resolve(gh.PATEnvVar)
		if okUser && okToken {
			bindings = append(bindings, runner.SourceBinding{
				Key:     "github",
				Adapter: sources.NewGitHubAdapter(username, token, gh.ActivityFormat, logger),
			})
		} else {
			logger.Warn("skipping github source, username or PAT secret missing")
		}
	}

	if gm := ds.Garmin; gm.Enabled {
		username, okUser := resolver.Resolve(gm.UsernameEnvVar)
		password, okPass := resolver.Resolve(gm.PasswordEnvVar)
		if okUser && okPass {
			bindings = append(bindings, runner.SourceBinding{
				Key:     "garmin",
				Adapter: sources.NewGarminAdapter(username, password, gm.ActivityFormat, gm.DailySummary, logger),
			})
		} else {
			logger.Warn("skipping garmin source, username or password secret missing")
		}
	}

	return bindings
}

// buildTwitterClient returns nil when the target is disabled or any
// credential is unresolved.
func buildTwitterClient(target config.TwitterTarget, resolver secrets.Resolver, logger *slog.Logger) *social.Client {
	if !target.Enabled {
		return nil
	}

	creds := social.Credentials{}
	creds.APIKey, _ = resolver.Resolve(target.APIKeyEnvVar)
	creds.APISecret, _ = resolver.Resolve(target.APISecretEnvVar)
	creds.AccessToken, _ = resolver.Resolve(target.AccessTokenEnvVar)
	creds.AccessTokenSecret, _ = resolver.Resolve(target.AccessTokenSecretEnvVar)

	if !creds.Complete() {
		logger.Warn("twitter target enabled but credentials are incomplete, posting disabled")
		return nil
	}

	return social.NewClient(creds, logger)
}
