package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/catherio/gym-http-api/internal/api"
	"github.com/catherio/gym-http-api/internal/client"
	"github.com/catherio/gym-http-api/internal/observability"
	"github.com/catherio/gym-http-api/internal/spaces"
)

var opts struct {
	server     string
	envID      string
	episodes   int
	maxSteps   int
	monitorDir string
	upload     bool
	apiKey     string
}

func main() {
	observability.InitLogger("gymagent")

	rootCmd := &cobra.Command{
		Use:   "gymagent",
		Short: "Random agent that exercises a gym HTTP server.",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run random episodes against an environment",
		RunE:  runAgent,
	}
	runCmd.Flags().StringVar(&opts.server, "server", "http://127.0.0.1:5000", "gym server base url")
	runCmd.Flags().StringVar(&opts.envID, "env", "CartPole-v0", "environment id")
	runCmd.Flags().IntVar(&opts.episodes, "episodes", 10, "episodes to run")
	runCmd.Flags().IntVar(&opts.maxSteps, "max-steps", 200, "step cap per episode")
	runCmd.Flags().StringVar(&opts.monitorDir, "monitor-dir", "", "record training data into this directory")
	runCmd.Flags().BoolVar(&opts.upload, "upload", false, "upload recorded data when done")
	runCmd.Flags().StringVar(&opts.apiKey, "api-key", "", "collaborator api key (falls back to OPENAI_GYM_API_KEY)")

	for _, envFile := range []string{".env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	rootCmd.AddCommand(runCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := client.New(opts.server)
	if err != nil {
		return err
	}

	id, err := c.Create(ctx, opts.envID)
	if err != nil {
		return fmt.Errorf("create environment: %w", err)
	}
	log.Info().Str("instance_id", id).Str("env_id", opts.envID).Msg("environment created")

	space, err := c.ActionSpace(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch action space: %w", err)
	}

	if opts.monitorDir != "" {
		if err := c.StartMonitor(ctx, id, opts.monitorDir, true, false); err != nil {
			return fmt.Errorf("start monitor: %w", err)
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for ep := 0; ep < opts.episodes; ep++ {
		if ctx.Err() != nil {
			break
		}
		total, steps, err := runEpisode(ctx, c, id, space, rng)
		if err != nil {
			return err
		}
		log.Info().
			Int("episode", ep).
			Int("steps", steps).
			Float64("reward", total).
			Msg("episode finished")
	}

	if opts.monitorDir != "" {
		if err := c.CloseMonitor(ctx, id); err != nil {
			return fmt.Errorf("close monitor: %w", err)
		}
		if opts.upload {
			err := c.Upload(ctx, api.UploadRequest{
				TrainingDir: opts.monitorDir,
				APIKey:      opts.apiKey,
			})
			if err != nil {
				return fmt.Errorf("upload training data: %w", err)
			}
			log.Info().Str("dir", opts.monitorDir).Msg("training data uploaded")
		}
	}
	return nil
}

func runEpisode(ctx context.Context, c *client.Client, id string, space spaces.Descriptor, rng *rand.Rand) (float64, int, error) {
	if _, err := c.Reset(ctx, id); err != nil {
		return 0, 0, fmt.Errorf("reset: %w", err)
	}

	var total float64
	for step := 0; step < opts.maxSteps; step++ {
		action, err := space.Sample(rng)
		if err != nil {
			return total, step, fmt.Errorf("sample action: %w", err)
		}
		outcome, err := c.Step(ctx, id, action, false)
		if err != nil {
			return total, step, fmt.Errorf("step: %w", err)
		}
		total += outcome.Reward
		if outcome.Done {
			return total, step + 1, nil
		}
	}
	return total, opts.maxSteps, nil
}
