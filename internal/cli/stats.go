package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"offline-quiz-service/internal/config"
	"offline-quiz-service/internal/domain"
)

// NewStatsCmd prints the configured user's local aggregate and recent results.
func NewStatsCmd(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show local quiz statistics for identity.user_id",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			return runStats(cmd.Context(), cfg, limit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "number of recent results to show")
	return cmd
}

func runStats(ctx context.Context, cfg config.Config, limit int, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Identity.UserID == "" {
		return fmt.Errorf("stats: %w (set identity.user_id)", domain.ErrNotAuthenticated)
	}
	deps, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	summary, err := deps.service.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "quizzes: %d\nbest score: %d\ncorrect: %d/%d (%.1f%%)\naverage: %.1f%%\n",
		summary.TotalQuizzes, summary.BestScore,
		summary.TotalCorrect, summary.TotalAnswered, summary.OverallPercentage(),
		summary.AveragePercentage,
	)

	history, err := deps.service.History(ctx, limit)
	if err != nil {
		return err
	}
	for _, r := range history {
		fmt.Fprintf(out, "%s  %-12s %5d pts  %d/%d  %s\n",
			r.Timestamp.Format("2006-01-02 15:04"), r.Category, r.Score,
			r.CorrectAnswers, r.TotalQuestions, domain.FormatElapsed(r.TimeTakenSeconds),
		)
	}
	return nil
}
