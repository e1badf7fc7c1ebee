package cli

import (
	"fmt"

	"bloom-client/internal/app"
	"bloom-client/internal/domain"
	"github.com/spf13/cobra"
)

func NewSurveyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "survey",
		Short: "Answer survey questions in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.clientEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			ctrl := app.NewSurveyController(env.client, env.sess, env.log)
			return newTerminal(cmd.InOrStdin(), cmd.OutOrStdout()).run(cmd.Context(), ctrl)
		},
	}
}

func NewOverviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Show progress and the self-analysis aggregate",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.clientEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			ctrl := app.NewSurveyController(env.client, env.sess, env.log)
			if err := ctrl.Initialize(cmd.Context()); err != nil {
				return err
			}
			s := ctrl.Snapshot()
			if s.Overview == nil {
				return fmt.Errorf("no overview available")
			}
			printOverview(cmd.OutOrStdout(), *s.Overview)
			return nil
		},
	}
}

func NewRecalcCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Ask the backend to recompute the self-analysis",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.clientEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			if env.sess.AccessToken(cmd.Context()) == "" {
				return domain.ErrLoginRequired
			}
			ctrl := app.NewSurveyController(env.client, env.sess, env.log)
			if err := ctrl.Recalculate(cmd.Context()); err != nil {
				return err
			}
			printOverview(cmd.OutOrStdout(), *ctrl.Snapshot().Overview)
			return nil
		},
	}
}
