package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newStatsCmd(run runner) *cobra.Command {
	var guildID, userID, format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show a user's average face per die and roll type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(svc Service) error {
				reports, err := svc.Stats(cmd.Context(), guildID, userID)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), format, reports, func(w io.Writer) error {
					for _, r := range reports {
						if _, err := fmt.Fprintf(w, "%s (%d rolagens)\n", r.RollType, r.TotalRolls); err != nil {
							return err
						}
						for _, d := range r.PerDie {
							if _, err := fmt.Fprintf(w, "  %-6s média %6.2f  (%d)\n", d.Die, d.Average, d.Count); err != nil {
								return err
							}
						}
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&guildID, "guild", "", "guild ID")
	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	_ = cmd.MarkFlagRequired("guild")
	_ = cmd.MarkFlagRequired("user")
	addOutputFlag(cmd, &format)
	return cmd
}
