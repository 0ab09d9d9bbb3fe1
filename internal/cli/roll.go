package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grinmorio/rolling/internal/rolling/dice"
)

type rollView struct {
	Expression string   `json:"expressao" yaml:"expressao"`
	Total      any      `json:"total" yaml:"total"`
	Details    []string `json:"detalhes" yaml:"detalhes"`
}

func newRollCmd(run runner) *cobra.Command {
	var guildID, userID, username, format string

	cmd := &cobra.Command{
		Use:   "roll <expression>",
		Short: "Roll a dice expression and record it in history",
		Example: `  grinctl roll 1d20+5 --guild 123
  grinctl roll "vantagem 1d20" --guild 123 --user 456 -o json
  grinctl roll 3#1d20+4 --guild 123`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expression := strings.Join(args, " ")
			return run(cmd, func(svc Service) error {
				out, err := svc.RollExpression(cmd.Context(), expression, userID, guildID, username)
				if err != nil {
					return err
				}
				view := rollView{Expression: strings.ToLower(strings.TrimSpace(expression)), Total: out.Total, Details: out.Details}
				if out.IsMulti() {
					view.Total = dice.MultiTotalLabel
				}
				return render(cmd.OutOrStdout(), format, view, func(w io.Writer) error {
					if _, err := fmt.Fprintf(w, "Resultado Final: %s\n", out.DisplayTotal()); err != nil {
						return err
					}
					for _, d := range out.Details {
						if _, err := fmt.Fprintln(w, d); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}

	cmd.Flags().StringVar(&guildID, "guild", "", "guild ID the roll belongs to")
	cmd.Flags().StringVar(&userID, "user", "grinctl", "user ID the roll belongs to")
	cmd.Flags().StringVar(&username, "username", "grinctl", "display name recorded with the roll")
	_ = cmd.MarkFlagRequired("guild")
	addOutputFlag(cmd, &format)
	return cmd
}
