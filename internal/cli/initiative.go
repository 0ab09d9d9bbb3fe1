package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/grinmorio/rolling/internal/rolling/initiative"
)

func newInitiativeCmd(run runner) *cobra.Command {
	var guildID string

	cmd := &cobra.Command{
		Use:     "initiative",
		Aliases: []string{"init"},
		Short:   "Manage a guild's initiative order",
	}
	cmd.PersistentFlags().StringVar(&guildID, "guild", "", "guild ID")
	_ = cmd.MarkPersistentFlagRequired("guild")

	cmd.AddCommand(
		newInitiativeListCmd(run, &guildID),
		newInitiativeSetCmd(run, &guildID),
		newInitiativeRemoveCmd(run, &guildID),
		newInitiativeClearCmd(run, &guildID),
	)
	return cmd
}

func writeEntries(w io.Writer, entries []initiative.Entry) error {
	for i, e := range entries {
		if _, err := fmt.Fprintf(w, "%dº - %s (%d) [%s]\n", i+1, e.Username, e.Value, e.UserID); err != nil {
			return err
		}
	}
	return nil
}

func newInitiativeListCmd(run runner, guildID *string) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the initiative order, highest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(svc Service) error {
				entries, err := svc.ListInitiative(cmd.Context(), *guildID)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), format, entries, func(w io.Writer) error {
					return writeEntries(w, entries)
				})
			})
		},
	}
	addOutputFlag(cmd, &format)
	return cmd
}

func newInitiativeSetCmd(run runner, guildID *string) *cobra.Command {
	var userID, username, format string
	var value int
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set a user's initiative value without rolling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(svc Service) error {
				entries, err := svc.SetInitiative(cmd.Context(), *guildID, userID, username, value)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), format, entries, func(w io.Writer) error {
					return writeEntries(w, entries)
				})
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	cmd.Flags().StringVar(&username, "username", "", "display name")
	cmd.Flags().IntVar(&value, "value", 0, "initiative value")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("value")
	addOutputFlag(cmd, &format)
	return cmd
}

func newInitiativeRemoveCmd(run runner, guildID *string) *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove one user from the initiative order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(svc Service) error {
				if err := svc.RemoveInitiative(cmd.Context(), *guildID, userID); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Utilizador removido da lista de iniciativa.")
				return err
			})
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newInitiativeClearCmd(run runner, guildID *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the initiative order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, func(svc Service) error {
				if err := svc.ClearInitiative(cmd.Context(), *guildID); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Lista de iniciativas limpa.")
				return err
			})
		},
	}
}
