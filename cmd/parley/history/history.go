// Package historycmder provides the history command which prints the
// recorded snapshots of a conversation.
package historycmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/api"
	"github.com/papercomputeco/parley/pkg/cliui"
	"github.com/papercomputeco/parley/pkg/client"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/dotdir"
	"github.com/papercomputeco/parley/pkg/transcript"
)

type historyCommander struct {
	target    string
	configDir string
	latest    bool
	jsonOut   bool
}

const historyLongDesc string = `Show the recorded snapshots of a conversation.

Each chat cycle records the full transcript, so a conversation has one
snapshot per exchange, oldest first. With no argument the session
remembered by "parley chat" is shown.

Examples:
  parley history 3f0c9a1e-8d7b-4b4e-9a55-0d6f2c1b7e21
  parley history --latest
  parley history <id> --json`

const historyShortDesc string = "Show recorded snapshots of a conversation"

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history [conversation-id]",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("target") {
				cmder.target = cfg.Client.Target
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), id)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	cmd.Flags().BoolVar(&cmder.latest, "latest", false, "Only show the newest snapshot")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print the raw JSON response")

	return cmd
}

func (c *historyCommander) run(ctx context.Context, out io.Writer, id string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if id == "" {
		state, err := dotdir.NewManager().LoadChatState(c.configDir)
		if err != nil {
			return fmt.Errorf("loading chat state: %w", err)
		}
		if state == nil || state.SessionID == "" {
			return errors.New("no conversation id given and no remembered chat session")
		}
		id = state.SessionID
	}

	cl := client.New(c.target, nil)

	var records []api.RecordResponse
	if c.latest {
		rec, err := cl.Latest(ctx, id)
		if err != nil {
			return err
		}
		records = []api.RecordResponse{*rec}
	} else {
		hist, err := cl.History(ctx, id)
		if err != nil {
			return err
		}
		records = hist.Records
	}

	if c.jsonOut {
		return writeJSON(out, records)
	}

	fmt.Fprintf(out, "\n  %s %s  %s\n\n",
		cliui.KeyStyle.Render("Conversation:"),
		cliui.IDStyle.Render(id),
		cliui.DimStyle.Render(fmt.Sprintf("(%d snapshots)", len(records))),
	)

	for i, rec := range records {
		fmt.Fprintf(out, "  %s %s\n",
			cliui.StepStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.DimStyle.Render(rec.Timestamp),
		)
		for _, turn := range rec.Turns {
			style := cliui.UserRoleStyle
			if turn.Role == transcript.RoleModel {
				style = cliui.ModelRoleStyle
			}
			fmt.Fprintf(out, "    %s %s\n", style.Render(string(turn.Role)+":"), turn.Message)
		}
		fmt.Fprintln(out)
	}

	return nil
}
