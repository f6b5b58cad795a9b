// Package chatcmder provides the chat command, an interactive REPL against a
// running parley server.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/parley/pkg/cliui"
	"github.com/papercomputeco/parley/pkg/client"
	"github.com/papercomputeco/parley/pkg/config"
	"github.com/papercomputeco/parley/pkg/dotdir"
	"github.com/papercomputeco/parley/pkg/utils"
)

var (
	userPrompt  = cliui.UserRoleStyle.Render("you> ")
	modelPrompt = cliui.ModelRoleStyle.Render("model> ")
)

type chatCommander struct {
	target    string
	configDir string
	fresh     bool

	in  io.Reader
	out io.Writer

	// markdown renders replies with glamour; set when stdout is a terminal.
	markdown bool
	now      func() time.Time

	client *client.Client
	ddm    *dotdir.Manager
}

const chatLongDesc string = `Start an interactive chat session with a running parley server.

The session id returned by the server is remembered in .parley/chat.json,
so running "parley chat" again resumes the same conversation on the same
server. Use --new, or type /new during a session, to start over.

Commands inside the REPL:
  /new     start a new session
  /id      print the current session id
  /exit    quit (Ctrl+D also works)

Examples:
  parley chat
  parley chat --target http://localhost:8080 --new`

const chatShortDesc string = "Interactive chat with a parley server"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{
		in:  os.Stdin,
		out: os.Stdout,
		now: time.Now,
		ddm: dotdir.NewManager(),
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
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
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.in = cmd.InOrStdin()
			cmder.out = cmd.OutOrStdout()
			if f, ok := cmder.out.(*os.File); ok {
				cmder.markdown = cliui.IsTerminal(f)
			}
			cmder.client = client.New(cmder.target, nil)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return cmder.run(ctx)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTarget, &cmder.target)
	cmd.Flags().BoolVarP(&cmder.fresh, "new", "n", false, "Start a new session instead of resuming")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	sessionID, err := c.resume()
	if err != nil {
		return err
	}

	fmt.Fprintln(c.out)
	if sessionID != "" {
		fmt.Fprintf(c.out, "  %s Resuming session %s\n",
			cliui.SuccessMark,
			cliui.IDStyle.Render(utils.Truncate(sessionID, 36)),
		)
	} else {
		fmt.Fprintf(c.out, "  %s New conversation\n", cliui.DimStyle.Render("●"))
	}
	fmt.Fprintf(c.out, "  %s %s\n\n", cliui.KeyStyle.Render("Server:"), cliui.ValueStyle.Render(c.target))
	fmt.Fprintf(c.out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(c.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(c.out, userPrompt)
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "/exit":
			fmt.Fprintln(c.out)
			return nil
		case "/id":
			fmt.Fprintf(c.out, "  %s\n\n", cliui.IDStyle.Render(sessionID))
			continue
		case "/new":
			if err := c.ddm.ClearChatState(c.configDir); err != nil {
				return err
			}
			sessionID = ""
			fmt.Fprintf(c.out, "  %s New conversation\n\n", cliui.DimStyle.Render("●"))
			continue
		}

		res, err := c.client.Chat(ctx, sessionID, input)
		if err != nil {
			fmt.Fprintf(c.out, "  %s %v\n\n", cliui.FailMark, err)
			continue
		}

		sessionID = res.SessionID
		if err := c.ddm.SaveChatState(&dotdir.ChatState{
			SessionID: sessionID,
			Target:    c.target,
			UpdatedAt: c.now().UTC(),
		}, c.configDir); err != nil {
			fmt.Fprintf(c.out, "  %s %v\n", cliui.FailMark, err)
		}

		c.printReply(res)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(c.out)
	return nil
}

// resume returns the remembered session id for this target, if any.
func (c *chatCommander) resume() (string, error) {
	if c.fresh {
		return "", c.ddm.ClearChatState(c.configDir)
	}

	state, err := c.ddm.LoadChatState(c.configDir)
	if err != nil {
		return "", fmt.Errorf("loading chat state: %w", err)
	}
	if state == nil || state.Target != c.target {
		return "", nil
	}
	return state.SessionID, nil
}

func (c *chatCommander) printReply(res *client.ChatResult) {
	text := res.Text
	if c.markdown {
		if rendered, err := cliui.RenderMarkdown(text); err == nil {
			text = strings.TrimRight(rendered, "\n")
		}
	}

	fmt.Fprint(c.out, modelPrompt)
	fmt.Fprintln(c.out, text)
	if res.Warning != "" {
		fmt.Fprintf(c.out, "  %s %s\n", cliui.WarnStyle.Render("!"), cliui.DimStyle.Render(res.Warning))
	}
	fmt.Fprintln(c.out)
}
