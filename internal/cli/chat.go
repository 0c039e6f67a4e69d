package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := buildStack(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Println("Safar assistant. Type a message, or /quit to exit.")
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return scanner.Err()
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if line == "/quit" || line == "/exit" {
					return nil
				}

				reply := st.orch.Run(ctx, userID, line)
				fmt.Println(reply.Text)
				if len(reply.ToolsUsed) > 0 {
					log.Debug().Strs("tools", reply.ToolsUsed).Msg("tools used")
				}
				if ctx.Err() != nil {
					return nil
				}
			}
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "user ID for the conversation")

	return cmd
}
