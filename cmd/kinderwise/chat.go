package main

import (
	"context"
	"fmt"
	"strings"

	"kinderwise/internal/chat"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask a question against the article library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var completer chat.Completer
		if cfg.Chat.LLMEnabled() {
			completer = chat.NewOpenAIClient(cfg.Chat)
		}

		reply, err := chat.NewService(st, completer, logger).Ask(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}

		fmt.Println(reply.Answer)
		if len(reply.Related) > 0 {
			fmt.Printf("\nRelated: %s\n", strings.Join(reply.Related, ", "))
		}
		return nil
	},
}
