package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikeboe/sitechat/pkg/chat"
	"github.com/mikeboe/sitechat/pkg/config"
)

func newResponder(ctx context.Context, cfg *config.Config) (*chat.Responder, *config.Settings, *backend, error) {
	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := openBackend(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	generator, err := chat.NewGeneratorFromConfig(ctx, cfg)
	if err != nil {
		b.Close()
		return nil, nil, nil, err
	}

	responder := chat.NewResponder(b.embedder, b.store, generator,
		chat.WithTopK(cfg.TopK),
		chat.WithPersona(settings.PersonaName),
	)
	return responder, &settings, b, nil
}

func newAskCmd(cfg *config.Config) *cobra.Command {
	var showSources bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question from the indexed website",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			responder, _, b, err := newResponder(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			answer, err := responder.Answer(cmd.Context(), nil, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(answer.Text)
			if showSources {
				printSources(answer)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Print the pages the answer is based on")
	return cmd
}

func printSources(answer *chat.Answer) {
	seen := make(map[string]bool)
	fmt.Println("\nSources:")
	for _, m := range answer.Sources {
		if seen[m.Metadata.URL] {
			continue
		}
		seen[m.Metadata.URL] = true
		fmt.Printf("  - %s (%.3f)\n", m.Metadata.URL, m.Score)
	}
}

func newChatCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation about the indexed website",
		RunE: func(cmd *cobra.Command, args []string) error {
			responder, settings, b, err := newResponder(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			session := chat.NewSession(responder)
			fmt.Printf("%s\n%s\n(type 'exit' to quit, 'reset' to start over)\n\n", settings.AppTitle, settings.Welcome)

			reader := bufio.NewReader(os.Stdin)
			for {
				fmt.Print("> ")
				input, err := reader.ReadString('\n')
				question := strings.TrimSpace(input)
				if err != nil && question == "" {
					// EOF
					fmt.Println()
					return nil
				}

				switch strings.ToLower(question) {
				case "":
					continue
				case "exit", "quit":
					return nil
				case "reset":
					session.Reset()
					fmt.Println("Conversation cleared.")
					continue
				}

				reply, err := session.Ask(cmd.Context(), question)
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					fmt.Printf("Error: %v\n\n", err)
					continue
				}
				fmt.Printf("\n%s\n\n", reply)
			}
		},
	}
}
