package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mikeboe/sitechat/pkg/config"
)

func newSettingsCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the chatbot settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := config.LoadSettings(cfg.SettingsFile)
			if err != nil {
				return err
			}
			fmt.Printf("app_title: %s\npersona:   %s\nwelcome:   %s\n", s.AppTitle, s.PersonaName(), s.Welcome)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set-title <title>",
		Short: "Change the app title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := config.NewSettingsStore(cfg.SettingsFile)
			if err != nil {
				return err
			}
			s := store.Get()
			s.AppTitle = strings.Join(args, " ")
			updated, err := store.Update(s)
			if err != nil {
				return err
			}
			fmt.Printf("App title set to %q in %s\n", updated.AppTitle, cfg.SettingsFile)
			return nil
		},
	})

	return cmd
}
