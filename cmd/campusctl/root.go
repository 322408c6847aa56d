package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"campusfeed/pkg/client"

	"github.com/spf13/cobra"
)

type app struct {
	serverURL   string
	sessionPath string
	api         *client.Client
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".campusctl.yaml"
	}
	return filepath.Join(dir, "campusctl", "session.yaml")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "campusctl",
		Short:         "Browse the campus feed and chat from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			store, err := client.NewFileStore(a.sessionPath)
			if err != nil {
				return err
			}
			a.api = client.New(a.serverURL, client.WithSessionStore(store))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.serverURL, "server", envOr("CAMPUSCTL_SERVER", "http://localhost:3000"), "API base URL")
	root.PersistentFlags().StringVar(&a.sessionPath, "session", envOr("CAMPUSCTL_SESSION", defaultSessionPath()), "Session file")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.feedCmd(),
		a.showCmd(),
		a.postCmd(),
		a.likeCmd(),
		a.commentCmd(),
		a.chatsCmd(),
		a.chatCmd(),
		a.sendCmd(),
		a.readCmd(),
		a.watchCmd(),
	)
	return root
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(id), nil
}

// explain turns an expired session into a hint to log in again.
func explain(err error) error {
	if errors.Is(err, client.ErrSessionExpired) {
		return errors.New("not logged in or session expired: run `campusctl login`")
	}
	return err
}
