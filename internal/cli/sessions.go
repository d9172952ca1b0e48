// sessions.go implements the session inspection commands: "sessions",
// "messages" and "delete".
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wirecraft-dev/wirebridge/internal/session"
)

func openStore() (*session.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return session.NewStore(cfg.Store.DBPath())
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		summaries, err := store.ListSessions()
		if err != nil {
			return err
		}
		for _, s := range summaries {
			fmt.Printf("%s  %-9s  %2d msgs  %s  %s\n",
				s.ID, s.Status, s.MessageCount, s.CreatedAt.Local().Format("2006-01-02 15:04:05"), s.Query)
		}
		return nil
	},
}

var messagesCmd = &cobra.Command{
	Use:   "messages <session-id>",
	Short: "Print a session's transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		msgs, err := store.GetMessages(args[0])
		if err != nil {
			return err
		}
		for _, m := range msgs {
			fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("15:04:05"), m.Role, m.Content)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session and its messages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		return store.DeleteSession(args[0])
	},
}
