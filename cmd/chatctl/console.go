package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"sulestate/internal/client"
	"sulestate/internal/domain/entity"
)

func newConsoleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Admin console commands",
	}
	cmd.AddCommand(
		newConsoleListCmd(),
		newConsoleShowCmd(),
		newConsoleReplyCmd(),
		newConsoleDeleteCmd(),
		newConsoleStatusCmd(),
		newConsoleWatchCmd(),
	)
	return cmd
}

func newConsoleListCmd() *cobra.Command {
	var status, query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd.Context(), false, func(ctx context.Context, console *client.Console) error {
				printConversations(console.Filter(status, query))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "all", "Only conversations with this status")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search name, email and last message")
	return cmd
}

func newConsoleShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <conversation-id>",
		Short: "Print a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd.Context(), false, func(ctx context.Context, console *client.Console) error {
				if err := console.Select(ctx, args[0]); err != nil {
					return err
				}
				printMessages(console.Messages())
				return nil
			})
		},
	}
}

func newConsoleReplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reply <conversation-id> <message...>",
		Short: "Reply to a conversation as the admin",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd.Context(), false, func(ctx context.Context, console *client.Console) error {
				if err := console.Select(ctx, args[0]); err != nil {
					return err
				}
				if err := console.Reply(ctx, strings.Join(args[1:], " ")); err != nil {
					return err
				}
				printMessages(console.Messages())
				return nil
			})
		},
	}
}

func newConsoleDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <conversation-id>",
		Short: "Delete a conversation and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withConsole(cmd.Context(), false, func(ctx context.Context, console *client.Console) error {
				if err := console.Delete(ctx, args[0], yes); err != nil {
					if err == client.ErrNotConfirmed {
						return fmt.Errorf("%w: pass --yes", err)
					}
					return err
				}
				fmt.Printf("Deleted %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

func newConsoleStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the admin counts as online",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			status, err := s.api().AdminStatus(cmd.Context())
			if err != nil {
				return err
			}
			lastSeen := "never"
			if status.LastSeen != nil {
				lastSeen = status.LastSeen.Local().Format(time.RFC1123)
			}
			fmt.Printf("online=%t lastSeen=%s\n", status.IsOnline, lastSeen)
			return nil
		},
	}
}

func newConsoleWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay online and print conversation updates until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return withConsole(ctx, true, func(ctx context.Context, console *client.Console) error {
				fmt.Println("Online. Press Ctrl+C to go offline.")
				seen := make(map[string]time.Time)
				ticker := time.NewTicker(time.Second)
				defer ticker.Stop()
				for {
					for _, conversation := range console.Conversations() {
						if seen[conversation.ID].Equal(conversation.LastMessageTime) {
							continue
						}
						seen[conversation.ID] = conversation.LastMessageTime
						fmt.Printf("%s  %s <%s>: %s\n", conversation.ID, conversation.UserName, conversation.UserEmail, conversation.LastMessage)
					}
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
					}
				}
			})
		},
	}
}

// withConsole runs fn against a console. A mounted console marks the admin
// online for its lifetime; otherwise only the conversation list is loaded.
func withConsole(ctx context.Context, mount bool, fn func(context.Context, *client.Console) error) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	if s.AdminToken == "" {
		return fmt.Errorf("an admin token is required (--admin-token or CHATCTL_ADMIN_TOKEN)")
	}

	notifier := client.NewNotifier()
	defer notifier.Close()
	notifier.Subscribe(func(n client.Notification) {
		if n.Kind == client.NotifyToast {
			fmt.Fprintln(os.Stderr, n.Text)
		}
	})

	console := client.NewConsole(client.ConsoleConfig{
		API:          s.api(),
		Notifier:     notifier,
		PollInterval: s.PollInterval,
	})

	if mount {
		if err := console.Mount(ctx); err != nil {
			return err
		}
		defer func() {
			offlineCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := console.Unmount(offlineCtx); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to go offline: %v\n", err)
			}
		}()
	} else if err := console.Refresh(ctx); err != nil {
		return err
	}

	return fn(ctx, console)
}

func printConversations(conversations []entity.Conversation) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tUNREAD\tLAST MESSAGE")
	for _, c := range conversations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", c.ID, c.UserName, c.UserEmail, c.UnreadCount, c.LastMessage)
	}
	_ = w.Flush()
}

func printMessages(messages []entity.Message) {
	for _, m := range messages {
		fmt.Printf("%s  %-5s  %s\n", m.Timestamp.Local().Format("2006-01-02 15:04"), m.Sender, m.Text)
	}
}
