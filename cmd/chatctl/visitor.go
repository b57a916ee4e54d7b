package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sulestate/internal/client"
	"sulestate/internal/domain/entity"
)

func newVisitorCmd() *cobra.Command {
	var name, email string
	var forget bool

	cmd := &cobra.Command{
		Use:   "visitor",
		Short: "Chat as a website visitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			sessions := client.NewFileSessionStore(filepath.Join(s.Home, "session.json"))
			if forget {
				if err := sessions.Clear(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runVisitor(ctx, s, sessions, name, email)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Your name, asked for when no session is cached")
	cmd.Flags().StringVar(&email, "email", "", "Your email, asked for when no session is cached")
	cmd.Flags().BoolVar(&forget, "forget", false, "Drop the cached session and start a new conversation")
	return cmd
}

func runVisitor(ctx context.Context, s *settings, sessions client.SessionStore, name, email string) error {
	notifier := client.NewNotifier()
	defer notifier.Close()

	visitor := client.NewVisitor(client.VisitorConfig{
		API:          s.api(),
		Sessions:     sessions,
		Notifier:     notifier,
		ContactEmail: s.ContactEmail,
		PollInterval: s.PollInterval,
		Stream:       s.Stream,
	})
	defer visitor.Close()

	if err := visitor.Open(ctx); err != nil {
		return err
	}

	in := bufio.NewScanner(os.Stdin)
	for visitor.State() == client.StateCollectingIdentity {
		var ok bool
		if name == "" {
			if name, ok = prompt(in, "Name: "); !ok {
				return nil
			}
		}
		if email == "" {
			if email, ok = prompt(in, "Email: "); !ok {
				return nil
			}
		}
		if err := visitor.SubmitIdentity(ctx, name, email); err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%v\n", err)
			name, email = "", ""
		}
	}

	chatSettings := visitor.Settings()
	fmt.Printf("Connected to %s. Type a message and press enter.\n", chatSettings.DisplayName)

	var mu sync.Mutex
	printed := make(map[string]bool)
	show := func() {
		mu.Lock()
		defer mu.Unlock()
		for _, message := range visitor.Messages() {
			if printed[message.ID] {
				continue
			}
			printed[message.ID] = true
			if message.Sender != entity.SenderUser {
				fmt.Printf("[%s] %s\n", senderLabel(message.Sender, chatSettings.DisplayName), message.Text)
			}
		}
	}
	show()
	unsubscribe := notifier.Subscribe(func(client.Notification) { show() })
	defer unsubscribe()

	lines := make(chan string)
	go func() {
		defer close(lines)
		for in.Scan() {
			lines <- in.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := visitor.Send(ctx, line); err != nil {
				fmt.Fprintf(os.Stderr, "%v\n", err)
			}
			show()
		}
	}
}

func prompt(in *bufio.Scanner, label string) (string, bool) {
	fmt.Print(label)
	if !in.Scan() {
		return "", false
	}
	return strings.TrimSpace(in.Text()), true
}

func senderLabel(sender, displayName string) string {
	switch sender {
	case entity.SenderAdmin:
		return displayName
	case entity.SenderAI:
		return displayName + " assistant"
	default:
		return "you"
	}
}
