// Command session_chat is a terminal client for shadow-session chat. It
// logs in over REST, opens the realtime channel and bridges stdin to the
// session: plain lines send messages, keystrokes drive the typing
// indicator through the composer.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/usersaynoso/shadowme-server/internal/channel"
	"github.com/usersaynoso/shadowme-server/internal/log"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "session_chat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	session := flag.String("session", "", "shadow session id to join")
	flag.Parse()

	if *email == "" || *password == "" || *session == "" {
		return fmt.Errorf("email, password and session are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, userID, err := login(ctx, *server, *email, *password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	wsURL := strings.Replace(*server, "http", "ws", 1) + "/ws"
	logger := log.New("warn")

	client := channel.NewClient(channel.WebsocketDialer(wsURL), channel.Hooks{
		InvalidateParticipants: func() {
			fmt.Println("* participant list changed")
		},
		InvalidateSession: func() {
			fmt.Println("* session details were updated, refetch them")
		},
		ConnectionLost: func(reason string) {
			fmt.Printf("* connection lost: %s\n", reason)
			stop()
		},
		ProtocolError: func(code, msg string) {
			fmt.Printf("* server error (%s): %s\n", code, msg)
		},
	}, logger)
	client.SetAuthToken(token)

	if err := client.Open(ctx, *session, userID); err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer client.Close()

	composer := channel.NewComposer(client)
	defer composer.Stop()

	fmt.Printf("Connected to session %s as %s\n", *session, userID)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go renderLoop(ctx, client)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		composer.Keystroke()
		if !composer.Send(line) {
			fmt.Println("* message rejected, not connected")
		}
		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}

// renderLoop prints messages appended to the chat sequence since the last
// poll, along with who is currently typing.
func renderLoop(ctx context.Context, client *channel.Client) {
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	seen := 0
	typingShown := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		messages := client.Messages()
		for _, msg := range messages[seen:] {
			fmt.Printf("[%s] %s: %s\n", msg.Timestamp, msg.SenderName, msg.Content)
		}
		seen = len(messages)

		var typing []string
		for userID, isTyping := range client.Typing() {
			if isTyping {
				typing = append(typing, userID)
			}
		}
		line := strings.Join(typing, ", ")
		if line != typingShown {
			if line != "" {
				fmt.Printf("* typing: %s\n", line)
			}
			typingShown = line
		}
	}
}

func login(ctx context.Context, server, email, password string) (token, userID string, err error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/api/login", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var parsed struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", err
	}
	return parsed.Token, parsed.User.ID, nil
}
