// Command livewatch follows a live room from the terminal: stats, comments,
// gifts and PK battles, with keys to like, comment and answer PK invites.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"

	"live-app/pkg/reconnect"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v5"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "livewatch:", err)
		os.Exit(1)
	}
}

func run() error {
	server := flag.String("server", "ws://localhost:8080", "live server base URL")
	room := flag.String("room", "", "room id to join")
	token := flag.String("token", os.Getenv("LIVE_TOKEN"), "JWT issued by POST /login")
	opponent := flag.String("opponent", "", "room to challenge with the p key (hosts only)")
	attempts := flag.Int("max-attempts", reconnect.Default().MaxAttempts, "reconnect attempts before giving up (0 retries forever)")
	flag.Parse()

	if *room == "" || *token == "" {
		flag.Usage()
		return fmt.Errorf("-room and -token are required")
	}
	userID, err := userFromToken(*token)
	if err != nil {
		return err
	}

	endpoint, err := url.Parse(*server)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	endpoint = endpoint.JoinPath("ws", "live", *room)
	query := endpoint.Query()
	query.Set("token", *token)
	endpoint.RawQuery = query.Encode()

	policy := reconnect.Default()
	policy.MaxAttempts = *attempts

	outbox := make(chan []byte, 32)
	p := tea.NewProgram(newModel(*room, userID, *opponent, outbox), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn := &connection{url: endpoint.String(), userID: userID, policy: policy, outbox: outbox, program: p}
	go conn.run(ctx)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// userFromToken reads the user id claim. The server verifies the signature;
// the client only needs to know who it is.
func userFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("unreadable token: %w", err)
	}
	id, ok := claims["user_id"].(float64)
	if !ok {
		return "", fmt.Errorf("token has no user_id claim")
	}
	return fmt.Sprintf("%d", int64(id)), nil
}
