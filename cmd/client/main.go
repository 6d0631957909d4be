package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type frame struct {
	Type          string    `json:"type"`
	GroupID       string    `json:"group_id,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Content       string    `json:"content,omitempty"`
	Message       *message  `json:"message,omitempty"`
	Messages      []message `json:"messages,omitempty"`
	State         string    `json:"state,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	Code          string    `json:"code,omitempty"`
	Error         string    `json:"error,omitempty"`
}

type message struct {
	ID         string    `json:"id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run subscribes to one group, prints what arrives and sends every stdin line.
func run() (int, error) {
	config, err := LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)
	color.Enable = config.Colours

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+config.Token)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, strings.TrimRight(config.ServerURL, "/")+"/v1/ws", header)
	if err != nil {
		if resp != nil {
			return exitRuntime, fmt.Errorf("could not connect to %s (%s): %w", config.ServerURL, resp.Status, err)
		}
		return exitRuntime, fmt.Errorf("could not connect to %s: %w", config.ServerURL, err)
	}
	defer conn.Close()
	log.Info("Connected", "server", config.ServerURL, "group", config.GroupID)

	if err = conn.WriteJSON(frame{Type: "subscribe", GroupID: config.GroupID}); err != nil {
		return exitRuntime, fmt.Errorf("subscribe: %w", err)
	}

	readErr := make(chan error, 1)
	go func() {
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				readErr <- err
				return
			}
			render(f)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return exitOK, nil
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			out := frame{Type: "send", GroupID: config.GroupID, CorrelationID: uuid.NewString(), Content: line}
			if err := conn.WriteJSON(out); err != nil {
				return exitRuntime, fmt.Errorf("send: %w", err)
			}
		}
	}
}

func render(f frame) {
	switch f.Type {
	case "snapshot":
		color.Gray.Printf("--- %d earlier messages ---\n", len(f.Messages))
		for _, m := range f.Messages {
			printMessage(m)
		}
	case "message":
		if f.Message != nil {
			printMessage(*f.Message)
		}
	case "state":
		color.Yellow.Printf("[%s] %s %s\n", f.GroupID, f.State, f.Reason)
	case "error":
		color.Red.Printf("error %s: %s\n", f.Code, f.Error)
	}
}

func printMessage(m message) {
	fmt.Printf("%s %s: %s\n",
		color.Gray.Sprint(m.CreatedAt.Local().Format("15:04:05")),
		color.Cyan.Sprint(m.SenderName),
		m.Content)
}
