package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Message is one transcript turn as the server expects it.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// ChatCmd creates the interactive chat command.
func ChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant",
		Long: `Starts an interactive chat. The transcript is kept locally and sent with every turn.

Commands:
  /reset   clear the transcript
  /exit    quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			showRoute, _ := cmd.Flags().GetBool("show-route")
			session := &ChatSession{api: api, showRoute: showRoute}
			return session.Run(cmd.Context(), os.Stdin, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Bool("show-route", false, "Print which route each reply took")

	return cmd
}

// ChatSession is a REPL over the /chat endpoint.
type ChatSession struct {
	api        *APIClient
	transcript []Message
	showRoute  bool
}

// Run reads user lines from in until EOF or /exit and writes streamed replies to out.
func (s *ChatSession) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			s.transcript = nil
			fmt.Fprintln(out, "transcript cleared")
			continue
		}

		if err := s.Send(ctx, line, out); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

// Send submits one user turn and streams the reply to out. The turn and reply
// are appended to the transcript only when the request succeeds.
func (s *ChatSession) Send(ctx context.Context, text string, out io.Writer) error {
	messages := append(append([]Message(nil), s.transcript...), Message{Role: "user", Content: text})

	stream, err := s.api.PostStream(ctx, "/chat", ChatRequest{Messages: messages})
	if err != nil {
		return err
	}
	defer stream.Body.Close()

	if s.showRoute && stream.Route != "" {
		fmt.Fprintf(out, "[%s]\n", stream.Route)
	}

	var reply strings.Builder
	if _, err := io.Copy(io.MultiWriter(out, &reply), stream.Body); err != nil {
		return fmt.Errorf("reply interrupted: %w", err)
	}
	fmt.Fprintln(out)

	s.transcript = append(messages, Message{Role: "assistant", Content: reply.String()})
	return nil
}

// Transcript returns a copy of the conversation so far.
func (s *ChatSession) Transcript() []Message {
	return append([]Message(nil), s.transcript...)
}
