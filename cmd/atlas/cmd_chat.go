package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jan-server/services/chat-api/internal/domain/chatsession"
	"jan-server/services/chat-api/internal/domain/conversationlist"
	"jan-server/services/chat-api/internal/domain/provider"
	"jan-server/services/chat-api/internal/utils/markup"
)

const titleWait = 2 * time.Second

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with a model",
	Long: `Send a message and stream the reply. Without a message an interactive session
starts; type /help inside it for the available commands.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringP("conversation", "c", "", "Continue an existing conversation")
	chatCmd.Flags().String("provider", "", "Provider for new conversations (default from the catalog)")
	chatCmd.Flags().String("model", "", "Model for new conversations (default from the catalog)")
}

func runChat(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd)
	if err != nil {
		return err
	}
	defer ws.close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	catalog, err := ws.catalog(ctx)
	if err != nil {
		return err
	}
	providerKey, _ := cmd.Flags().GetString("provider")
	model, _ := cmd.Flags().GetString("model")
	if providerKey == "" {
		providerKey = catalog.DefaultProvider
	}
	if model == "" {
		model = catalog.DefaultModel
	}
	if err := catalog.Validate(ctx, providerKey, model); err != nil {
		return err
	}

	session := newChatSession(ws, catalog, providerKey, model, cmd.OutOrStdout())
	go session.list.Run(ctx)

	if id, _ := cmd.Flags().GetString("conversation"); id != "" {
		if err := session.open(ctx, id); err != nil {
			return err
		}
	}

	if len(args) > 0 {
		return session.send(ctx, strings.Join(args, " "))
	}
	return session.repl(ctx, cmd.InOrStdin())
}

// chatSession joins a session controller and a list controller the way a chat screen does.
type chatSession struct {
	ws      *workspace
	catalog *provider.Catalog
	list    *conversationlist.Controller
	session *chatsession.Controller
	titles  chan conversationlist.Entry
	out     io.Writer
}

func newChatSession(ws *workspace, catalog *provider.Catalog, providerKey, model string, out io.Writer) *chatSession {
	s := &chatSession{
		ws:      ws,
		catalog: catalog,
		titles:  make(chan conversationlist.Entry, 8),
		out:     out,
	}
	s.list = conversationlist.NewController(ws.backend, s.onListChange, ws.log)
	s.session = chatsession.NewController(
		s.list,
		ws.backend,
		s.list.Updates(),
		chatsession.Config{Provider: providerKey, Model: model},
		chatsession.Hooks{
			OnFragment: func(_, fragment string) {
				fmt.Fprint(out, fragment)
			},
		},
		ws.log,
	)
	return s
}

func (s *chatSession) onListChange(entries []conversationlist.Entry) {
	for _, entry := range entries {
		if !entry.TitleGenerating {
			continue
		}
		select {
		case s.titles <- entry:
		default:
		}
	}
}

// send submits one turn and, when it was the conversation's first, prints the synthesized title.
func (s *chatSession) send(ctx context.Context, text string) error {
	titled := s.session.TitleFinalized()
	err := s.session.Submit(ctx, s.ws.userID, text)
	fmt.Fprintln(s.out)
	if err != nil {
		if partial := s.session.Truncated(); partial != "" {
			fmt.Fprintln(s.out, "(response interrupted; type /retry to send the message again)")
		}
		return err
	}
	if !titled && s.session.TitleFinalized() {
		s.session.Wait()
		s.printTitle(titleWait)
	}
	return nil
}

func (s *chatSession) printTitle(wait time.Duration) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case entry := <-s.titles:
		fmt.Fprintf(s.out, "[%s] %s\n", entry.ID, entry.Title)
		s.list.TitleRendered(entry.ID)
	case <-timer.C:
	}
}

func (s *chatSession) open(ctx context.Context, id string) error {
	if err := s.session.Switch(ctx, s.ws.userID, id); err != nil {
		return err
	}
	s.list.SetActive(id)
	for _, msg := range s.session.Messages() {
		fmt.Fprintf(s.out, "%s: %s\n", msg.Role, markup.PlainText(msg.Content))
	}
	return nil
}

func (s *chatSession) repl(ctx context.Context, in io.Reader) error {
	providerKey, model := s.session.Model()
	fmt.Fprintf(s.out, "Chatting with %s/%s. Type /help for commands.\n", providerKey, model)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		quit, err := s.handle(ctx, line)
		if err != nil {
			fmt.Fprintf(s.out, "error: %s\n", displayError(err))
		}
		if quit {
			return nil
		}
	}
}

func (s *chatSession) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, s.send(ctx, line)
	}

	command, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprint(s.out, replHelp)
	case "/new":
		s.session.Reset()
		s.list.SetActive("")
		fmt.Fprintln(s.out, "Started a new conversation.")
	case "/open":
		if arg == "" {
			return false, errors.New("usage: /open <conversation id>")
		}
		return false, s.open(ctx, arg)
	case "/list":
		entries, err := s.list.List(ctx, s.ws.userID)
		if err != nil {
			return false, err
		}
		printEntries(s.out, entries, s.list.Active())
	case "/model":
		providerKey, model, ok := parseModel(arg)
		if !ok {
			return false, errors.New("usage: /model <provider>/<model>")
		}
		if err := s.catalog.Validate(ctx, providerKey, model); err != nil {
			return false, err
		}
		s.session.SetModel(providerKey, model)
		fmt.Fprintf(s.out, "Using %s/%s.\n", providerKey, model)
	case "/retry":
		draft := s.session.Draft()
		if draft == "" {
			return false, errors.New("nothing to retry")
		}
		return false, s.send(ctx, draft)
	default:
		return false, fmt.Errorf("unknown command %s", command)
	}
	return false, nil
}

const replHelp = `Commands:
  /new                      start a new conversation
  /open <id>                continue a stored conversation
  /list                     list your conversations
  /model <provider>/<model> switch model for the next message
  /retry                    resend the last failed message
  /quit                     leave
`
