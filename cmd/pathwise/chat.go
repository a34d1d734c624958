package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/metalagman/pathwise/internal/dispatch"
	"github.com/metalagman/pathwise/internal/model"
	"github.com/metalagman/pathwise/internal/session"
	"github.com/spf13/cobra"
)

const chatHelp = "Commands: /add <n|url> adds a suggestion to context, /reset starts over, /quit exits."

func chatCmd() *cobra.Command {
	var width int
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Plan a learning path interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			var (
				d        *dispatch.Dispatcher
				sessions *session.Manager
			)
			return withApp(ctx, func(ctx context.Context) error {
				c := &chat{
					orch: d,
					sess: sessions.Create(),
					out:  newPrinter(cmd.OutOrStdout(), width),
				}
				return c.run(ctx, cmd.InOrStdin())
			}, &d, &sessions)
		},
	}
	cmd.Flags().IntVar(&width, "width", 100, "word wrap width for replies")
	return cmd
}

type orchestrator interface {
	Submit(ctx context.Context, sess *session.Session, text string) (<-chan model.Event, error)
	AddToContext(ctx context.Context, sess *session.Session, url string) (<-chan model.Event, error)
}

type chat struct {
	orch orchestrator
	sess *session.Session
	out  *printer
}

func (c *chat) run(ctx context.Context, in io.Reader) error {
	c.out.notice(chatHelp)
	sc := bufio.NewScanner(in)
	for {
		c.out.prompt()
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		quit, err := c.handle(ctx, line)
		if err != nil {
			c.out.failure(err.Error())
		}
		if quit || ctx.Err() != nil {
			return nil
		}
	}
}

func (c *chat) handle(ctx context.Context, line string) (bool, error) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/reset":
		if err := c.sess.Reset(); err != nil {
			return false, err
		}
		c.out.notice("Conversation reset.")
		return false, nil
	case "/add":
		url, err := resolveTarget(strings.TrimSpace(arg), c.sess.Suggestions())
		if err != nil {
			return false, err
		}
		events, err := c.orch.AddToContext(ctx, c.sess, url)
		if err != nil {
			return false, err
		}
		c.out.events(events)
		return false, nil
	}
	events, err := c.orch.Submit(ctx, c.sess, line)
	if err != nil {
		return false, err
	}
	c.out.events(events)
	return false, nil
}

// resolveTarget maps "/add 2" to the second pending suggestion and passes URLs through.
func resolveTarget(arg string, suggestions []string) (string, error) {
	if arg == "" {
		return "", errors.New("usage: /add <n|url>")
	}
	n, err := strconv.Atoi(arg)
	if err != nil {
		return arg, nil
	}
	if n < 1 || n > len(suggestions) {
		return "", fmt.Errorf("no suggestion #%d", n)
	}
	return suggestions[n-1], nil
}

// printer renders events for a terminal.
type printer struct {
	w        io.Writer
	markdown *glamour.TermRenderer

	noticeStyle lipgloss.Style
	errorStyle  lipgloss.Style
	promptStyle lipgloss.Style
	linkStyle   lipgloss.Style
}

func newPrinter(w io.Writer, width int) *printer {
	p := &printer{
		w:           w,
		noticeStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true),
		errorStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		promptStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		linkStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Underline(true),
	}
	if width > 0 {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width)); err == nil {
			p.markdown = r
		}
	}
	return p
}

func (p *printer) prompt() {
	fmt.Fprint(p.w, p.promptStyle.Render("you> "))
}

func (p *printer) notice(text string) {
	fmt.Fprintln(p.w, p.noticeStyle.Render(text))
}

func (p *printer) failure(text string) {
	fmt.Fprintln(p.w, p.errorStyle.Render(text))
}

func (p *printer) events(events <-chan model.Event) {
	for ev := range events {
		p.event(ev)
	}
}

func (p *printer) event(ev model.Event) {
	switch ev.Type {
	case model.EventUtteranceAdded:
		p.utterance(*ev.Utterance)
	case model.EventSuggestionsAvailable:
		p.notice("Use /add <n> to pull a suggestion into context.")
	case model.EventNavigateToArtifact:
		p.notice(fmt.Sprintf("Open it with: pathwise curricula show %s", ev.ArtifactID))
	case model.EventJobStarted:
		p.notice("Crawling...")
	case model.EventJobProgress:
		p.notice("  " + ev.Progress)
	}
}

func (p *printer) utterance(u model.Utterance) {
	switch {
	case u.Origin == model.OriginUser:
		return
	case u.IsError:
		p.failure(u.Text)
	case u.Origin == model.OriginNotice:
		p.notice(u.Text)
	case u.Kind == model.KindSuggestionList:
		fmt.Fprintln(p.w, "Suggested resources:")
		for i, url := range u.URLs {
			fmt.Fprintf(p.w, "  %d. %s\n", i+1, p.linkStyle.Render(url))
		}
	case u.Kind == model.KindActionWidget:
		fmt.Fprintf(p.w, "%s (%s)\n", u.Text, u.ArtifactID)
	default:
		p.reply(u.Text)
		for _, c := range u.Citations {
			label := c.Title
			if label == "" {
				label = c.URL
			}
			fmt.Fprintf(p.w, "  [%s] %s\n", label, p.linkStyle.Render(c.URL))
		}
	}
}

func (p *printer) reply(text string) {
	if p.markdown != nil {
		if out, err := p.markdown.Render(text); err == nil {
			fmt.Fprint(p.w, out)
			return
		}
	}
	fmt.Fprintln(p.w, text)
}
