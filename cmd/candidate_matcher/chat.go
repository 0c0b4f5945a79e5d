package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/fetch"
	"github.com/jonathan/candidate-matcher/internal/observability"
	"github.com/jonathan/candidate-matcher/internal/session"
)

const (
	chatCmdFeedback = "/feedback"
	chatCmdNew      = "/new"
	chatCmdQuit     = "/quit"
	chatHelp        = "Paste a job description or a job posting URL to search. /feedback toggles feedback mode, /new starts a new conversation, /quit exits."
)

// lineReader asks the user for one line of input.
type lineReader interface {
	ReadLine(label string) (string, error)
}

type promptReader struct{}

func (promptReader) ReadLine(label string) (string, error) {
	p := promptui.Prompt{Label: label}
	return p.Run()
}

func (c *cli) chatCmd() *cobra.Command {
	var conversation string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive matching session",
		Long: `Starts a conversation: each job description you enter runs the matching pipeline, and feedback
mode lets you ask follow-up questions about the last shortlist.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			r := &repl{sessions: a.sessions, fetcher: a.fetcher, in: promptReader{}, out: cmd.OutOrStdout()}
			if conversation != "" {
				id, err := uuid.Parse(conversation)
				if err != nil {
					return fmt.Errorf("invalid conversation id: %w", err)
				}
				r.conversation = &id
			}
			return r.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&conversation, "conversation", "", "Resume an existing conversation")
	return cmd
}

// repl is the chat loop over a session manager.
type repl struct {
	sessions     *session.Manager
	fetcher      *fetch.Fetcher
	in           lineReader
	out          io.Writer
	conversation *uuid.UUID
	feedback     bool
}

//nolint:errcheck // writing to the terminal; errors are not recoverable
func (r *repl) run(ctx context.Context) error {
	fmt.Fprintln(r.out, chatHelp)
	for {
		line, err := r.in.ReadLine(r.label())
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch line = strings.TrimSpace(line); line {
		case "":
			continue
		case chatCmdQuit:
			return nil
		case chatCmdNew:
			r.conversation = nil
			r.feedback = false
			fmt.Fprintln(r.out, "Started a new conversation.")
			continue
		case chatCmdFeedback:
			r.toggleFeedback(ctx)
			continue
		}

		if ctx.Err() != nil {
			return nil
		}
		r.send(ctx, line)
	}
}

func (r *repl) label() string {
	if r.feedback {
		return "feedback"
	}
	return "job description"
}

//nolint:errcheck // writing to the terminal; errors are not recoverable
func (r *repl) toggleFeedback(ctx context.Context) {
	if r.conversation == nil {
		fmt.Fprintln(r.out, session.MsgNoPreviousSearch)
		return
	}
	st, err := r.sessions.SetFeedbackMode(ctx, *r.conversation, !r.feedback)
	if err != nil {
		r.printError(err)
		return
	}
	r.feedback = st.FeedbackMode
	if r.feedback {
		fmt.Fprintln(r.out, "Feedback mode on: messages are answered from the last search.")
	} else {
		fmt.Fprintln(r.out, "Feedback mode off.")
	}
}

//nolint:errcheck // writing to the terminal; errors are not recoverable
func (r *repl) send(ctx context.Context, text string) {
	printer := observability.NewPrinter(r.out)
	if !r.feedback && r.fetcher != nil && fetch.IsURL(text) {
		posting, err := r.fetcher.JobPosting(ctx, text)
		if err != nil {
			r.printError(err)
			return
		}
		fmt.Fprintf(r.out, "Fetched %d characters from %s\n", len(posting.Text), posting.URL)
		text = posting.Text
	}
	res, err := r.sessions.Send(ctx, r.conversation, text, printer.PrintProgress)
	if err != nil {
		r.printError(err)
		return
	}
	id := res.Conversation.ID
	r.conversation = &id

	if res.Result == nil {
		fmt.Fprintln(r.out, res.AssistantMessage.Content)
		return
	}
	printer.PrintResult(res.Result)
	if res.State.InputMode == session.InputSuppressed {
		fmt.Fprintln(r.out, "Use /feedback to ask about these candidates or /new to start another search.")
	}
}

func (r *repl) printError(err error) {
	_, _ = fmt.Fprintf(r.out, "Error: %s\n", apperrors.UserMessage(err, err.Error()))
}
