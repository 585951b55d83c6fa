package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/guidance"
	"github.com/abhisek/mathguide/internal/tui"
	"github.com/abhisek/mathguide/internal/ui/theme"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Practice problems in an interactive terminal session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

func init() {
	addSessionFlags(chatCmd)
	addSessionFlags(rootCmd)
}

// sessionFlags reads and checks the flags shared by chat and the TUI.
func sessionFlags(cmd *cobra.Command) (tui.Options, error) {
	topic, _ := cmd.Flags().GetString("topic")
	difficulty, _ := cmd.Flags().GetInt("difficulty")
	sessionID, _ := cmd.Flags().GetString("session")
	if topic != "" && !validTopic(topic) {
		return tui.Options{}, fmt.Errorf("unknown topic %q", topic)
	}
	if difficulty < 0 || difficulty > 5 {
		return tui.Options{}, fmt.Errorf("difficulty must be between 1 and 5, got %d", difficulty)
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return tui.Options{SessionID: sessionID, Topic: corpus.Topic(topic), Difficulty: difficulty}, nil
}

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().String("topic", "", "Restrict problems to a topic (e.g. \"quadratic equations\")")
	cmd.Flags().Int("difficulty", 0, "Restrict problems to a difficulty from 1 to 5")
	cmd.Flags().String("session", "", "Session id (default: a new random id)")
}

// runTUI opens the engine and launches the full-screen chat.
func runTUI(cmd *cobra.Command) error {
	opts, err := sessionFlags(cmd)
	if err != nil {
		return err
	}
	e, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()
	return tui.Run(cmd.Context(), e.guide, e.phraser, opts)
}

// runChat runs the read-decide-print loop until EOF or /quit.
func runChat(cmd *cobra.Command) error {
	opts, err := sessionFlags(cmd)
	if err != nil {
		return err
	}
	e, err := buildEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	c := &chat{engine: e, opts: opts, out: cmd.OutOrStdout()}
	return c.loop(cmd, cmd.InOrStdin())
}

type chat struct {
	engine *engine
	opts   tui.Options
	out    io.Writer
}

func (c *chat) loop(cmd *cobra.Command, in io.Reader) error {
	fmt.Fprintln(c.out, theme.Banner.Render("mathguide"))
	fmt.Fprintln(c.out, theme.Dim.Render("Type an answer or step, \"hint\", \"new\", \"explain <term>\". /quit to leave."))
	c.turn(cmd, "")

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, theme.Prompt.Render("> "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return c.end(cmd)
		}
		c.turn(cmd, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	fmt.Fprintln(c.out)
	return c.end(cmd)
}

func (c *chat) turn(cmd *cobra.Command, input string) {
	rec := c.engine.guide.Handle(cmd.Context(), guidance.Turn{
		SessionID:  c.opts.SessionID,
		Input:      input,
		Topic:      c.opts.Topic,
		Difficulty: c.opts.Difficulty,
	})
	msg, err := c.engine.phraser.Phrase(cmd.Context(), rec)
	if err != nil {
		c.engine.logger.Debug("no message for decision", zap.String("kind", string(rec.Kind)), zap.Error(err))
		return
	}
	fmt.Fprintln(c.out, theme.ForAction(rec.Kind).Render(msg))
}

func (c *chat) end(cmd *cobra.Command) error {
	if err := c.engine.guide.EndSession(cmd.Context(), c.opts.SessionID); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	fmt.Fprintln(c.out, theme.Dim.Render("Session "+c.opts.SessionID+" saved. Bye!"))
	return nil
}

func validTopic(t string) bool {
	for _, known := range corpus.AllTopics() {
		if string(known) == t {
			return true
		}
	}
	return false
}
