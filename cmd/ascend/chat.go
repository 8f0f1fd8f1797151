package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/ascendhq/ascend/internal/assembler"
	"github.com/ascendhq/ascend/internal/domain"
	ascendErrors "github.com/ascendhq/ascend/internal/errors"
	"github.com/ascendhq/ascend/internal/orchestrator"
	"github.com/ascendhq/ascend/internal/orchestrator/session"
	"github.com/ascendhq/ascend/internal/reasoning"
	"github.com/ascendhq/ascend/internal/store"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive coaching session",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().String("session", "", "resume an existing session id")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	engine, err := buildEngine(st)
	if err != nil {
		return err
	}
	if err := engine.Warm(ctx); err != nil {
		return err
	}

	sessions := engine.Sessions()
	var sess *session.Session
	if id, _ := cmd.Flags().GetString("session"); id != "" {
		sess, err = sessions.Get(id)
		if err != nil {
			return err
		}
	} else {
		sess = sessions.NewSession()
	}

	repl := &repl{
		engine:  engine,
		sess:    sess,
		reader:  bufio.NewReader(os.Stdin),
		out:     cmd.OutOrStdout(),
		verbose: cfg.Server.LogLevel == "debug",
	}
	return repl.run(ctx)
}

func buildEngine(st *store.FileStore) (*orchestrator.Engine, error) {
	router, err := reasoning.NewRouter(cfg.Models)
	if err != nil {
		return nil, err
	}
	client := reasoning.NewClient(router, cfg.Models, cfg.Prompts)

	snapshot := domain.NewSnapshot()
	executor := orchestrator.NewExecutor(st, snapshot, client, st.Profile, st.Constraints)
	sessions := session.NewManager(st, cfg.Orchestrator.HistoryLimit)
	asm := assembler.New(cfg.Assembler)

	return orchestrator.NewEngine(
		cfg.Orchestrator,
		sessions,
		client,
		asm,
		executor,
		snapshot,
		st.Profile,
		st.Constraints,
	), nil
}

type repl struct {
	engine  *orchestrator.Engine
	sess    *session.Session
	reader  *bufio.Reader
	out     io.Writer
	verbose bool
}

func (r *repl) run(ctx context.Context) error {
	fmt.Fprintln(r.out, bannerStyle.Render("Ascend"), dimStyle.Render("session "+r.sess.ID))
	fmt.Fprintln(r.out, dimStyle.Render("Type /help for commands, /exit to quit."))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		fmt.Fprint(r.out, promptStyle.Render("> "))
		line, err := r.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			done, err := r.command(ctx, line)
			if err != nil {
				fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
			}
			if done {
				return nil
			}
			continue
		}

		r.turn(ctx, line)
	}
}

// command handles slash commands; it returns true when the REPL should exit.
func (r *repl) command(ctx context.Context, line string) (bool, error) {
	parts, err := shlex.Split(strings.TrimPrefix(line, "/"))
	if err != nil || len(parts) == 0 {
		return false, fmt.Errorf("unrecognized command %q", line)
	}

	switch parts[0] {
	case "exit", "quit":
		return true, nil
	case "help":
		fmt.Fprintln(r.out, dimStyle.Render("/confirm  run the pending action\n/cancel   discard the pending action\n/sessions list sessions\n/session <id>  switch session\n/new      start a fresh session\n/exit     quit"))
		return false, nil
	case "confirm":
		result, err := r.engine.Confirm(ctx, r.sess.ID)
		if err != nil {
			return false, err
		}
		r.render(result)
		return false, nil
	case "cancel":
		result, err := r.engine.Cancel(ctx, r.sess.ID)
		if err != nil {
			return false, err
		}
		r.render(result)
		return false, nil
	case "sessions":
		metas, err := r.engine.Sessions().List()
		if err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, renderSessionTable(metas))
		return false, nil
	case "session":
		if len(parts) < 2 {
			return false, fmt.Errorf("usage: /session <id>")
		}
		sess, err := r.engine.Sessions().Get(parts[1])
		if err != nil {
			return false, err
		}
		r.sess = sess
		fmt.Fprintln(r.out, dimStyle.Render("switched to session "+sess.ID))
		return false, nil
	case "new":
		r.sess = r.engine.Sessions().NewSession()
		fmt.Fprintln(r.out, dimStyle.Render("started session "+r.sess.ID))
		return false, nil
	}
	return false, fmt.Errorf("unrecognized command %q", line)
}

func (r *repl) turn(ctx context.Context, text string) {
	result, err := r.engine.HandleMessage(ctx, r.sess.ID, text)
	if err != nil {
		if errors.Is(err, ascendErrors.ErrTurnInFlight) {
			fmt.Fprintln(r.out, errorStyle.Render("Still working on the previous message."))
			return
		}
		fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		return
	}
	r.render(result)
}

func (r *repl) render(result *orchestrator.TurnResult) {
	if r.verbose {
		for _, line := range renderActionLines(result.Actions) {
			fmt.Fprintln(r.out, line)
		}
	}
	fmt.Fprintln(r.out, assistantStyle.Render(result.Message))
}
