// Command quiz-cli takes a quiz in the terminal. Progress is autosaved
// locally so an interrupted attempt resumes where it stopped.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-player/internal/apiclient"
	"github.com/stemsi/exstem-player/internal/auth"
	"github.com/stemsi/exstem-player/internal/config"
	"github.com/stemsi/exstem-player/internal/logger"
	"github.com/stemsi/exstem-player/internal/model"
	"github.com/stemsi/exstem-player/internal/session"
	"github.com/stemsi/exstem-player/internal/storage"
	"github.com/stemsi/exstem-player/internal/worker"
	"golang.org/x/term"
)

const helpText = `Commands:
  show                 show the current question
  answer <value>       answer the current question (option number, text, or 1=a;2=b)
  flag                 flag or unflag the current question
  next | prev          move between questions
  goto <n>             jump to question n
  list                 list questions with answered/flagged marks
  pause | resume       pause or resume the timer
  submit               submit your answers
  exit                 leave without submitting (saved progress is cleared)
  quit                 leave and keep saved progress
  help                 show this help`

func main() {
	quizID := flag.String("quiz", "", "quiz or assignment id")
	flag.Parse()
	if *quizID == "" {
		fmt.Fprintln(os.Stderr, "usage: quiz-cli -quiz <id>")
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.New(os.Stderr, cfg.LogLevel, "pretty")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	identity, err := readIdentity(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("No usable auth token")
	}

	store, closeStore, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open snapshot storage")
	}
	defer closeStore()

	api := apiclient.New(apiclient.Options{
		BaseURL:    cfg.APIBaseURL,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout},
		Identity:   identity,
		Log:        log,
	})

	lines := readLines(os.Stdin)
	p := &player{out: os.Stdout, lines: lines}

	ctrl := session.New(session.Options{
		API:       api,
		Store:     store,
		Confirmer: session.ConfirmFunc(p.confirmSubmit),
		Debounce:  cfg.AutosaveDebounce,
		Log:       log,
	})
	if err := ctrl.LoadSession(ctx, *quizID); err != nil {
		fmt.Fprintf(os.Stderr, "Could not load quiz: %v\n", err)
		os.Exit(1)
	}
	defer ctrl.Close()
	p.ctrl = ctrl

	go worker.NewTickWorker(ctrl, log).Start(ctx)

	p.run(ctx)
}

// readIdentity takes the token from API_TOKEN or asks for it without echo.
func readIdentity(cfg *config.Config) (*auth.Identity, error) {
	token := cfg.APIToken
	if token == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(os.Stderr, "Access token: ")
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, err
		}
		token = strings.TrimSpace(string(raw))
	}
	id, err := auth.FromToken(token, cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	if id.Expired(time.Now()) {
		return nil, auth.ErrTokenExpired
	}
	return id, nil
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

type player struct {
	ctrl  *session.Controller
	out   io.Writer
	lines <-chan string
}

func (p *player) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}

// saveAndLeave writes any edit still waiting for the autosave debounce.
func (p *player) saveAndLeave() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.ctrl.Flush(ctx); err != nil {
		p.printf("Could not save progress: %v\n", err)
		return
	}
	p.printf("Progress saved. Run again to resume.\n")
}

func (p *player) run(ctx context.Context) {
	states, unsubscribe := p.ctrl.Subscribe()
	defer unsubscribe()

	p.show()
	p.prompt()
	for {
		select {
		case <-ctx.Done():
			p.printf("\n")
			p.saveAndLeave()
			return
		case <-p.ctrl.Done():
			p.finish()
			return
		case <-states:
			// Only the autosubmit on time-up needs attention here; Done covers it.
		case line, ok := <-p.lines:
			if !ok {
				return
			}
			if quit := p.handle(ctx, line); quit {
				return
			}
			select {
			case <-p.ctrl.Done():
				p.finish()
				return
			default:
			}
			p.prompt()
		}
	}
}

func (p *player) prompt() {
	state := p.ctrl.State()
	timer := "untimed"
	if state.TimeRemainingSeconds != nil {
		timer = formatClock(*state.TimeRemainingSeconds)
		if state.Paused {
			timer += " paused"
		}
	}
	p.printf("[%d/%d answered | %s | %s] > ", state.Answered, state.Total, timer, state.AutosaveStatus)
}

func (p *player) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)
	state := p.ctrl.State()

	var err error
	switch strings.ToLower(cmd) {
	case "":
	case "help", "?":
		p.printf("%s\n", helpText)
	case "show":
		p.show()
	case "list":
		p.list()
	case "answer", "a":
		if len(state.Questions) == 0 {
			break
		}
		q := state.Questions[state.CurrentQuestionIndex]
		var value model.Answer
		if value, err = parseAnswer(q, arg); err == nil {
			err = p.ctrl.SetAnswer(q.ID, value)
		}
	case "flag", "f":
		if len(state.Questions) == 0 {
			break
		}
		err = p.ctrl.ToggleFlag(state.Questions[state.CurrentQuestionIndex].ID)
	case "next", "n":
		if err = p.ctrl.Navigate(state.CurrentQuestionIndex + 1); err == nil {
			p.show()
		}
	case "prev", "p":
		if err = p.ctrl.Navigate(state.CurrentQuestionIndex - 1); err == nil {
			p.show()
		}
	case "goto", "g":
		var n int
		if n, err = strconv.Atoi(arg); err == nil {
			if err = p.ctrl.Navigate(n - 1); err == nil {
				p.show()
			}
		}
	case "pause":
		err = p.ctrl.Pause()
	case "resume":
		err = p.ctrl.Resume()
	case "submit":
		_, err = p.ctrl.Submit(ctx, false)
		if errors.Is(err, session.ErrSubmitCancelled) {
			p.printf("Submission cancelled.\n")
			err = nil
		}
	case "exit":
		p.ctrl.Exit()
		p.printf("Left the quiz. Saved progress was cleared.\n")
		return true
	case "quit", "q":
		p.saveAndLeave()
		return true
	default:
		err = fmt.Errorf("unknown command %q (type help)", cmd)
	}

	if err != nil {
		p.printf("! %s\n", describe(err))
	}
	return false
}

func (p *player) show() {
	state := p.ctrl.State()
	if len(state.Questions) == 0 {
		p.printf("This quiz has no questions.\n")
		return
	}
	q := state.Questions[state.CurrentQuestionIndex]
	flagged := ""
	for _, id := range state.FlaggedQuestions {
		if id == q.ID {
			flagged = " [flagged]"
		}
	}
	p.printf("\n%s\nQuestion %d of %d%s\n%s\n", state.Title, state.CurrentQuestionIndex+1, state.Total, flagged, q.Text)
	for i, opt := range q.Options {
		p.printf("  %d. %s\n", i+1, opt)
	}
	p.printf("Your answer: %s\n", formatAnswer(q, state.Answers[q.ID]))
}

func (p *player) list() {
	state := p.ctrl.State()
	flagged := make(map[string]bool, len(state.FlaggedQuestions))
	for _, id := range state.FlaggedQuestions {
		flagged[id] = true
	}
	for i, q := range state.Questions {
		mark := " "
		if !model.AnswerIsEmpty(state.Answers[q.ID]) {
			mark = "x"
		}
		flag := ""
		if flagged[q.ID] {
			flag = " (flagged)"
		}
		p.printf("  [%s] %d. %s%s\n", mark, i+1, truncate(q.Text, 60), flag)
	}
}

func (p *player) finish() {
	state := p.ctrl.State()
	if state.Result == nil {
		return
	}
	r := state.Result
	p.printf("\nSubmitted. Score: %.1f / %.1f (%.0f%%)", r.Score, r.MaxScore, r.Percentage)
	if r.Passed {
		p.printf(" - passed")
	}
	p.printf("\n")
}

// confirmSubmit asks before sending an incomplete attempt.
func (p *player) confirmSubmit(ctx context.Context, answered, total int) (bool, error) {
	p.printf("You answered %d of %d questions. Submit anyway? [y/N] ", answered, total)
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return false, io.EOF
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes", nil
	}
}

func describe(err error) string {
	var confirmErr *session.ConfirmationRequiredError
	var submitErr *session.SubmitError
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, session.ErrTimeUp):
		return "time is up; your answers are being submitted"
	case errors.Is(err, session.ErrInvalidIndex):
		return "no such question"
	case errors.As(err, &confirmErr):
		return confirmErr.Error()
	case errors.Is(err, apiclient.ErrServiceUnavailable):
		return "cannot reach the server; your answers are kept, try submit again"
	case errors.As(err, &submitErr) && errors.As(err, &apiErr):
		return "submit failed: " + apiErr.Message + " (answers kept, try again)"
	}
	return err.Error()
}

func formatClock(seconds int) string {
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
