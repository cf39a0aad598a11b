package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/aelexs/symptomcheck/internal/api"
	"github.com/aelexs/symptomcheck/internal/bootstrap"
	"github.com/aelexs/symptomcheck/internal/config"
	"github.com/aelexs/symptomcheck/internal/domain"
	"github.com/aelexs/symptomcheck/internal/errmap"
	"github.com/aelexs/symptomcheck/internal/session"
	"github.com/aelexs/symptomcheck/internal/view"
)

// command is one subcommand. needsSession commands stop early when the
// start-up check just evicted the session.
type command struct {
	needsSession bool
	run          func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"register": {run: runRegister},
	"login":    {run: runLogin},
	"logout":   {run: runLogout},
	"predict":  {needsSession: true, run: runPredict},
	"whoami":   {needsSession: true, run: runWhoami},
	"status":   {needsSession: true, run: runStatus},
}

// errUsage marks bad command-line input.
var errUsage = errors.New("usage")

func run(ctx context.Context, args []string, s streams) int {
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(s.err)
	baseURL := fs.String("base-url", "", "API base URL (overrides API_BASE_URL)")
	backend := fs.String("session-backend", "", "file, redis or memory (overrides SESSION_BACKEND)")
	color := fs.Bool("color", false, "color confidence bands")
	skipCheck := fs.Bool("skip-check", false, "do not validate the stored session on start")
	fs.Usage = func() { printUsage(s.err, fs.PrintDefaults) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errmap.ExitOK
		}
		return errmap.ExitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errmap.ExitUsage
	}
	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(s.err, "unknown command %q\n", name)
		fs.Usage()
		return errmap.ExitUsage
	}

	if _, err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(s.err, "Error: %v\n", err)
		return errmap.ExitFailure
	}
	if *baseURL != "" {
		overrideEnv("API_BASE_URL", *baseURL)
	}
	if *backend != "" {
		overrideEnv("SESSION_BACKEND", *backend)
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(s.err, "Error: %v\n", err)
		return errmap.ExitFailure
	}

	a, cleanup, err := setup(ctx, cfg, s, *color)
	if err != nil {
		fmt.Fprintf(s.err, "Error: %v\n", err)
		return errmap.ExitFailure
	}
	defer cleanup()

	if !*skipCheck {
		res := bootstrap.Run(ctx, a.client, a.logger)
		a.logger.Debug("session check", "result", res.String())
		if res == bootstrap.ResultInvalidated && cmd.needsSession {
			return errmap.ExitFailure
		}
	}

	err = cmd.run(ctx, a, fs.Args()[1:])
	if errors.Is(err, errUsage) {
		fmt.Fprintf(s.err, "%v\n", err)
		return errmap.ExitUsage
	}
	return a.term.Error(err)
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var req api.RegisterRequest
	fs.StringVar(&req.Firstname, "firstname", "", "first name")
	fs.StringVar(&req.Lastname, "lastname", "", "last name")
	fs.StringVar(&req.Username, "username", "", "username")
	fs.StringVar(&req.Email, "email", "", "email")
	password := fs.String("password", "", "password")
	passwordStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("register: %w: %w", errUsage, err)
	}

	pw, err := readPassword(a.in, *password, *passwordStdin)
	if err != nil {
		return err
	}
	req.Password = pw

	res, err := a.client.Register(ctx, req)
	if err != nil {
		return err
	}
	a.term.Registered(res)
	a.term.Navigate(ctx, res.Next)
	return nil
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	username := fs.String("username", "", "username")
	password := fs.String("password", "", "password")
	passwordStdin := fs.Bool("password-stdin", false, "read the password from stdin")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("login: %w: %w", errUsage, err)
	}

	pw, err := readPassword(a.in, *password, *passwordStdin)
	if err != nil {
		return err
	}

	res, err := a.client.Login(ctx, *username, pw)
	if err != nil {
		return err
	}
	a.term.LoggedIn(res)
	a.term.Navigate(ctx, res.Next)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	if err := a.client.Logout(ctx); err != nil {
		return err
	}
	a.term.LoggedOut()
	return nil
}

func runPredict(ctx context.Context, a *app, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("predict: %w: symptoms required, e.g. predict \"fever, cough\"", errUsage)
	}
	symptoms := view.ParseSymptoms(strings.Join(args, ","))

	p, err := a.client.Predict(ctx, symptoms)
	if err != nil {
		return err
	}
	a.term.Prediction(p)
	return nil
}

func runWhoami(ctx context.Context, a *app, _ []string) error {
	cred, ok, err := a.client.Current(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNoSession
	}
	a.term.Welcome(cred)
	return nil
}

func runStatus(ctx context.Context, a *app, _ []string) error {
	cred, ok, err := a.client.Current(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNoSession
	}

	a.term.Notify(ctx, fmt.Sprintf("user: %s (%s)", cred.Username, cred.Role))
	a.term.Notify(ctx, "backend: "+a.cfg.Session.Backend)

	info, err := session.Inspect(cred.Token)
	switch {
	case err != nil:
		a.term.Notify(ctx, "token: unreadable")
	case info.ExpiresAt.IsZero():
		a.term.Notify(ctx, "token: no expiry")
	case info.Expired(a.clock):
		a.term.Notify(ctx, "token: expired at "+info.ExpiresAt.Format(time.RFC3339))
	default:
		a.term.Notify(ctx, "token: expires in "+info.ExpiresIn(a.clock).Round(time.Second).String())
	}
	return nil
}

// readPassword returns the flag value, or the first line of in when
// fromStdin is set.
func readPassword(in io.Reader, flagValue string, fromStdin bool) (domain.SecretString, error) {
	if !fromStdin {
		return domain.SecretString(flagValue), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return domain.SecretString(strings.TrimRight(line, "\r\n")), nil
}

// overrideEnv lets a command-line flag win over the environment and .env.
func overrideEnv(key, value string) {
	_ = os.Setenv(key, value)
}
