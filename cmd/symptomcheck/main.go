// Package main is the symptomcheck command-line client. Each invocation is
// one page load: the stored session is validated, then one command runs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	code := run(ctx, os.Args[1:], streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	stop()
	os.Exit(code)
}

type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

const usage = `usage: symptomcheck [flags] <command> [command flags]

commands:
  register   create an account
  login      log in and store the session
  logout     drop the stored session
  predict    submit symptoms, e.g. predict "fever, cough"
  whoami     show the logged-in user
  status     show the stored session and its token expiry

flags:
`

func printUsage(w io.Writer, defaults func()) {
	fmt.Fprint(w, usage)
	defaults()
}
