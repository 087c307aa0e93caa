package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-auth-starter/client"
)

const usage = `usage: cli [flags] <command> [args]

commands:
  register            create an account and log in
  login               log in with email and password
  logout              revoke the refresh token and forget the session
  refresh             rotate the stored token pair
  me                  show the current user
  profile             update name and/or email (-name, -email)
  users               list users, admin only (-page, -limit)
  user <id>           show a user
  delete <id>         delete a user, admin only

flags:
`

func main() {
	apiURL := flag.String("api", envOr("API_URL", "http://localhost:5000/api"), "API base URL")
	sessionPath := flag.String("session", "", "session file (default: user config dir)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	path := *sessionPath
	if path == "" {
		var err error
		if path, err = client.DefaultSessionPath(); err != nil {
			fmt.Fprintf(os.Stderr, "cli: %v\n", err)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newApp(*apiURL, client.NewFileStore(path), bufio.NewReader(os.Stdin), os.Stdout)
	if err := a.run(ctx, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", client.ErrorMessage(err))
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
