package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"golang.org/x/term"

	"github.com/goliatone/go-auth-starter/client"
)

// readPassword is swapped in tests
var readPassword = func() ([]byte, error) {
	return term.ReadPassword(int(os.Stdin.Fd()))
}

var errUsage = errors.New("invalid usage", errors.CategoryBadInput)

type app struct {
	api     *client.APIClient
	session *client.Context
	in      *bufio.Reader
	out     io.Writer
}

func newApp(apiURL string, store client.SessionStore, in *bufio.Reader, out io.Writer) *app {
	api := client.NewAPIClient(apiURL, store)
	return &app{
		api:     api,
		session: client.NewContext(api, store),
		in:      in,
		out:     out,
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if err := a.session.Hydrate(); err != nil {
		return err
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.register(ctx, rest)
	case "login":
		return a.login(ctx, rest)
	case "logout":
		if err := a.session.Logout(ctx); err != nil {
			fmt.Fprintf(a.out, "warning: %s\n", client.ErrorMessage(err))
		}
		fmt.Fprintln(a.out, "Logged out")
		return nil
	case "refresh":
		if err := a.session.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Token refreshed")
		return nil
	case "me":
		return a.requireSession(func() error {
			user, err := a.api.Me(ctx)
			return a.print(user, err)
		})
	case "profile":
		return a.profile(ctx, rest)
	case "users":
		return a.users(ctx, rest)
	case "user":
		if len(rest) != 1 {
			return errors.Wrap(errUsage, errors.CategoryBadInput, "invalid usage: user <id>")
		}
		user, err := a.api.GetUser(ctx, rest[0])
		return a.print(user, err)
	case "delete":
		if len(rest) != 1 {
			return errors.Wrap(errUsage, errors.CategoryBadInput, "invalid usage: delete <id>")
		}
		if err := a.api.DeleteUser(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "User deleted")
		return nil
	default:
		return errors.Wrap(errUsage, errors.CategoryBadInput, fmt.Sprintf("invalid usage: unknown command %q", cmd))
	}
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *name == "" {
		if *name, err = a.prompt("Name"); err != nil {
			return err
		}
	}
	if *email == "" {
		if *email, err = a.prompt("Email"); err != nil {
			return err
		}
	}
	password, err := a.password()
	if err != nil {
		return err
	}

	if err := a.session.Register(ctx, client.RegisterRequest{Name: *name, Email: *email, Password: password}); err != nil {
		return err
	}
	return a.welcome()
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = a.prompt("Email"); err != nil {
			return err
		}
	}
	password, err := a.password()
	if err != nil {
		return err
	}

	if err := a.session.Login(ctx, *email, password); err != nil {
		return err
	}
	return a.welcome()
}

func (a *app) profile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ContinueOnError)
	name := fs.String("name", "", "new display name")
	email := fs.String("email", "", "new email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var update client.ProfileUpdate
	if *name != "" {
		update.Name = name
	}
	if *email != "" {
		update.Email = email
	}

	user, err := a.api.UpdateProfile(ctx, update)
	return a.print(user, err)
}

func (a *app) users(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("users", flag.ContinueOnError)
	page := fs.Int("page", 1, "page number")
	limit := fs.Int("limit", 10, "page size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := a.api.ListUsers(ctx, *page, *limit)
	return a.print(res, err)
}

func (a *app) requireSession(fn func() error) error {
	if !a.session.State().IsAuthenticated() {
		return errors.New("not logged in, run: cli login", errors.CategoryAuth)
	}
	return fn()
}

func (a *app) welcome() error {
	state := a.session.State()
	if state.User == nil {
		return nil
	}
	fmt.Fprintf(a.out, "Welcome, %s (%s)\n", state.User.Name, state.User.Role)
	return nil
}

func (a *app) print(v any, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, print.MaybePrettyJSON(v))
	return nil
}

func (a *app) prompt(label string) (string, error) {
	fmt.Fprintf(a.out, "%s: ", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *app) password() (string, error) {
	fmt.Fprint(a.out, "Password: ")
	pw, err := readPassword()
	fmt.Fprintln(a.out)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
