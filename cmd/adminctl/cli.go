package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/aussiebroadwan/admindash/pkg/authsdk"
)

const usage = `usage: adminctl [-server URL] [-store PATH] <command> [args]

commands:
  login [-email EMAIL] [-password PASSWORD]
  whoami
  users list
  users get ID
  users create -name NAME -email EMAIL [-role admin|user]
  users update ID [-name NAME] [-email EMAIL] [-role admin|user]
  users delete ID
  logout

environment:
  ADMINCTL_SERVER    server URL (default http://localhost:8080)
  ADMINCTL_STORE     credentials file (default in the user config dir)
  ADMINCTL_KEY       encrypt the credentials file with this key
  ADMINCTL_PASSWORD  password for login when -password is not given
`

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	client  *authsdk.Client
	session *authsdk.Session
	api     *authsdk.Gateway
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("adminctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	server := fs.String("server", envOr("ADMINCTL_SERVER", "http://localhost:8080"), "server URL")
	storePath := fs.String("store", os.Getenv("ADMINCTL_STORE"), "credentials file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	if *storePath == "" {
		p, err := authsdk.DefaultFileStorePath()
		if err != nil {
			fmt.Fprintln(stderr, "adminctl: no credentials path:", err)
			return 1
		}
		*storePath = p
	}

	opts := authsdk.SessionOptions{Store: authsdk.NewFileStore(*storePath)}
	if key := os.Getenv("ADMINCTL_KEY"); key != "" {
		opts.Codec = authsdk.NewSealedCodec([]byte(key))
	}

	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}
	c.client = authsdk.NewClient(*server)
	c.session = authsdk.NewSession(c.client, opts)
	c.api = authsdk.NewGateway(c.client, c.session)

	if err := c.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(stderr, "adminctl:", ue.msg)
			fmt.Fprint(stderr, usage)
			return 2
		}
		c.fail(err)
		return 1
	}
	return 0
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func (c *cli) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return c.login(ctx, args)
	case "whoami":
		return c.whoami(ctx)
	case "logout":
		c.session.Logout(ctx)
		c.ok("logged out")
		return nil
	case "users":
		if len(args) == 0 {
			return usageError{"users needs a subcommand"}
		}
		return c.users(ctx, args[0], args[1:])
	default:
		return usageError{fmt.Sprintf("unknown command %q", cmd)}
	}
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("ADMINCTL_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	if *email == "" {
		*email = c.prompt("Email: ")
	}
	if *password == "" {
		*password = c.prompt("Password: ")
	}

	user, err := c.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	c.ok(fmt.Sprintf("logged in as %s (%s)", user.Email, user.Role))
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	me, err := c.api.Me(ctx)
	if err != nil {
		return err
	}
	c.printUsers([]authsdk.User{*me})
	return nil
}

func (c *cli) users(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "list":
		users, err := c.api.ListUsers(ctx)
		if err != nil {
			return err
		}
		c.printUsers(users)
		return nil

	case "get":
		if len(args) != 1 {
			return usageError{"users get needs an ID"}
		}
		u, err := c.api.GetUser(ctx, args[0])
		if err != nil {
			return err
		}
		c.printUsers([]authsdk.User{*u})
		return nil

	case "create":
		fs := flag.NewFlagSet("users create", flag.ContinueOnError)
		fs.SetOutput(c.stderr)
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email address")
		role := fs.String("role", authsdk.RoleUser, "admin or user")
		if err := fs.Parse(args); err != nil {
			return usageError{err.Error()}
		}

		u, err := c.api.CreateUser(ctx, authsdk.CreateUserRequest{Name: *name, Email: *email, Role: *role})
		if err != nil {
			return err
		}
		c.ok("created " + u.ID)
		c.printUsers([]authsdk.User{*u})
		return nil

	case "update":
		if len(args) < 1 {
			return usageError{"users update needs an ID"}
		}
		id := args[0]

		var req authsdk.UpdateUserRequest
		fs := flag.NewFlagSet("users update", flag.ContinueOnError)
		fs.SetOutput(c.stderr)
		fs.Func("name", "display name", func(v string) error { req.Name = &v; return nil })
		fs.Func("email", "email address", func(v string) error { req.Email = &v; return nil })
		fs.Func("role", "admin or user", func(v string) error { req.Role = &v; return nil })
		if err := fs.Parse(args[1:]); err != nil {
			return usageError{err.Error()}
		}

		u, err := c.api.UpdateUser(ctx, id, req)
		if err != nil {
			return err
		}
		c.ok("updated " + u.ID)
		c.printUsers([]authsdk.User{*u})
		return nil

	case "delete":
		if len(args) != 1 {
			return usageError{"users delete needs an ID"}
		}
		u, err := c.api.DeleteUser(ctx, args[0])
		if err != nil {
			return err
		}
		c.ok(fmt.Sprintf("deleted %s (%s)", u.ID, u.Email))
		return nil

	default:
		return usageError{fmt.Sprintf("unknown users command %q", sub)}
	}
}

func (c *cli) printUsers(users []authsdk.User) {
	tw := tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tROLE\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, u.CreatedAt.Local().Format(time.DateTime))
	}
	_ = tw.Flush()
}

func (c *cli) prompt(label string) string {
	fmt.Fprint(c.stderr, label)
	line, _ := bufio.NewReader(c.stdin).ReadString('\n')
	return strings.TrimSpace(line)
}

func (c *cli) ok(msg string) {
	color.New(color.FgGreen).Fprintln(c.stdout, msg)
}

func (c *cli) fail(err error) {
	red := color.New(color.FgRed)

	var apiErr *authsdk.APIError
	switch {
	case errors.Is(err, authsdk.ErrInvalidCredentials):
		red.Fprintln(c.stderr, "invalid email or password")
	case errors.Is(err, authsdk.ErrUnauthenticated):
		red.Fprintln(c.stderr, "not logged in; run: adminctl login")
	case errors.Is(err, authsdk.ErrTransport):
		red.Fprintln(c.stderr, "server unreachable:", err)
	case errors.As(err, &apiErr):
		red.Fprintln(c.stderr, apiErr.Message)
		for _, field := range slices.Sorted(maps.Keys(apiErr.Details)) {
			fmt.Fprintf(c.stderr, "  %s: %s\n", field, apiErr.Details[field])
		}
	default:
		red.Fprintln(c.stderr, err)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
