// Command authctl drives the token and credential engine from a shell:
// hashing, token issue and validation, settings and accounts.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aussiebroadwan/authcore/internal/auth/app"
	"github.com/aussiebroadwan/authcore/internal/auth/domain"
	"github.com/aussiebroadwan/authcore/internal/auth/service"
	"github.com/aussiebroadwan/authcore/internal/auth/store"
	"github.com/aussiebroadwan/authcore/pkg/cryptox"
	"github.com/aussiebroadwan/authcore/pkg/idx"
)

const usage = `usage: authctl <command> [flags] [args]

commands:
  hash <password>                 hash with a fresh salt
  verify <password> <hash>        exit 1 when the password does not match
  salt [-length n]                print a new bcrypt salt
  random-password                 print a generated password
  issue [-from f] [-with w] <user>  issue an access/refresh pair
  validate [-kind k] <token>      verify and print the payload
  inspect <token>                 print claims without verifying
  refresh <refresh-token>         issue a new access token
  settings list
  settings get <name>
  settings set [-type t] [-description d] <name> <value>
  settings delete <name>
  account create <id> <password>
  account passwd <id> <password>
  account login [-with w] <id> <password>
  keygen                          print an Ed25519 private key (PEM)
  secrets                         print fresh HS256 secrets and payload cipher keys as env lines
`

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		stop()
		log.Fatalf("authctl %s: %v", os.Args[1], err)
	}
}

func run(ctx context.Context, cmd string, args []string, out io.Writer) error {
	// Commands that need no configuration.
	switch cmd {
	case "keygen":
		pemKey, err := cryptox.GenerateEd25519Key()
		if err != nil {
			return err
		}
		_, err = out.Write(pemKey)
		return err
	case "secrets":
		return secretsCmd(out)
	case "help", "-h", "--help":
		_, err := fmt.Fprint(out, usage)
		return err
	}

	application, err := app.New(app.LoadConfig())
	if err != nil {
		return err
	}
	defer func() { _ = application.Close() }()

	switch cmd {
	case "hash":
		return hashCmd(ctx, application, args, out)
	case "verify":
		return verifyCmd(ctx, application, args, out)
	case "salt":
		return saltCmd(application, args, out)
	case "random-password":
		pw, err := application.Auth().CreateRandomPassword()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, pw)
		return err
	case "issue":
		return issueCmd(application, args, out)
	case "validate":
		return validateCmd(application, args, out)
	case "inspect":
		return inspectCmd(application, args, out)
	case "refresh":
		return refreshCmd(application, args, out)
	case "settings":
		return settingsCmd(ctx, application, args, out)
	case "account":
		return accountCmd(ctx, application, args, out)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func parse(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != want {
		return nil, fmt.Errorf("expected %d argument(s), got %d", want, fs.NArg())
	}
	return fs.Args(), nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func secretsCmd(out io.Writer) error {
	lines := []struct {
		key  string
		size int
	}{
		{"AUTH_JWT_ACCESS_TOKEN_SECRET_KEY", cryptox.SecretSize},
		{"AUTH_JWT_REFRESH_TOKEN_SECRET_KEY", cryptox.SecretSize},
		{"AUTH_JWT_PAYLOAD_ACCESS_TOKEN_ENCRYPT_KEY", cryptox.KeySize256},
		{"AUTH_JWT_PAYLOAD_ACCESS_TOKEN_ENCRYPT_IV", cryptox.IVSizeRaw},
		{"AUTH_JWT_PAYLOAD_REFRESH_TOKEN_ENCRYPT_KEY", cryptox.KeySize256},
		{"AUTH_JWT_PAYLOAD_REFRESH_TOKEN_ENCRYPT_IV", cryptox.IVSizeRaw},
	}
	for _, l := range lines {
		v, err := cryptox.GenerateToken(l.size)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s=%s\n", l.key, v); err != nil {
			return err
		}
	}
	return nil
}

func hashCmd(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	rec, err := a.Auth().CreatePassword(ctx, rest[0])
	if err != nil {
		return err
	}
	return printJSON(out, map[string]any{
		"passwordHash":    rec.PasswordHash,
		"passwordCreated": rec.PasswordCreated.Format(time.RFC3339),
		"passwordExpired": rec.PasswordExpired.Format(time.RFC3339),
	})
}

func verifyCmd(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	rest, err := parse(fs, args, 2)
	if err != nil {
		return err
	}

	if !a.Auth().Authenticate(ctx, rest[0], rest[1]) {
		return errors.New("password does not match")
	}
	_, err = fmt.Fprintln(out, "ok")
	return err
}

func saltCmd(a *app.Application, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("salt", flag.ContinueOnError)
	length := fs.Int("length", a.Credentials().SaltLength(), "bcrypt cost")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	salt, err := a.Auth().CreateSalt(*length)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, salt)
	return err
}

func issueCmd(a *app.Application, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	from := fs.String("from", string(domain.LoginFromPassword), "PASSWORD or GOOGLE")
	with := fs.String("with", string(domain.LoginWithUsername), "EMAIL, MOBILE_NUMBER or USERNAME")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	lf, lw := domain.LoginFrom(*from), domain.LoginWith(*with)
	if !lf.Valid() || !lw.Valid() {
		return fmt.Errorf("invalid -from %q or -with %q", *from, *with)
	}

	pair, err := a.Auth().CreateTokenPair(rest[0], lf, lw)
	if err != nil {
		return err
	}
	return printJSON(out, pair)
}

func validateCmd(a *app.Application, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	kind := fs.String("kind", "access", "access or refresh")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	var payload domain.LoginPayload
	switch *kind {
	case "access":
		payload, err = a.Auth().ValidateAccessToken(rest[0])
	case "refresh":
		payload, err = a.Auth().ValidateRefreshToken(rest[0])
	default:
		return fmt.Errorf("invalid -kind %q", *kind)
	}
	if err != nil {
		return err
	}
	return printJSON(out, payload)
}

func inspectCmd(a *app.Application, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	claims, err := a.Auth().PayloadAccessToken(rest[0])
	if err != nil {
		return err
	}
	return printJSON(out, claims)
}

func refreshCmd(a *app.Application, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	pair, err := a.Auth().RefreshAccessToken(rest[0])
	if err != nil {
		return err
	}
	return printJSON(out, pair)
}

func settingsCmd(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("settings needs a subcommand: list, get, set or delete")
	}
	repo := a.Store().Settings()

	switch args[0] {
	case "list":
		settings, err := repo.ListSettings(ctx)
		if err != nil {
			return err
		}
		for _, s := range settings {
			if _, err := fmt.Fprintf(out, "%-24s %-16s %s\n", s.Name, s.Type, s.Value); err != nil {
				return err
			}
		}
		return nil

	case "get":
		rest, err := parse(flag.NewFlagSet("settings get", flag.ContinueOnError), args[1:], 1)
		if err != nil {
			return err
		}
		s, err := repo.FindOneByName(ctx, rest[0])
		if err != nil {
			return err
		}
		value, err := service.GetValue(s)
		if err != nil {
			return err
		}
		return printJSON(out, map[string]any{"name": s.Name, "type": s.Type, "value": value})

	case "set":
		fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
		typ := fs.String("type", string(domain.SettingString), "BOOLEAN, NUMBER, STRING or ARRAY_OF_STRING")
		desc := fs.String("description", "", "description for a new setting")
		rest, err := parse(fs, args[1:], 2)
		if err != nil {
			return err
		}
		st := domain.SettingType(strings.ToUpper(*typ))
		if !st.Valid() || !service.CheckValue(rest[1], st) {
			return fmt.Errorf("%w: %q is not a valid %s", service.ErrSettingValue, rest[1], *typ)
		}

		err = repo.UpdateSettingValue(ctx, rest[0], st, rest[1])
		if errors.Is(err, store.ErrNotFound) {
			err = repo.CreateSetting(ctx, domain.Setting{
				ID:          idx.New().String(),
				Name:        rest[0],
				Description: *desc,
				Type:        st,
				Value:       rest[1],
			})
		}
		return err

	case "delete":
		rest, err := parse(flag.NewFlagSet("settings delete", flag.ContinueOnError), args[1:], 1)
		if err != nil {
			return err
		}
		return repo.DeleteSetting(ctx, rest[0])
	}
	return fmt.Errorf("unknown settings subcommand %q", args[0])
}

func accountCmd(ctx context.Context, a *app.Application, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("account needs a subcommand: create, passwd or login")
	}

	switch args[0] {
	case "create":
		rest, err := parse(flag.NewFlagSet("account create", flag.ContinueOnError), args[1:], 2)
		if err != nil {
			return err
		}
		acc, err := a.Auth().CreateAccount(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "created %s, password expires %s\n", acc.ID, acc.PasswordExpired.Format(time.RFC3339))
		return err

	case "passwd":
		rest, err := parse(flag.NewFlagSet("account passwd", flag.ContinueOnError), args[1:], 2)
		if err != nil {
			return err
		}
		rec, err := a.Auth().ChangePassword(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "updated %s, password expires %s\n", rest[0], rec.PasswordExpired.Format(time.RFC3339))
		return err

	case "login":
		fs := flag.NewFlagSet("account login", flag.ContinueOnError)
		with := fs.String("with", string(domain.LoginWithUsername), "EMAIL, MOBILE_NUMBER or USERNAME")
		rest, err := parse(fs, args[1:], 2)
		if err != nil {
			return err
		}
		pair, err := a.Auth().Login(ctx, rest[0], rest[1], domain.LoginWith(*with))
		if err != nil {
			return err
		}
		return printJSON(out, pair)
	}
	return fmt.Errorf("unknown account subcommand %q", args[0])
}
