package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/newstype/internal/auth"
	"github.com/verte-zerg/newstype/internal/config"
	"github.com/verte-zerg/newstype/internal/model"
)

const authTimeout = 15 * time.Second

var (
	accountEmail string
	accountName  string
)

func newSignUpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthCmd(cmd, true)
		},
	}
	cmd.Flags().StringVar(&accountEmail, "email", "", "account email")
	cmd.Flags().StringVar(&accountName, "name", "", "display name (default: email user)")
	return cmd
}

func newSignInCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to save results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuthCmd(cmd, false)
		},
	}
	cmd.Flags().StringVar(&accountEmail, "email", "", "account email")
	return cmd
}

func newSignOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the signed-in account",
		Args:  cobra.NoArgs,
		RunE:  runSignOutCmd,
	}
}

func newWhoAmICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE:  runWhoAmICmd,
	}
}

func runAuthCmd(cmd *cobra.Command, create bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger, closeLog, err := openLogFile()
	if err != nil {
		return err
	}
	defer closeLog()
	be, err := openBackend(cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()
	email := strings.TrimSpace(accountEmail)
	if email == "" {
		if email, err = promptLine(in, out, "Email: "); err != nil {
			return err
		}
	}
	password, err := readPassword(cmd.InOrStdin(), in, out)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), authTimeout)
	defer cancel()
	var (
		id    model.Identity
		token string
	)
	if create {
		id, token, err = be.accounts.SignUp(ctx, email, password, accountName)
	} else {
		id, token, err = be.accounts.SignIn(ctx, email, password)
	}
	if err != nil {
		return authError(err)
	}
	logger.Info("signed in", "user", id.UserID, "created", create)
	if err := be.session.Set(id, token); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	where := "this computer"
	if be.remote {
		where = "the server"
	}
	if _, err := fmt.Fprintf(out, "Signed in as %s <%s>. Results are saved to %s.\n", id.DisplayName, id.Email, where); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// authError turns credential failures into a plain message.
func authError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, auth.ErrAuth) {
		return errors.New(strings.TrimPrefix(err.Error(), auth.ErrAuth.Error()+": "))
	}
	return err
}

func runSignOutCmd(cmd *cobra.Command, _ []string) error {
	session, err := auth.LoadContext(config.DefaultSessionPath())
	if err != nil {
		return err
	}
	if err := session.Clear(); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out."); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func runWhoAmICmd(cmd *cobra.Command, _ []string) error {
	session, err := auth.LoadContext(config.DefaultSessionPath())
	if err != nil {
		return err
	}
	line := notSignedInHint
	if id, ok := session.Current(); ok {
		line = fmt.Sprintf("%s <%s> (%s)", id.DisplayName, id.Email, id.UserID)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func promptLine(in *bufio.Reader, out io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo from a terminal, or a plain line when
// input is piped.
func readPassword(src io.Reader, in *bufio.Reader, out io.Writer) (string, error) {
	f, ok := src.(*os.File)
	if !ok || in.Buffered() > 0 || !term.IsTerminal(int(f.Fd())) {
		return promptLine(in, out, "Password: ")
	}
	fd := int(f.Fd())
	if _, err := fmt.Fprint(out, "Password: "); err != nil {
		return "", fmt.Errorf("failed to write prompt: %w", err)
	}
	raw, err := term.ReadPassword(fd)
	if _, perr := fmt.Fprintln(out); perr != nil {
		// Best-effort newline after hidden input.
		_ = perr
	}
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}
