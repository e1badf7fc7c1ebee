package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"bloom-client/internal/app"
	"bloom-client/internal/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type credentialFlags struct {
	username string
	password string
}

func (f *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.username, "username", "u", "", "account username (prompted when empty)")
	cmd.Flags().StringVarP(&f.password, "password", "p", "", "account password (prompted when empty)")
}

// resolve prompts on in for any value not given as a flag.
func (f *credentialFlags) resolve(in io.Reader, out io.Writer) (string, string, error) {
	reader := bufio.NewReader(in)
	username, password := f.username, f.password
	var err error
	if username == "" {
		if username, err = prompt(reader, out, "Username: "); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = prompt(reader, out, "Password: "); err != nil {
			return "", "", err
		}
	}
	return username, password, nil
}

func prompt(r *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func NewLoginCmd(opts *rootOptions) *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(cmd, opts, &flags, func(ctx context.Context, auth *app.AuthService, u, p string) (domain.Credentials, error) {
				return auth.Login(ctx, u, p)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func NewRegisterCmd(opts *rootOptions) *cobra.Command {
	var flags credentialFlags
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and store the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAuth(cmd, opts, &flags, func(ctx context.Context, auth *app.AuthService, u, p string) (domain.Credentials, error) {
				return auth.Register(ctx, u, p)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func withAuth(cmd *cobra.Command, opts *rootOptions, flags *credentialFlags,
	run func(context.Context, *app.AuthService, string, string) (domain.Credentials, error)) error {
	env, err := opts.clientEnv(cmd.Context())
	if err != nil {
		return err
	}
	defer env.close()

	username, password, err := flags.resolve(cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	creds, err := run(cmd.Context(), app.NewAuthService(env.client, env.sess, env.log), username, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", creds.Username)
	if env.cfg.Session.Backend == "memory" {
		fmt.Fprintln(cmd.OutOrStdout(), "Note: the memory session backend forgets this login when the command exits.")
	}
	return nil
}

func NewLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.clientEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			if err := app.NewAuthService(env.client, env.sess, env.log).Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func NewWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored username and survey progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.clientEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer env.close()

			creds := env.sess.Credentials(cmd.Context())
			switch {
			case !creds.Authenticated():
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			case creds.Username == "":
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), creds.Username)
			}
			if !creds.Authenticated() {
				return nil
			}
			p, err := env.client.Progress(cmd.Context())
			if err != nil {
				env.log.Debug("progress lookup failed", zap.Error(err))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Progress: %d of %d answered (%d%%)\n", p.Answered, p.Total, p.Percent)
			return nil
		},
	}
}
