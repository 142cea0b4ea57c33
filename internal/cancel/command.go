package cancel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/spf13/cobra"

	"jobcore/internal/apperrors"
	"jobcore/internal/config"
	"jobcore/pkg/cloudevent"
)

// Option names.
const (
	optHelp          = "help"
	optAdministrator = "administrator"
	optID            = "id"
)

// errHelpShown ends a run after usage was printed.
var errHelpShown = errors.New("help shown")

// Exchanger sends a request event and returns the reply event.
type Exchanger interface {
	Exchange(ctx context.Context, url string, event *cloudevent.CloudEvent, opts cloudevent.SendOptions) (*cloudevent.CloudEvent, error)
	Close()
}

// Options are the process dependencies of a run.
type Options struct {
	Stdout, Stderr io.Writer
	// CurrentUser names the caller.
	CurrentUser func() (string, error)
	// NewExchanger opens the transport. It is called only once the endpoint
	// is known.
	NewExchanger func() Exchanger
}

// DefaultOptions uses the process streams, the OS user and an HTTP sender.
func DefaultOptions() Options {
	return Options{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		CurrentUser: func() (string, error) {
			u, err := user.Current()
			if err != nil {
				return "", err
			}
			return u.Username, nil
		},
		NewExchanger: func() Exchanger {
			return cloudevent.NewSender(30 * time.Second)
		},
	}
}

// Run executes the cancel command with args and returns the exit code.
func Run(ctx context.Context, args []string, opts Options) int {
	if args == nil {
		// cobra falls back to os.Args for nil
		args = []string{}
	}
	cmd := NewCommand(args, opts)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)

	if help, _ := cmd.Flags().GetBool(optHelp); help {
		return 1
	}
	if err == nil {
		return 0
	}
	if !errors.Is(err, errHelpShown) {
		fmt.Fprintln(opts.Stderr, err)
	}
	return apperrors.ExitCode(err)
}

// NewCommand builds the cobra command. args are the raw arguments, used to
// detect options given more than once.
func NewCommand(args []string, opts Options) *cobra.Command {
	var (
		id            string
		administrator bool
	)

	cmd := &cobra.Command{
		Use:           "service-cancel --id <service> [--administrator]",
		Short:         "Cancel a running service",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().NFlag() == 0 {
				_ = cmd.Help()
				return errHelpShown
			}

			home, err := config.FindDuccHome()
			if err != nil {
				return err
			}
			if dups := duplicateOptions(args); len(dups) > 0 {
				return apperrors.Usage("duplicate options: --" + strings.Join(dups, ", --"))
			}
			id = strings.TrimSpace(id)
			if id == "" {
				return apperrors.Usage("missing required option --" + optID)
			}

			name, err := opts.CurrentUser()
			if err != nil {
				return apperrors.Internal("cancel.user", err)
			}
			req := Request{ID: id, User: name, Administrator: administrator}

			cfg, err := config.LoadClientConfig(home)
			if err != nil {
				return err
			}
			if cfg.SignatureRequired {
				key, err := cfg.ReadSignatureKey()
				if err != nil {
					return err
				}
				req.Signature = cloudevent.SignValue(name, key)
			}

			reply, err := dispatch(cmd.Context(), opts.NewExchanger, cfg.URL(), req)
			if reply != nil {
				fmt.Fprintln(opts.Stdout, reply.String())
			}
			return err
		},
	}
	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)

	flags := cmd.Flags()
	flags.SortFlags = false
	flags.Bool(optHelp, false, "print this message")
	flags.BoolVar(&administrator, optAdministrator, false, "act in the administrator role")
	flags.StringVar(&id, optID, "", "id of the service to cancel, e.g. 12")
	return cmd
}

// dispatch sends the request and decodes the reply. The transport is closed
// on every path.
func dispatch(ctx context.Context, open func() Exchanger, url string, req Request) (*Reply, error) {
	ex := open()
	defer ex.Close()

	slog.Debug("Dispatching cancel request", "url", url, "id", req.ID, "administrator", req.Administrator)
	event, err := ex.Exchange(ctx, url, req.Event(), cloudevent.SendOptions{})
	if event == nil {
		return nil, apperrors.Internal("cancel.dispatch", err)
	}
	reply, perr := ParseReply(event)
	if perr != nil {
		return nil, apperrors.Internal("cancel.reply", perr)
	}
	if err != nil {
		return &reply, apperrors.Internal("cancel.dispatch", err)
	}
	return &reply, nil
}

// duplicateOptions returns the long option names that appear more than once
// in args, in order of their second appearance.
func duplicateOptions(args []string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	dups := mapset.NewThreadUnsafeSet[string]()
	var ordered []string
	for _, a := range args {
		if a == "--" {
			break
		}
		name, ok := strings.CutPrefix(a, "--")
		if !ok || name == "" {
			continue
		}
		name, _, _ = strings.Cut(name, "=")
		if !seen.Add(name) && dups.Add(name) {
			ordered = append(ordered, name)
		}
	}
	return ordered
}
