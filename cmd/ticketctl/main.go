// ticketctl administers events directly against the configured store,
// bypassing the HTTP API.  It reads the same environment as the server.
//
// Usage:
//
//	ticketctl derive --secret S --index N [--digest sha256|blake2b-256]
//	ticketctl create --owner O --name E --secret S --count N
//	ticketctl issue|show|delete --owner O --name E
//	ticketctl verify|refund --owner O --name E --credential HEX
//	ticketctl extend --owner O --name E --secret S --count N
//	ticketctl list --owner O
//	ticketctl token --owner O [--ttl 24h]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/iliyamo/event-ticket-vault/internal/bootstrap"
	"github.com/iliyamo/event-ticket-vault/internal/config"
	"github.com/iliyamo/event-ticket-vault/internal/logger"
	"github.com/iliyamo/event-ticket-vault/internal/model"
	"github.com/iliyamo/event-ticket-vault/internal/queue"
	"github.com/iliyamo/event-ticket-vault/internal/service"
	"github.com/iliyamo/event-ticket-vault/internal/utils"
)

func main() {
	logger.SetOutput(os.Stderr)
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"derive": {"print the credential for a secret and index", cmdDerive},
	"create": {"create an event", cmdCreate},
	"issue":  {"issue the next ticket", cmdIssue},
	"verify": {"redeem a ticket", cmdVerify},
	"refund": {"refund a ticket", cmdRefund},
	"extend": {"add tickets to an event", cmdExtend},
	"show":   {"show ticket counts for an event", cmdShow},
	"list":   {"list an owner's events", cmdList},
	"delete": {"delete an event", cmdDelete},
	"token":  {"mint an owner token for the HTTP API", cmdToken},
}

// app holds what commands share.  svc is opened on first use so derive
// and token work without a database.
type app struct {
	out     io.Writer
	cfg     *config.Config
	svc     *service.TicketService
	cleanup []func()
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(out)
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
	a := &app{out: out}
	defer a.close()
	return cmd.run(ctx, a, args[1:])
}

func usage(out io.Writer) {
	fmt.Fprintln(out, "Usage: ticketctl <command> [flags]")
	fmt.Fprintln(out)
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(out, "  %-8s %s\n", n, commands[n].summary)
	}
}

func (a *app) config() (config.Config, error) {
	if a.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return config.Config{}, err
		}
		logger.Configure(cfg.LogLevel, cfg.LogFormat)
		a.cfg = &cfg
	}
	return *a.cfg, nil
}

func (a *app) service(ctx context.Context) (*service.TicketService, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	store, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.cleanup = append(a.cleanup, store.Close)

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb != nil {
		a.cleanup = append(a.cleanup, func() { _ = rdb.Close() })
	}
	pub := queue.NewPublisher(cfg.RabbitURL, cfg.LifecycleQueue)
	a.cleanup = append(a.cleanup, func() { _ = pub.Close() })

	a.svc = bootstrap.NewService(cfg, store, rdb, pub)
	return a.svc, nil
}

func (a *app) close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newFlags(name string) *pflag.FlagSet {
	return pflag.NewFlagSet("ticketctl "+name, pflag.ContinueOnError)
}

// eventFlags registers --owner and --name, which most commands need.
func eventFlags(fs *pflag.FlagSet) (owner, name *string) {
	return fs.String("owner", "", "owner the event belongs to"), fs.String("name", "", "event name")
}

func required(pairs ...string) error {
	var errs []error
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			errs = append(errs, fmt.Errorf("--%s is required", pairs[i]))
		}
	}
	return errors.Join(errs...)
}

type eventOutput struct {
	Name   string      `json:"name"`
	Digest string      `json:"digest"`
	Stats  model.Stats `json:"stats"`
}

func eventJSON(ev *model.Event) eventOutput {
	return eventOutput{Name: ev.Name, Digest: ev.Digest, Stats: ev.Stats()}
}

func cmdDerive(_ context.Context, a *app, args []string) error {
	fs := newFlags("derive")
	secret := fs.String("secret", "", "event secret")
	index := fs.Int("index", 0, "ticket index")
	digest := fs.String("digest", utils.DigestSHA256, "digest algorithm (sha256 or blake2b-256)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("secret", *secret); err != nil {
		return err
	}
	if *index < 0 {
		return errors.New("--index must not be negative")
	}
	c, err := utils.DeriveWith(*digest, *secret, *index)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, utils.EncodeCredential(c))
	return nil
}

func cmdCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("create")
	owner, name := eventFlags(fs)
	secret := fs.String("secret", "", "event secret")
	count := fs.Int("count", 0, "number of tickets")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("owner", *owner, "name", *name, "secret", *secret); err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	ev, err := svc.CreateEvent(ctx, *owner, *secret, *name, *count)
	if err != nil {
		return err
	}
	return a.print(eventJSON(ev))
}

func cmdIssue(ctx context.Context, a *app, args []string) error {
	fs := newFlags("issue")
	owner, name := eventFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("owner", *owner, "name", *name); err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	t, err := svc.IssueTicket(ctx, *owner, *name)
	if err != nil {
		return err
	}
	return a.print(map[string]string{"event": *name, "credential": utils.EncodeCredential(t.Credential)})
}

// credentialCommand backs verify and refund, which share their flags.
func credentialCommand(ctx context.Context, a *app, verb string, args []string,
	op func(svc *service.TicketService, owner, name string, cred []byte) (bool, error)) error {
	fs := newFlags(verb)
	owner, name := eventFlags(fs)
	credHex := fs.String("credential", "", "ticket credential as hex")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("owner", *owner, "name", *name, "credential", *credHex); err != nil {
		return err
	}
	cred, err := utils.DecodeCredential(*credHex)
	if err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	ok, err := op(svc, *owner, *name, cred)
	if err != nil {
		return err
	}
	return a.print(map[string]bool{verb: ok})
}

func cmdVerify(ctx context.Context, a *app, args []string) error {
	return credentialCommand(ctx, a, "valid", args, func(svc *service.TicketService, owner, name string, cred []byte) (bool, error) {
		return svc.VerifyTicket(ctx, owner, name, cred)
	})
}

func cmdRefund(ctx context.Context, a *app, args []string) error {
	return credentialCommand(ctx, a, "refunded", args, func(svc *service.TicketService, owner, name string, cred []byte) (bool, error) {
		return svc.RefundTicket(ctx, owner, name, cred)
	})
}

func cmdExtend(ctx context.Context, a *app, args []string) error {
	fs := newFlags("extend")
	owner, name := eventFlags(fs)
	secret := fs.String("secret", "", "secret the event was created with")
	count := fs.Int("count", 0, "number of tickets to add")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("owner", *owner, "name", *name, "secret", *secret); err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	ev, err := svc.ExtendEvent(ctx, *owner, *name, *secret, *count)
	if err != nil {
		return err
	}
	return a.print(eventJSON(ev))
}

func cmdShow(ctx context.Context, a *app, args []string) error {
	fs := newFlags("show")
	owner, name := eventFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("owner", *owner, "name", *name); err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	ev, err := svc.GetEvent(ctx, *owner, *name)
	if err != nil {
		return err
	}
	return a.print(eventJSON(ev))
}

func cmdList(ctx context.Context, a *app, args []string) error {
	fs := newFlags("list")
	owner := fs.String("owner", "", "owner whose events to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("owner", *owner); err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	names, err := svc.ListEvents(ctx, *owner)
	if err != nil {
		return err
	}
	return a.print(names)
}

func cmdDelete(ctx context.Context, a *app, args []string) error {
	fs := newFlags("delete")
	owner, name := eventFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("owner", *owner, "name", *name); err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	if err := svc.DeleteEvent(ctx, *owner, *name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %s/%s\n", *owner, *name)
	return nil
}

func cmdToken(_ context.Context, a *app, args []string) error {
	fs := newFlags("token")
	owner := fs.String("owner", "", "owner the token authenticates")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
	secret := fs.String("jwt-secret", "", "signing key (default: JWT_SECRET)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required("owner", *owner); err != nil {
		return err
	}
	key := *secret
	if key == "" {
		cfg, err := a.config()
		if err != nil {
			return err
		}
		key = cfg.JWTSecret
	}
	if key == "" {
		return errors.New("no signing key: set JWT_SECRET or pass --jwt-secret")
	}
	tok, err := utils.NewAccessToken(key, *owner, *ttl)
	if err != nil {
		return err
	}
	return a.print(map[string]string{"token": tok.Token, "expires_at": tok.Exp.Format(time.RFC3339)})
}
