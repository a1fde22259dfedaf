package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/commissions/internal/client"
	"github.com/dmitrijs2005/commissions/internal/logging"
	"github.com/dmitrijs2005/commissions/internal/server"
	"github.com/dmitrijs2005/commissions/internal/server/auth"
	"github.com/dmitrijs2005/commissions/internal/server/config"
	"github.com/dmitrijs2005/commissions/internal/server/services"
	"github.com/urfave/cli/v2"
)

type ctl struct {
	out    io.Writer
	cfg    *config.Config
	logger logging.Logger
}

func newApp(out, errOut io.Writer) *cli.App {
	c := &ctl{out: out}

	return &cli.App{
		Name:      "commissionctl",
		Usage:     "operate the commission engine",
		Writer:    out,
		ErrWriter: errOut,
		Flags:     []cli.Flag{configFlag, dsnFlag, bucketFlag, redisFlag, adminsFlag, logFormatFlag},
		Before:    c.load,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: c.migrate,
			},
			{
				Name:  "sweep",
				Usage: "run the expiration engine",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "every live contract"},
					&cli.StringFlag{Name: "user", Usage: "every live contract of this user"},
					&cli.StringFlag{Name: "contract", Usage: "one contract"},
					&cli.StringFlag{Name: "as", Usage: "party or admin the contract sweep runs for"},
					&cli.DurationFlag{Name: "interval", Usage: "repeat until interrupted"},
				},
				Action: c.sweep,
			},
			{
				Name:  "deposit",
				Usage: "credit a wallet",
				Flags: []cli.Flag{
					actingAdminFlag,
					&cli.StringFlag{Name: "user", Required: true},
					amountFlag,
					&cli.StringFlag{Name: "note"},
				},
				Action: c.deposit,
			},
			{
				Name:  "transfer",
				Usage: "move available funds between users",
				Flags: []cli.Flag{
					actingAdminFlag,
					&cli.StringFlag{Name: "from", Required: true},
					&cli.StringFlag{Name: "to", Required: true},
					amountFlag,
					&cli.StringFlag{Name: "reason"},
				},
				Action: c.transfer,
			},
			{
				Name:  "grant-admin",
				Usage: "set the admin flag of a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
					&cli.StringFlag{Name: "name", Usage: "username recorded if the user is unknown"},
					&cli.BoolFlag{Name: "revoke"},
				},
				Action: c.grantAdmin,
			},
			{
				Name:  "token",
				Usage: "issue a development access token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
					&cli.StringFlag{Name: "name"},
					&cli.DurationFlag{Name: "ttl"},
				},
				Action: c.token,
			},
			{
				Name:  "remote",
				Usage: "call a running server",
				Flags: []cli.Flag{addrFlag, tokenFlag},
				Subcommands: []*cli.Command{
					{Name: "ping", Action: c.remote(func(ctx context.Context, api *client.GRPCClient, _ *cli.Context) (any, error) {
						return map[string]string{"status": "OK"}, api.Ping(ctx)
					})},
					{Name: "me", Action: c.remote(func(ctx context.Context, api *client.GRPCClient, _ *cli.Context) (any, error) {
						return api.Me(ctx)
					})},
					{Name: "wallet", Action: c.remote(func(ctx context.Context, api *client.GRPCClient, _ *cli.Context) (any, error) {
						return api.GetWallet(ctx)
					})},
					{
						Name:  "sweep",
						Flags: []cli.Flag{&cli.StringFlag{Name: "contract"}},
						Action: c.remote(func(ctx context.Context, api *client.GRPCClient, cc *cli.Context) (any, error) {
							return api.ProcessExpirations(ctx, cc.String("contract"))
						}),
					},
				},
			},
		},
	}
}

func (c *ctl) load(cc *cli.Context) error {
	cfg, err := config.LoadFile(cc.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cc.IsSet(dsnFlag.Name) {
		cfg.DatabaseDSN = cc.String(dsnFlag.Name)
	}
	if cc.IsSet(bucketFlag.Name) {
		cfg.S3Bucket = cc.String(bucketFlag.Name)
	}
	if cc.IsSet(redisFlag.Name) {
		cfg.RedisAddr = cc.String(redisFlag.Name)
	}
	if cc.IsSet(adminsFlag.Name) {
		cfg.AdminUserIDs = cc.StringSlice(adminsFlag.Name)
	}
	if cc.IsSet(logFormatFlag.Name) {
		cfg.LogFormat = cc.String(logFormatFlag.Name)
	}
	c.cfg = cfg
	c.logger = logging.New(cfg.LogFormat, cc.App.ErrWriter)
	return nil
}

func (c *ctl) print(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, string(b))
	return err
}

// withBackend opens the configured storage for the duration of fn.
func (c *ctl) withBackend(cc *cli.Context, fn func(ctx context.Context, b *server.Backend) error) error {
	ctx := cc.Context
	b, err := server.OpenBackend(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(); err != nil {
			c.logger.Warn(ctx, "closing backend", "error", err)
		}
	}()
	return fn(ctx, b)
}

func (c *ctl) withServices(cc *cli.Context, fn func(ctx context.Context, svc *services.Services) error) error {
	return c.withBackend(cc, func(ctx context.Context, b *server.Backend) error {
		svc, err := b.Services(c.cfg, c.logger)
		if err != nil {
			return err
		}
		return fn(ctx, svc)
	})
}

func (c *ctl) migrate(cc *cli.Context) error {
	return c.withBackend(cc, func(ctx context.Context, b *server.Backend) error {
		if err := b.Migrate(ctx); err != nil {
			return err
		}
		c.logger.Info(ctx, "migrations applied")
		return nil
	})
}

func (c *ctl) sweep(cc *cli.Context) error {
	all, user, contract := cc.Bool("all"), cc.String("user"), cc.String("contract")
	set := 0
	for _, on := range []bool{all, user != "", contract != ""} {
		if on {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of --all, --user or --contract is required")
	}
	if contract != "" && cc.String("as") == "" {
		return fmt.Errorf("--contract needs --as")
	}

	return c.withServices(cc, func(ctx context.Context, svc *services.Services) error {
		run := func() error {
			var (
				sum *services.ExpirationSummary
				err error
			)
			switch {
			case all:
				sum, err = svc.Reconciler.ProcessAll(ctx)
			case user != "":
				sum, err = svc.Reconciler.ProcessAllUserExpirations(ctx, user)
			default:
				sum, err = svc.Reconciler.ProcessContractExpirations(ctx, contract, cc.String("as"))
			}
			if err != nil {
				return err
			}
			return c.print(sum)
		}

		if err := run(); err != nil {
			return err
		}
		interval := cc.Duration("interval")
		if interval <= 0 {
			return nil
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := run(); err != nil {
					c.logger.Error(ctx, "sweep failed", "error", err)
				}
			}
		}
	})
}

func (c *ctl) deposit(cc *cli.Context) error {
	return c.withServices(cc, func(ctx context.Context, svc *services.Services) error {
		w, err := svc.Ledger.Deposit(ctx, cc.String("admin"), cc.String("user"), cc.Int64("amount"), cc.String("note"))
		if err != nil {
			return err
		}
		return c.print(w)
	})
}

func (c *ctl) transfer(cc *cli.Context) error {
	return c.withServices(cc, func(ctx context.Context, svc *services.Services) error {
		from, to := cc.String("from"), cc.String("to")
		if err := svc.Ledger.TransferBetweenUsers(ctx, from, to, cc.Int64("amount"), cc.String("admin"), cc.String("reason")); err != nil {
			return err
		}
		w, err := svc.Ledger.GetWallet(ctx, to)
		if err != nil {
			return err
		}
		return c.print(w)
	})
}

func (c *ctl) grantAdmin(cc *cli.Context) error {
	return c.withServices(cc, func(ctx context.Context, svc *services.Services) error {
		id := cc.String("user")
		if name := cc.String("name"); name != "" {
			if _, err := svc.Users.EnsureUser(ctx, id, name); err != nil {
				return err
			}
		}
		if err := svc.Users.SetAdmin(ctx, id, !cc.Bool("revoke")); err != nil {
			return err
		}
		u, err := svc.Users.GetUser(ctx, id)
		if err != nil {
			return err
		}
		return c.print(u)
	})
}

func (c *ctl) token(cc *cli.Context) error {
	ttl := cc.Duration("ttl")
	if ttl <= 0 {
		ttl = c.cfg.AccessTokenValidityDuration
	}
	token, err := auth.GenerateToken(auth.Identity{UserID: cc.String("user"), Username: cc.String("name")}, []byte(c.cfg.SecretKey), ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.out, token)
	return err
}

func (c *ctl) remote(call func(ctx context.Context, api *client.GRPCClient, cc *cli.Context) (any, error)) cli.ActionFunc {
	return func(cc *cli.Context) error {
		api, err := client.NewClient(cc.String(addrFlag.Name), cc.String(tokenFlag.Name))
		if err != nil {
			return err
		}
		defer api.Close()

		ctx, cancel := context.WithTimeout(cc.Context, 30*time.Second)
		defer cancel()

		resp, err := call(ctx, api, cc)
		if err != nil {
			return err
		}
		return c.print(resp)
	}
}
