// Command leasing-admin runs one-shot maintenance tasks against the site
// database and its integrations.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leasing-site-api/internal/app"
	"leasing-site-api/internal/config"
	"leasing-site-api/internal/email"
	"leasing-site-api/internal/logger"
	"leasing-site-api/internal/model"
	"leasing-site-api/internal/seo"
	"leasing-site-api/internal/shopify"
	"leasing-site-api/internal/store"
)

type adminStore interface {
	seo.ContentSource
	shopify.ProductSink
	SetAdminByEmail(ctx context.Context, email string, admin bool) (*model.Profile, error)
	PersonaGaps(ctx context.Context, personas, locales []string) ([][2]string, error)
	GetDataSource(ctx context.Context, id string) (*model.DataSource, error)
}

type mailer interface {
	Send(ctx context.Context, msg email.Message) (string, error)
}

type productSyncer interface {
	Sync(ctx context.Context, ds *model.DataSource, sink shopify.ProductSink) (*model.SyncResult, error)
}

type submitter interface {
	Submit(ctx context.Context, siteURL string, urls []string) (int, error)
}

// cli holds what commands need. Fields left nil are built from config on
// first use; tests fill them in up front.
type cli struct {
	cfg      *config.Config
	log      *zap.Logger
	out      io.Writer
	store    adminStore
	mailer   mailer
	shopify  productSyncer
	indexNow submitter
	timeout  time.Duration

	integrations bool
	closers      []func()
}

func (c *cli) loadConfig() error {
	if c.cfg == nil {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		c.cfg = cfg
	}
	if c.log == nil {
		c.log = logger.New(c.cfg.Log.Level, c.cfg.Log.Format)
	}
	return nil
}

func (c *cli) openStore(ctx context.Context) (adminStore, error) {
	if c.store != nil {
		return c.store, nil
	}
	pool, err := store.Connect(ctx, c.cfg.Database.URL, 2)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, pool.Close)
	c.store = store.New(pool)
	return c.store, nil
}

// loadIntegrations fills only the clients that are still nil and configured.
func (c *cli) loadIntegrations(ctx context.Context) {
	if c.integrations {
		return
	}
	c.integrations = true
	in := app.NewIntegrations(ctx, c.cfg, c.log)
	if c.mailer == nil && in.Mailer != nil {
		c.mailer = in.Mailer
	}
	if c.shopify == nil && in.Shopify != nil {
		c.shopify = in.Shopify
	}
	if c.indexNow == nil && in.IndexNow != nil {
		c.indexNow = in.IndexNow
	}
}

func (c *cli) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
	if c.log != nil {
		_ = c.log.Sync()
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "leasing-admin",
		Short:         "Maintenance tasks for the leasing site",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.out = cmd.OutOrStdout()
			return c.loadConfig()
		},
		PersistentPostRun: func(*cobra.Command, []string) { c.close() },
	}
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 2*time.Minute, "Operation timeout")

	root.AddCommand(
		adminRoleCmd(c, "make-admin", true),
		adminRoleCmd(c, "revoke-admin", false),
		checkPersonasCmd(c),
		submitSitemapCmd(c),
		sendEmailCmd(c),
		syncShopifyCmd(c),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	if err := newRootCmd(c).ExecuteContext(ctx); err != nil {
		c.close()
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
