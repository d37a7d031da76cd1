package main

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"leasing-site-api/internal/email"
	"leasing-site-api/internal/seo"
	"leasing-site-api/internal/store"
)

var defaultPersonas = []string{"startup", "fleet", "freelancer"}

func (c *cli) withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), c.timeout)
}

func adminRoleCmd(c *cli, use string, admin bool) *cobra.Command {
	short := "Grant the admin role to a user"
	if !admin {
		short = "Revoke the admin role from a user"
	}
	return &cobra.Command{
		Use:   use + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := mail.ParseAddress(args[0])
			if err != nil {
				return fmt.Errorf("invalid email %q", args[0])
			}
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			p, err := st.SetAdminByEmail(ctx, strings.ToLower(addr.Address), admin)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no user with email %s", addr.Address)
			}
			if err != nil {
				return err
			}
			c.log.Info("admin role updated", zap.String("email", p.Email), zap.Bool("is_admin", p.IsAdmin))
			fmt.Fprintf(c.out, "%s is_admin=%t\n", p.Email, p.IsAdmin)
			return nil
		},
	}
}

func checkPersonasCmd(c *cli) *cobra.Command {
	var personas []string
	cmd := &cobra.Command{
		Use:   "check-personas",
		Short: "List persona and locale pairs without a published landing page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			gaps, err := st.PersonaGaps(ctx, personas, c.cfg.I18n.Locales)
			if err != nil {
				return err
			}
			if len(gaps) == 0 {
				fmt.Fprintln(c.out, "all personas covered")
				return nil
			}
			for _, g := range gaps {
				fmt.Fprintf(c.out, "missing\t%s\t%s\n", g[0], g[1])
			}
			return fmt.Errorf("%d persona/locale pairs without a published page", len(gaps))
		},
	}
	cmd.Flags().StringSliceVar(&personas, "personas", defaultPersonas, "Personas to check")
	return cmd
}

func submitSitemapCmd(c *cli) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "submit-sitemap",
		Short: "Submit every sitemap URL to IndexNow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			sm := seo.NewSitemap(c.cfg.Server.SiteURL, c.cfg.I18n.Locales, c.cfg.I18n.DefaultLocale, st)
			urls, err := sm.URLs(ctx)
			if err != nil {
				return err
			}
			if dryRun {
				for _, u := range urls {
					fmt.Fprintln(c.out, u)
				}
				return nil
			}

			c.loadIntegrations(ctx)
			if c.indexNow == nil {
				return seo.ErrIndexNowDisabled
			}
			n, err := c.indexNow.Submit(ctx, c.cfg.Server.SiteURL, urls)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "submitted %d urls\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the URLs without submitting")
	return cmd
}

func sendEmailCmd(c *cli) *cobra.Command {
	var (
		to       string
		name     string
		template int64
		params   map[string]string
	)
	cmd := &cobra.Command{
		Use:   "send-email",
		Short: "Send a transactional template email",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := mail.ParseAddress(to)
			if err != nil {
				return fmt.Errorf("invalid --to %q", to)
			}
			if template <= 0 {
				return errors.New("--template must be a positive template id")
			}
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()

			c.loadIntegrations(ctx)
			if c.mailer == nil {
				return email.ErrDisabled
			}
			msg := email.Message{
				To:         []email.Address{{Email: addr.Address, Name: name}},
				TemplateID: template,
			}
			if len(params) > 0 {
				msg.Params = make(map[string]any, len(params))
				for k, v := range params {
					msg.Params[k] = v
				}
			}
			id, err := c.mailer.Send(ctx, msg)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "sent %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Recipient address")
	cmd.Flags().StringVar(&name, "name", "", "Recipient name")
	cmd.Flags().Int64Var(&template, "template", 0, "Template id")
	cmd.Flags().StringToStringVar(&params, "param", nil, "Template parameter key=value")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func syncShopifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-shopify <data-source-id>",
		Short: "Pull the product catalog of a connected shop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.withTimeout(cmd)
			defer cancel()

			st, err := c.openStore(ctx)
			if err != nil {
				return err
			}
			ds, err := st.GetDataSource(ctx, args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no data source %s", args[0])
			}
			if err != nil {
				return err
			}

			c.loadIntegrations(ctx)
			if c.shopify == nil {
				return errors.New("shopify not configured")
			}
			res, err := c.shopify.Sync(ctx, ds, st)
			if err != nil {
				return err
			}
			for _, e := range res.Errors {
				fmt.Fprintln(c.out, "skipped:", e)
			}
			fmt.Fprintf(c.out, "synced %d/%d products (%d failed)\n", res.Success, res.Total, res.Failed)
			return nil
		},
	}
}
