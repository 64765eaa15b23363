package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/dealscope-client/comps"
	"github.com/jrsteele09/dealscope-client/internal/config"
	"github.com/jrsteele09/dealscope-client/internal/utils"
	"github.com/jrsteele09/dealscope-client/properties"
	"github.com/spf13/cobra"
)

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var email, password, code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session in the credential store",
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = config.GetEnv("DEALSCOPE_PASSWORD", "")
			}
			a := opts.app
			res, err := a.auth.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if res.MFARequired {
				if code == "" {
					return errors.New("this account requires a verification code, pass --code")
				}
				if err := a.auth.LoginMFA(cmd.Context(), res.MFAToken, code); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", email)
			if a.cfg.GetPlatform() == config.PlatformWeb {
				fmt.Fprintln(cmd.ErrOrStderr(), "Note: the session ends with this run on the web platform, use PLATFORM=mobile to keep it")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password (defaults to $DEALSCOPE_PASSWORD)")
	cmd.Flags().StringVar(&code, "code", "", "six digit MFA code")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget local credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.app.auth.Logout(cmd.Context()); err != nil {
				opts.app.logger.Warn().Err(err).Msg("server logout failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := opts.app.auth.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s> verified=%t mfa=%t\n", user.FullName, user.Email, user.EmailVerified, user.MFAEnabled)
			return nil
		},
	}
}

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var params properties.SearchParams
	var minPrice, maxPrice, page, pageSize int
	var beds, baths float64

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search property listings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				params.Query = args[0]
			}
			f := cmd.Flags()
			if f.Changed("min-price") {
				params.MinPrice = utils.Ptr(minPrice)
			}
			if f.Changed("max-price") {
				params.MaxPrice = utils.Ptr(maxPrice)
			}
			if f.Changed("beds") {
				params.Beds = utils.Ptr(beds)
			}
			if f.Changed("baths") {
				params.Baths = utils.Ptr(baths)
			}
			if f.Changed("page") {
				params.Page = utils.Ptr(page)
			}
			if f.Changed("page-size") {
				params.PageSize = utils.Ptr(pageSize)
			}

			res, err := opts.app.properties.Search(cmd.Context(), params)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tADDRESS\tPRICE\tBEDS\tBATHS\tTYPE")
			for _, p := range res.Items {
				fmt.Fprintf(tw, "%s\t%s, %s %s\t%.0f\t%g\t%g\t%s\n", p.ID, p.Address, p.City, p.State, p.Price, p.Beds, p.Baths, p.PropertyType)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d results\n", len(res.Items), res.Total)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&params.City, "city", "", "city")
	f.StringVar(&params.State, "state", "", "two letter state code")
	f.StringVar(&params.Zip, "zip", "", "zip code")
	f.StringVar(&params.PropertyType, "type", "", "property type, e.g. single_family")
	f.IntVar(&minPrice, "min-price", 0, "minimum list price")
	f.IntVar(&maxPrice, "max-price", 0, "maximum list price")
	f.Float64Var(&beds, "beds", 0, "minimum bedrooms")
	f.Float64Var(&baths, "baths", 0, "minimum bathrooms")
	f.IntVar(&page, "page", 1, "result page")
	f.IntVar(&pageSize, "page-size", 20, "results per page")
	return cmd
}

func newCompsCommand(opts *rootOptions) *cobra.Command {
	var rent bool
	var radius float64
	var limit int

	cmd := &cobra.Command{
		Use:   "comps <property-id>",
		Short: "Fetch sales or rental comparables for a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := comps.Query{PropertyID: args[0]}
			if cmd.Flags().Changed("radius") {
				q.RadiusMiles = utils.Ptr(radius)
			}
			if cmd.Flags().Changed("limit") {
				q.Limit = utils.Ptr(limit)
			}

			fetch := opts.app.comps.SalesComps
			label := "price"
			if rent {
				fetch = opts.app.comps.RentComps
				label = "rent"
			}
			res, err := fetch(cmd.Context(), q)
			if errors.Is(err, comps.ErrNoComps) {
				fmt.Fprintln(cmd.OutOrStdout(), "No comparable data for this property yet")
				return nil
			}
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "ADDRESS\t%s\tBEDS/BATHS\tSQFT\tMILES\tSCORE\n", label)
			for _, c := range res.Comparables {
				value := c.Price
				if rent {
					value = c.MonthlyRent
				}
				fmt.Fprintf(tw, "%s\t%.0f\t%g/%g\t%d\t%.1f\t%.2f\n", c.Address, value, c.Beds, c.Baths, c.Sqft, c.DistanceMiles, c.Similarity)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Estimate: %.0f (%s confidence)\n", res.Estimate, res.Confidence)
			return nil
		},
	}
	cmd.Flags().BoolVar(&rent, "rent", false, "rental comps instead of sales comps")
	cmd.Flags().Float64Var(&radius, "radius", 1, "search radius in miles")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum comparables")
	return cmd
}

func newSessionsCommand(opts *rootOptions) *cobra.Command {
	var revoke string
	var revokeOthers bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List or revoke signed-in devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			switch {
			case revokeOthers:
				if err := a.auth.RevokeOtherSessions(cmd.Context()); err != nil {
					return err
				}
			case revoke != "":
				if err := a.auth.RevokeSession(cmd.Context(), revoke); err != nil {
					return err
				}
			}

			sessions, err := a.auth.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDEVICE\tIP\tLAST ACTIVE\t")
			for _, s := range sessions {
				current := ""
				if s.Current {
					current = "(this device)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.UserAgent, s.IPAddress, s.LastActiveAt.Format("2006-01-02 15:04"), current)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&revoke, "revoke", "", "revoke the session with this id")
	cmd.Flags().BoolVar(&revokeOthers, "revoke-others", false, "revoke every session except this one")
	return cmd
}
