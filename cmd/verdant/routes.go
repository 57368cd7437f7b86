package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/verdant"
	"github.com/vango-dev/verdant/pkg/api"
	"github.com/vango-dev/verdant/pkg/page"
	"github.com/vango-dev/verdant/pkg/router"
)

func routesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List page and API routes",
		Long: `List every page route with its kind and navigation flags, and every
API path with its method and declared schemas. Pages are listed in the
order they win when several patterns match a path.

Examples:
  verdant routes
  verdant routes --json > routes.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := newApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), appOptions{})
			if err != nil {
				return err
			}
			if asJSON {
				return writeRoutesJSON(os.Stdout, app)
			}
			return writeRoutes(os.Stdout, app)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print routes as JSON")

	return cmd
}

type pageRoute struct {
	Pattern     string `json:"pattern"`
	Kind        string `json:"kind"`
	Navigable   bool   `json:"navigable"`
	Interactive bool   `json:"interactive"`
	Redirects   bool   `json:"redirects,omitempty"`
}

type routeList struct {
	Pages   []pageRoute     `json:"pages"`
	APIBase string          `json:"apiBase"`
	API     []api.RouteMeta `json:"api"`
}

func listRoutes(app *verdant.App) routeList {
	out := routeList{APIBase: app.Config().APIBase}

	routes := app.Engine().Registry().Routes()
	byPattern := make(map[string]*page.Route, len(routes))
	patterns := make([]router.Pattern, 0, len(routes))
	for _, r := range routes {
		byPattern[r.Parsed.String()] = r
		patterns = append(patterns, r.Parsed)
	}
	router.SortBySpecificity(patterns)

	for _, p := range patterns {
		r := byPattern[p.String()]
		out.Pages = append(out.Pages, pageRoute{
			Pattern:     r.Parsed.String(),
			Kind:        r.Kind.String(),
			Navigable:   r.ClientNavigable,
			Interactive: r.Interactive,
			Redirects:   r.Redirect != nil,
		})
	}
	if t := app.APITable(); t != nil {
		out.API = t.Meta
	}
	return out
}

func writeRoutesJSON(w io.Writer, app *verdant.App) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(listRoutes(app))
}

func writeRoutes(w io.Writer, app *verdant.App) error {
	routes := listRoutes(app)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "PAGE\tKIND\tNAVIGABLE\tINTERACTIVE")
	for _, p := range routes.Pages {
		kind := p.Kind
		if p.Redirects {
			kind += " (redirects)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%v\t%v\n", p.Pattern, kind, p.Navigable, p.Interactive)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "METHOD\tAPI PATH\tSUMMARY")
	for _, m := range routes.API {
		fmt.Fprintf(tw, "%s\t%s%s\t%s\n", m.Method, routes.APIBase, m.Path, m.Summary)
	}
	return tw.Flush()
}
