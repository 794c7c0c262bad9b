// Package site renders the static HTML site from the store contents.
package site

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tokyo3/bestwines/internal/model"
	"github.com/tokyo3/bestwines/internal/store"
)

// Generator writes the public site: an index of toplists and one page per
// toplist with the matched retailer products.
type Generator struct {
	store     store.Store
	outputDir string
	title     string
}

// NewGenerator creates a Generator writing into outputDir.
func NewGenerator(st store.Store, outputDir, title string) *Generator {
	return &Generator{store: st, outputDir: outputDir, title: title}
}

// wineRow is one rendered line of a toplist page.
type wineRow struct {
	Wine     model.VivinoWine
	Match    *model.WineMatch
	Product  *model.RetailerProduct
	ShopURL  string
	ImageURL string
}

type toplistPage struct {
	Title       string
	Toplist     model.Toplist
	Rows        []wineRow
	GeneratedAt time.Time
}

type indexPage struct {
	Title       string
	Toplists    []model.Toplist
	UpdateLog   []model.RunSummary
	GeneratedAt time.Time
}

// Generate renders every page. Output is written file by file; a failed
// page aborts the run so a broken deploy is never half-published.
func (g *Generator) Generate(ctx context.Context) error {
	toplists, err := g.store.ListToplists(ctx)
	if err != nil {
		return eris.Wrap(err, "site: list toplists")
	}

	if err := os.MkdirAll(filepath.Join(g.outputDir, "toplists"), 0o755); err != nil {
		return eris.Wrap(err, "site: create output dir")
	}

	updates, err := g.store.ListUpdateLog(ctx, 10)
	if err != nil {
		return eris.Wrap(err, "site: list update log")
	}

	now := time.Now().UTC()
	if err := g.render("index.html", indexTemplate, indexPage{
		Title:       g.title,
		Toplists:    toplists,
		UpdateLog:   updates,
		GeneratedAt: now,
	}); err != nil {
		return err
	}

	for _, tl := range toplists {
		rows, err := g.buildRows(ctx, tl)
		if err != nil {
			return err
		}
		page := filepath.Join("toplists", tl.ID+".html")
		if err := g.render(page, toplistTemplate, toplistPage{
			Title:       g.title,
			Toplist:     tl,
			Rows:        rows,
			GeneratedAt: now,
		}); err != nil {
			return err
		}
	}

	zap.L().Info("static site generated",
		zap.String("output_dir", g.outputDir),
		zap.Int("toplists", len(toplists)),
	)
	return nil
}

func (g *Generator) buildRows(ctx context.Context, tl model.Toplist) ([]wineRow, error) {
	wines, err := g.store.ListWinesByToplist(ctx, tl.ID)
	if err != nil {
		return nil, eris.Wrapf(err, "site: list wines for toplist %s", tl.ID)
	}

	rows := make([]wineRow, 0, len(wines))
	for _, w := range wines {
		row := wineRow{Wine: w, ImageURL: w.ImageURL}

		m, err := g.store.GetMatch(ctx, w.ID)
		if err != nil {
			return nil, eris.Wrapf(err, "site: get match for wine %s", w.ID)
		}
		if m != nil {
			row.Match = m
			p, err := g.store.GetProduct(ctx, m.ProductNumber)
			if err != nil {
				return nil, eris.Wrapf(err, "site: get product %s", m.ProductNumber)
			}
			row.Product = p
			row.ShopURL = fmt.Sprintf("https://www.systembolaget.se/sortiment/vin/?q=%s", m.ProductNumber)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (g *Generator) render(relPath string, tmpl *template.Template, data any) error {
	path := filepath.Join(g.outputDir, relPath)
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "site: create %s", relPath)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return eris.Wrapf(err, "site: render %s", relPath)
	}
	return nil
}
