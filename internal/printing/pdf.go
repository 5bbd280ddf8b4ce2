package printing

import (
	"fmt"

	"github.com/diewo77/bar-stock/internal/models"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var (
	muted  = &props.Color{Red: 71, Green: 85, Blue: 105}
	header = props.Text{Size: 10, Style: fontstyle.Bold, Color: muted}
)

// PDF renders the detailed order sheet as an A4 PDF, same content as the HTML layout.
func (r *Renderer) PDF(inv *models.Invoice) (Document, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(16).
		WithTopMargin(16).
		WithRightMargin(16).
		Build()
	m := maroto.New(cfg)

	m.AddRows(
		row.New(10).Add(
			text.NewCol(8, "Demande de réassort", props.Text{Size: 18, Style: fontstyle.Bold}),
			text.NewCol(4, "Réf : "+inv.ID, props.Text{Size: 8, Align: align.Right, Color: muted}),
		),
		row.New(6).Add(
			text.NewCol(8, r.shop.Name+" — "+r.shop.Tagline, props.Text{Size: 10, Color: muted}),
			text.NewCol(4, "Date : "+r.FormatDate(inv.Date), props.Text{Size: 10, Align: align.Right, Color: muted}),
		),
		row.New(6).Add(
			text.NewCol(12, "Type : "+inv.Type.PrintLabel(), props.Text{Size: 10, Align: align.Right, Color: muted}),
		),
		row.New(12).Add(
			text.NewCol(12, "Articles demandés (sans prix)", props.Text{Top: 4, Size: 14, Style: fontstyle.Bold}),
		),
		row.New(8).Add(
			text.NewCol(8, "Article", header),
			text.NewCol(2, "Qté", props.Text{Size: 10, Style: fontstyle.Bold, Color: muted, Align: align.Right}),
			text.NewCol(2, "Unité", props.Text{Size: 10, Style: fontstyle.Bold, Color: muted, Left: 4}),
		),
	)
	for _, l := range inv.PrintableLines() {
		m.AddRows(row.New(7).Add(
			text.NewCol(8, l.Label, props.Text{Size: 11}),
			text.NewCol(2, FormatQty(l.Qty), props.Text{Size: 11, Align: align.Right}),
			text.NewCol(2, l.Unit, props.Text{Size: 11, Left: 4}),
		))
	}
	if inv.Notes != "" {
		m.AddRows(
			row.New(12).Add(text.NewCol(12, "Notes :", props.Text{Top: 6, Size: 11, Style: fontstyle.Bold})),
			row.New(10).Add(text.NewCol(12, inv.Notes, props.Text{Size: 11})),
		)
	}
	m.AddRows(
		row.New(20).Add(text.NewCol(12, "Signature :", props.Text{Top: 12, Size: 11})),
		row.New(12).Add(line.NewCol(5)),
		row.New(8).Add(
			text.NewCol(9, "Document généré automatiquement — sans prix — pour envoi au grossiste.", props.Text{Size: 9, Color: muted}),
			text.NewCol(3, "Contact: "+r.shop.Contact, props.Text{Size: 9, Color: muted, Align: align.Right}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return Document{}, fmt.Errorf("generate pdf: %w", err)
	}
	return Document{
		Title:       "Demande grossiste - " + inv.ID,
		ContentType: "application/pdf",
		Body:        doc.GetBytes(),
	}, nil
}
