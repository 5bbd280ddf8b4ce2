package catalog

import (
	"context"
	"log"

	"github.com/diewo77/bar-stock/internal/models"
)

// demoProducts is a small starter catalog for a fresh install.
var demoProducts = []models.Product{
	{Name: "Coca-Cola 33cl", Brand: "Coca-Cola", Unit: "Canette", SKU: "CC-33", Stock: 24, Floor: 12, OrderMultiple: 24, UnitPrice: models.Float(0.65)},
	{Name: "Perrier 33cl", Brand: "Perrier", Unit: "Bouteille", SKU: "PER-33", Stock: 6, Floor: 12, OrderMultiple: 24, UnitPrice: models.Float(0.55)},
	{Name: "Pression blonde", Brand: "Kronenbourg", Unit: "Fût 30L", SKU: "K-30", Stock: 2, Floor: 1, OrderMultiple: 1, UnitPrice: models.Float(95)},
	{Name: "Café en grains 1kg", Brand: "Lavazza", Unit: "Paquet", SKU: "LAV-1K", Stock: 3, Floor: 4, OrderMultiple: 6, UnitPrice: models.Float(18.9)},
	{Name: "Sirop de menthe", Brand: "Monin", Unit: "Bouteille", SKU: "MON-MEN", Stock: 1, Floor: 2, OrderMultiple: 1},
}

// Seed adds the demo products when the catalog is empty. It reports how many were added.
func (c *Catalog) Seed(ctx context.Context) int {
	if len(c.List()) > 0 {
		log.Printf("[seed] catalog not empty, skipping")
		return 0
	}
	for _, p := range demoProducts {
		c.Upsert(ctx, cloneOne(p))
	}
	log.Printf("[seed] %d demo products added", len(demoProducts))
	return len(demoProducts)
}
