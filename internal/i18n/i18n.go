// Package i18n holds the French message catalog. The app ships a single locale.
package i18n

// Lang is the only supported locale.
const Lang = "fr"

var fr = map[string]string{
	// validation
	"required":          "Requis",
	"invalid_value":     "Valeur invalide",
	"validation_failed": "Formulaire invalide",
	"invalid_json":      "JSON invalide",
	"invalid_form":      "Formulaire illisible",
	"internal_error":    "Erreur interne",

	// catalog
	"product_saved":         "Produit enregistré",
	"product_deleted":       "Produit supprimé",
	"product_not_found":     "Produit introuvable",
	"stock_reset":           "Stocks remis à 0 et lots de commande à 1",
	"confirmation_required": "Confirmation requise",
	"not_an_image":          "Le fichier n'est pas une image",
	"image_too_large":       "Image trop volumineuse",
	"image_saved":           "Image enregistrée",

	// invoices
	"invoice_saved":       "Facture enregistrée",
	"invoice_deleted":     "Facture supprimée",
	"invoice_applied":     "Stock mis à jour",
	"invoice_not_found":   "Facture introuvable",
	"already_applied":     "Cette facture a déjà été appliquée au stock",
	"no_configured_lines": "Aucune ligne : mets ‘Qté voulue (facture)’ > 0 pour au moins un produit.",
	"catalog_only":        "Choisis un produit du catalogue pour chaque ligne.",
	"unknown_product":     "Produit inconnu",
	"print_blocked":       "Impossible d’ouvrir la fenêtre d’impression.",
	"line_not_found":      "Ligne introuvable",
	"render_failed":       "Impossible de générer le document",

	// pages
	"app_title":          "Bar — Gestion de stock",
	"tab_stock":          "Stock",
	"tab_invoices":       "Factures",
	"search_hint":        "Rechercher (/, Échap)…",
	"low_stock":          "Sous seuil",
	"no_products":        "Aucun produit. Ajoutez-en via le bouton “Ajouter un produit”.",
	"no_invoices":        "Aucune facture pour le moment.",
	"reset_title":        "Réinitialiser tous les produits ?",
	"reset_confirm":      "Oui, réinitialiser",
	"add_product":        "Ajouter un produit",
	"new_product":        "Nouveau produit",
	"edit_product":       "Modifier le produit",
	"sort_name":          "Alphabétique (Nom)",
	"sort_brand":         "Alphabétique (Marque)",
	"sort_unitPrice":     "Prix (HT)",
	"sort_stock":         "Stock",
	"sort_floor":         "Seuil plancher",
	"sort_orderMultiple": "Lot de commande",
	"sort_printQty":      "Qté voulue (facture)",
}

// T returns the message for code, or code itself when unknown.
func T(code string) string {
	if m, ok := fr[code]; ok {
		return m
	}
	return code
}
