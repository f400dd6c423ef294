package reservation

import (
	"sort"
	"strings"

	"envanter-backend/internal/database"
	"envanter-backend/internal/models"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

const (
	searchScoreThreshold = 65
	searchMaxResults     = 15
)

// FindProducts aktif ürünler arasında bulanık arama yapar. Önce ucuz bir
// LIKE ön filtresi, sonra benzerlik skoru; düşük güvenli eşleşmeler elenir.
// Güvenlik açısından kritik değil, sadece arama kalitesi için.
func FindProducts(query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.Product{}, nil
	}

	like := "%" + strings.ToLower(query) + "%"

	var candidates []models.Product
	err := database.DB.
		Where("active = ? AND (LOWER(name) LIKE ? OR sku LIKE ?)", true, like, like).
		Find(&candidates).Error
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []models.Product{}, nil
	}

	type scored struct {
		product models.Product
		score   float64
	}

	queryLower := strings.ToLower(query)
	results := make([]scored, 0, len(candidates))

	for _, p := range candidates {
		var skuScore float64
		if query == p.SKU {
			skuScore = 200 // birebir stok kodu her şeyi ezer
		} else {
			skuScore = float64(fuzzy.Ratio(query, p.SKU)) * 1.5
		}

		nameLower := strings.ToLower(p.Name)
		var nameScore float64
		if strings.HasPrefix(nameLower, queryLower) {
			nameScore = 100
		} else {
			tokenSet := float64(fuzzy.TokenSetRatio(queryLower, nameLower))
			partial := float64(fuzzy.PartialRatio(queryLower, nameLower))
			nameScore = tokenSet*0.7 + partial*0.3
		}

		final := skuScore
		if nameScore > final {
			final = nameScore
		}

		if final > searchScoreThreshold {
			results = append(results, scored{product: p, score: final})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if len(results) > searchMaxResults {
		results = results[:searchMaxResults]
	}

	products := make([]models.Product, 0, len(results))
	for _, r := range results {
		products = append(products, r.product)
	}
	return products, nil
}
