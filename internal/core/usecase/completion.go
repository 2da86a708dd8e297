package usecase

import (
	"math"

	"github.com/lendstack/docpack/internal/core/domain"
)

// ComputeCompletion derives a product's readiness from its uploaded
// documents. Idempotent: a second document of an already satisfied type does
// not move the percentage. Documents classified "Other" never count.
func ComputeCompletion(product *domain.Product) domain.CompletionStatus {
	if product == nil || len(product.RequiredTypes) == 0 {
		return domain.CompletionStatus{
			IsComplete:           true,
			CompletionPercentage: 100,
			MissingDocuments:     []domain.DocumentType{},
		}
	}

	uploaded := make(map[domain.DocumentType]bool, len(product.Documents))
	for _, doc := range product.Documents {
		if doc.Type == domain.DocTypeOther {
			continue
		}
		uploaded[doc.Type] = true
	}

	satisfied := 0
	missing := make([]domain.DocumentType, 0, len(product.RequiredTypes))
	for _, required := range product.RequiredTypes {
		if uploaded[required] {
			satisfied++
			continue
		}
		missing = append(missing, required)
	}

	percentage := int(math.Round(float64(satisfied) / float64(len(product.RequiredTypes)) * 100))
	return domain.CompletionStatus{
		IsComplete:           len(missing) == 0,
		CompletionPercentage: percentage,
		MissingDocuments:     missing,
	}
}
