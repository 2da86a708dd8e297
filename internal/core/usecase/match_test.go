package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lendstack/docpack/internal/core/domain"
)

func matchSlots() []*domain.Slot {
	return []*domain.Slot{
		{ID: "s-guidelines", Type: domain.DocTypeGuidelines, Level: domain.LevelProduct},
		{ID: "s-matrix-p1", Type: domain.DocTypeMatrix, Level: domain.LevelProgram, ProgramID: "prog-1"},
		{ID: "s-matrix-p2", Type: domain.DocTypeMatrix, Level: domain.LevelProgram, ProgramID: "prog-2"},
	}
}

func TestClassifyDocumentNeedsNoSlots(t *testing.T) {
	assert.Equal(t, domain.DocTypeMatrix, ClassifyDocument("anything.pdf", domain.DocTypeMatrix))
	assert.Equal(t, domain.DocTypeGuidelines, ClassifyDocument("NQM_Guidelines_v3.pdf", ""))
	assert.Equal(t, domain.DocTypeMatrix, ClassifyDocument("rate-MATRIX.xlsx", ""))
	assert.Equal(t, domain.DocTypeOther, ClassifyDocument("appraisal.pdf", ""))
}

func TestMatchSlotDeclaredTypeWins(t *testing.T) {
	result := MatchSlot("random-name.pdf", domain.DocTypeGuidelines, "", matchSlots())

	assert.Equal(t, domain.DocTypeGuidelines, result.Type)
	if assert.NotNil(t, result.Slot) {
		assert.Equal(t, "s-guidelines", result.Slot.ID)
	}
}

func TestMatchSlotKeywordGuideline(t *testing.T) {
	result := MatchSlot("NQM_Guidelines_v3.pdf", "", "", matchSlots())

	assert.Equal(t, domain.DocTypeGuidelines, result.Type)
	assert.NotNil(t, result.Slot)
}

func TestMatchSlotKeywordMatrixNarrowedByProgram(t *testing.T) {
	result := MatchSlot("rate-matrix.xlsx", "", "prog-2", matchSlots())

	assert.Equal(t, domain.DocTypeMatrix, result.Type)
	if assert.NotNil(t, result.Slot) {
		assert.Equal(t, "s-matrix-p2", result.Slot.ID)
	}
}

func TestMatchSlotFirstUnfulfilledMatrixWithoutProgram(t *testing.T) {
	result := MatchSlot("matrix.pdf", "", "", matchSlots())

	if assert.NotNil(t, result.Slot) {
		assert.Equal(t, "s-matrix-p1", result.Slot.ID, "first matrix slot in creation order wins")
	}
}

func TestMatchSlotSkipsFulfilledSlots(t *testing.T) {
	slots := matchSlots()
	slots[0].HasUpload = true

	result := MatchSlot("guidelines.pdf", "", "", slots)

	assert.Equal(t, domain.DocTypeGuidelines, result.Type)
	assert.Nil(t, result.Slot, "a fulfilled slot is not a candidate")
}

func TestMatchSlotFallsBackToOther(t *testing.T) {
	result := MatchSlot("meeting-notes.pdf", "", "", matchSlots())

	assert.Equal(t, domain.DocTypeOther, result.Type)
	assert.Nil(t, result.Slot)
}

func TestMatchSlotKeywordIsCaseInsensitive(t *testing.T) {
	result := MatchSlot("PRODUCT_GUIDELINE.PDF", "", "", matchSlots())

	assert.Equal(t, domain.DocTypeGuidelines, result.Type)
}
