package usecase

import (
	"strings"

	"github.com/lendstack/docpack/internal/core/domain"
)

// keywordRules maps filename substrings to document types. Order matters:
// the first matching keyword wins.
var keywordRules = []struct {
	keyword string
	docType domain.DocumentType
}{
	{"guideline", domain.DocTypeGuidelines},
	{"matrix", domain.DocTypeMatrix},
}

// MatchResult is the outcome of slot matching. A nil Slot with type "Other"
// is the unclassified terminal outcome, resolved later by reclassification.
type MatchResult struct {
	Type domain.DocumentType
	Slot *domain.Slot
}

// ClassifyDocument resolves a dropped file's type without touching any
// slot: the declared type when present, otherwise case-insensitive filename
// keywords, otherwise "Other". Running classification alone lets callers
// validate the file before any slot is considered.
func ClassifyDocument(fileName string, declared domain.DocumentType) domain.DocumentType {
	if declared != "" {
		return declared
	}
	lower := strings.ToLower(fileName)
	for _, rule := range keywordRules {
		if strings.Contains(lower, rule.keyword) {
			return rule.docType
		}
	}
	return domain.DocTypeOther
}

// MatchSlot decides which expected slot a dropped file belongs to. It never
// fails: absence of a match is an unclassified result, not an error.
//
// The first unfulfilled slot of the classified type wins, in slot creation
// order; programID narrows program-level candidates. A result with type
// "Other" carries no slot and is resolved later by reclassification.
func MatchSlot(fileName string, declared domain.DocumentType, programID string, unfulfilled []*domain.Slot) MatchResult {
	docType := ClassifyDocument(fileName, declared)
	if slot := firstSlotOfType(unfulfilled, docType, programID); slot != nil {
		return MatchResult{Type: docType, Slot: slot}
	}
	return MatchResult{Type: docType}
}

func firstSlotOfType(slots []*domain.Slot, docType domain.DocumentType, programID string) *domain.Slot {
	for _, slot := range slots {
		if slot.HasUpload || slot.Type != docType {
			continue
		}
		if slot.Level == domain.LevelProgram && programID != "" && slot.ProgramID != programID {
			continue
		}
		return slot
	}
	return nil
}
