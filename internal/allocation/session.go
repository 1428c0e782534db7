package allocation

import (
	"fmt"
	"strings"

	"cucina/models"
)

// ValidationError marks a user-correctable problem on a single input field.
// Callers surface it inline next to the field instead of failing the request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrNameRequired rejects confirming a draft line without an ingredient name.
var ErrNameRequired = &ValidationError{Field: "name", Message: "ingredient name is required"}

// LineOrigin stamps a draft line that was pulled back out of the confirmed
// list, remembering where it sat and exactly what it said so a cancelled
// edit can put it back untouched.
type LineOrigin struct {
	Index    int                     `json:"index"`
	Original models.RecipeIngredient `json:"original"`
}

// DraftLine is an ingredient entry still being composed. Draft lines carry
// no weight: they are excluded from cost totals and from session balances
// until confirmed.
type DraftLine struct {
	Line   models.RecipeIngredient `json:"line"`
	Origin *LineOrigin             `json:"origin,omitempty"`
}

// Session is one recipe-editing interaction: the draft lines being typed and
// the confirmed lines committed to the recipe so far. It is a plain value,
// safe to serialize and rebuild between requests; all balance math happens
// in the Engine over the session's confirmed lines.
type Session struct {
	TargetRecipeID uint                      `json:"target_recipe_id"`
	Drafts         []DraftLine               `json:"drafts"`
	Confirmed      []models.RecipeIngredient `json:"confirmed"`
}

// NewSession opens an editing session. For an existing recipe the persisted
// lines arrive as the initial confirmed list; pass zero and nil when
// creating a recipe from scratch.
func NewSession(recipeID uint, existing []models.RecipeIngredient) *Session {
	confirmed := make([]models.RecipeIngredient, len(existing))
	copy(confirmed, existing)
	return &Session{
		TargetRecipeID: recipeID,
		Confirmed:      confirmed,
	}
}

// Add appends an empty draft line and returns its index. No validation
// happens until the line is confirmed.
func (s *Session) Add() int {
	s.Drafts = append(s.Drafts, DraftLine{})
	return len(s.Drafts) - 1
}

// UpdateName records a new name on a draft line and resolves what that name
// means for this session:
//
//   - a confirmed sibling with the same name means the user is resuming an
//     ingredient already consumed this session, so the sibling's remaining
//     package quantity and frozen total value are copied over and the draft
//     quantity is cleared for a fresh amount;
//   - otherwise a catalog hit pre-fills package quantity and value for a
//     first-time consumption;
//   - otherwise the fields stay as typed for manual entry.
func (s *Session) UpdateName(index int, name string, catalog Catalog) error {
	if err := s.checkDraft(index); err != nil {
		return err
	}
	draft := &s.Drafts[index]
	draft.Line.Name = name

	key := Normalize(name)
	if key == "" {
		return nil
	}

	if sibling := s.firstConfirmed(key); sibling != nil {
		draft.Line.PackageQuantity = sibling.PackageQuantity
		draft.Line.TotalValue = sibling.TotalValue
		if draft.Line.Emoji == "" {
			draft.Line.Emoji = sibling.Emoji
		}
		draft.Line.Quantity = 0
		return nil
	}

	if catalog != nil {
		if info, ok := catalog.Lookup(key); ok {
			draft.Line.PackageQuantity = info.Quantity
			draft.Line.TotalValue = info.Price
			if draft.Line.Emoji == "" {
				draft.Line.Emoji = info.Emoji
			}
		}
	}
	return nil
}

// UpdateQuantity sets the amount a draft line will consume.
func (s *Session) UpdateQuantity(index int, quantity float64) error {
	if err := s.checkDraft(index); err != nil {
		return err
	}
	s.Drafts[index].Line.Quantity = quantity
	return nil
}

// UpdateEmoji sets the display emoji on a draft line.
func (s *Session) UpdateEmoji(index int, emoji string) error {
	if err := s.checkDraft(index); err != nil {
		return err
	}
	s.Drafts[index].Line.Emoji = emoji
	return nil
}

// Confirm commits a draft line to the recipe. The line's package quantity
// becomes whatever remains after this consumption: the confirmed sibling's
// remaining amount when the ingredient was already touched this session,
// otherwise the draft's own pre-filled package amount, minus the entered
// quantity and floored at zero. TotalValue carries over unchanged since it
// is the frozen value of the whole package, not a per-use charge. Every
// confirmed sibling with the same name is reduced by the same quantity so
// all lines for one ingredient agree on what is left.
func (s *Session) Confirm(index int) error {
	if err := s.checkDraft(index); err != nil {
		return err
	}
	draft := s.Drafts[index]
	if strings.TrimSpace(draft.Line.Name) == "" {
		return ErrNameRequired
	}

	line := draft.Line
	key := Normalize(line.Name)

	baseline := line.PackageQuantity
	if sibling := s.firstConfirmed(key); sibling != nil {
		baseline = sibling.PackageQuantity
	}
	line.PackageQuantity = floorZero(baseline - line.Quantity)

	for i := range s.Confirmed {
		if Normalize(s.Confirmed[i].Name) == key {
			s.Confirmed[i].PackageQuantity = floorZero(s.Confirmed[i].PackageQuantity - line.Quantity)
		}
	}

	s.removeDraft(index)
	s.Confirmed = append(s.Confirmed, line)
	return nil
}

// EditConfirmed pulls a confirmed line back into the drafts for re-editing.
// Its consumption is undone first: the draft starts from the package amount
// that would remain had this line never been confirmed. The draft keeps an
// origin stamp so CancelDraftEdit can restore the untouched original.
func (s *Session) EditConfirmed(index int) error {
	if err := s.checkConfirmed(index); err != nil {
		return err
	}
	original := s.Confirmed[index]

	draft := DraftLine{
		Line: original,
		Origin: &LineOrigin{
			Index:    index,
			Original: original,
		},
	}
	draft.Line.PackageQuantity = original.PackageQuantity + original.Quantity

	s.Confirmed = append(s.Confirmed[:index], s.Confirmed[index+1:]...)
	s.Drafts = append(s.Drafts, draft)
	return nil
}

// CancelDraftEdit drops a draft line. A line that originated from the
// confirmed list is reinstated there at its original position with its
// original content; a fresh draft is simply discarded.
func (s *Session) CancelDraftEdit(index int) error {
	if err := s.checkDraft(index); err != nil {
		return err
	}
	draft := s.Drafts[index]
	s.removeDraft(index)

	if draft.Origin == nil {
		return nil
	}
	at := draft.Origin.Index
	if at < 0 {
		at = 0
	}
	if at > len(s.Confirmed) {
		at = len(s.Confirmed)
	}
	s.Confirmed = append(s.Confirmed, models.RecipeIngredient{})
	copy(s.Confirmed[at+1:], s.Confirmed[at:])
	s.Confirmed[at] = draft.Origin.Original
	return nil
}

// DeleteConfirmed removes a confirmed line outright. Siblings keep their
// package quantities: deletion is not a refund, only EditConfirmed restores
// consumption and only for the line being edited.
func (s *Session) DeleteConfirmed(index int) error {
	if err := s.checkConfirmed(index); err != nil {
		return err
	}
	s.Confirmed = append(s.Confirmed[:index], s.Confirmed[index+1:]...)
	return nil
}

// Flatten closes the session for persistence: any draft still stamped as
// originating from a confirmed line is cancelled back into place so saved
// data is not silently lost, unstamped drafts are discarded, and the final
// confirmed list is returned.
func (s *Session) Flatten() []models.RecipeIngredient {
	for len(s.Drafts) > 0 {
		// Cancel from the end so origin indexes stay meaningful.
		_ = s.CancelDraftEdit(len(s.Drafts) - 1)
	}
	return s.Confirmed
}

func (s *Session) firstConfirmed(key string) *models.RecipeIngredient {
	if key == "" {
		return nil
	}
	for i := range s.Confirmed {
		if Normalize(s.Confirmed[i].Name) == key {
			return &s.Confirmed[i]
		}
	}
	return nil
}

func (s *Session) removeDraft(index int) {
	s.Drafts = append(s.Drafts[:index], s.Drafts[index+1:]...)
}

func (s *Session) checkDraft(index int) error {
	if index < 0 || index >= len(s.Drafts) {
		return fmt.Errorf("draft line %d does not exist", index)
	}
	return nil
}

func (s *Session) checkConfirmed(index int) error {
	if index < 0 || index >= len(s.Confirmed) {
		return fmt.Errorf("confirmed line %d does not exist", index)
	}
	return nil
}

func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
