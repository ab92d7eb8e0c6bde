package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/versemark/internal/apperr"
	"github.com/starford/versemark/internal/verse"
)

// MaxNoteLength is the longest note text accepted, in characters.
const MaxNoteLength = 1024

var colorRe = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

// ValidateColor checks a highlight color code such as "#ffff00".
func ValidateColor(color string) error {
	if !colorRe.MatchString(color) {
		return fmt.Errorf("%w: color %q is not a 6-digit hex code", apperr.ErrInvalidInput, color)
	}
	return nil
}

// ValidateNoteText checks that text is non-blank and not too long.
func ValidateNoteText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: note text is blank", apperr.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(text); n > MaxNoteLength {
		return fmt.Errorf("%w: note text has %d characters, max %d", apperr.ErrInvalidInput, n, MaxNoteLength)
	}
	return nil
}

// Draft is a mark that has not been persisted yet.
type Draft struct {
	Kind   Kind
	Color  string
	Text   string
	Verses []verse.Ref
}

// NewHighlightDraft returns a highlight draft over refs.
func NewHighlightDraft(color string, refs ...verse.Ref) Draft {
	return Draft{Kind: KindHighlight, Color: color, Verses: refs}
}

// NewNoteDraft returns a note draft over refs.
func NewNoteDraft(text string, refs ...verse.Ref) Draft {
	return Draft{Kind: KindNote, Text: text, Verses: refs}
}

// Validate checks the draft shape. Errors wrap apperr.ErrInvalidInput.
func (d Draft) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.Kind, validation.Required, validation.In(KindHighlight, KindNote)),
		validation.Field(&d.Color,
			validation.When(d.Kind == KindHighlight, validation.Required, validation.By(ruleOf(ValidateColor))).
				Else(validation.Empty)),
		validation.Field(&d.Text,
			validation.When(d.Kind == KindNote, validation.Required, validation.By(ruleOf(ValidateNoteText))).
				Else(validation.Empty)),
		validation.Field(&d.Verses, validation.Required, validation.Each(validation.By(validateRef))),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// Location returns the chapter of the first verse.
func (d Draft) Location() Location {
	if len(d.Verses) == 0 {
		return Location{}
	}
	return LocationOf(d.Verses[0])
}

// ruleOf adapts a string check to an ozzo rule, stripping the sentinel so
// the message reads cleanly inside validation.Errors.
func ruleOf(check func(string) error) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if err := check(s); err != nil {
			return errors.New(strings.TrimPrefix(err.Error(), apperr.ErrInvalidInput.Error()+": "))
		}
		return nil
	}
}

func validateRef(value any) error {
	r, ok := value.(verse.Ref)
	if !ok {
		return errors.New("not a verse reference")
	}
	return r.Validate()
}
