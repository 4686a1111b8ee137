package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mediarise/neuromarket/internal/catalog"
)

// Validation failures re-prompt the same step; the session is preserved.
var (
	ErrTooLong     = errors.New("value exceeds max length")
	ErrNotAnOption = errors.New("value is not one of the allowed options")
	ErrNotExpected = errors.New("no input expected in the current step")
	ErrRequired    = errors.New("parameter is required")
)

// StepKind names what the form asks for next.
type StepKind int

const (
	// StepPrompt asks for the schema's prompt text.
	StepPrompt StepKind = iota
	// StepImages runs the add-image / skip sub-flow.
	StepImages
	// StepParam asks for one required non-prompt, non-image parameter.
	StepParam
	// StepConfirm is reached when every required parameter has a value.
	StepConfirm
)

// Step is the next thing the form needs from the user.
type Step struct {
	Kind  StepKind
	Param catalog.ParamSpec
	Image catalog.ImageListParam
}

// BeginForm resets the session to the first step of the model's form.
// Optional parameters are pre-filled with schema defaults; required ones
// are always prompted.
func (s *Session) BeginForm(schema catalog.Schema) {
	adminMode := s.AdminUserMode
	*s = Session{
		State:         StateInputtingParams,
		Schema:        schema,
		Params:        map[string]any{},
		AdminUserMode: adminMode,
	}
	for _, p := range schema.Params {
		if p.IsRequired() {
			continue
		}
		switch v := p.(type) {
		case catalog.EnumParam:
			if v.Default != "" {
				s.Params[v.Name] = v.Default
			}
		case catalog.BoolParam:
			s.Params[v.Name] = v.Default
		}
	}
	if _, ok := schema.ImageParam(); !ok {
		s.imagesDone = true
	}
}

// NextStep computes what to ask next: prompt first, then the image
// sub-flow, then remaining required parameters in schema order.
func (s *Session) NextStep() Step {
	if prompt, ok := s.Schema.PromptParam(); ok {
		if _, set := s.Params[prompt.Name]; !set {
			return Step{Kind: StepPrompt, Param: prompt}
		}
	}
	if img, ok := s.Schema.ImageParam(); ok && !s.imagesDone {
		return Step{Kind: StepImages, Image: img}
	}
	for _, p := range s.Schema.Params {
		if !p.IsRequired() {
			continue
		}
		if _, isImage := p.(catalog.ImageListParam); isImage {
			continue
		}
		if p.ParamName() == "prompt" {
			continue
		}
		if _, set := s.Params[p.ParamName()]; !set {
			return Step{Kind: StepParam, Param: p}
		}
	}
	return Step{Kind: StepConfirm}
}

// ApplyText answers the current step with free text. Text params are
// length-checked, enum params must match an option, boolean params fall
// back to the schema default on an unrecognized literal.
func (s *Session) ApplyText(value string) error {
	step := s.NextStep()
	switch step.Kind {
	case StepPrompt, StepParam:
	default:
		return ErrNotExpected
	}

	switch p := step.Param.(type) {
	case catalog.TextParam:
		if len([]rune(value)) > p.MaxLen {
			return fmt.Errorf("%w: %s allows %d characters", ErrTooLong, p.Name, p.MaxLen)
		}
		s.Params[p.Name] = value
	case catalog.EnumParam:
		if !p.HasOption(value) {
			return fmt.Errorf("%w: %s", ErrNotAnOption, p.Name)
		}
		s.Params[p.Name] = value
	case catalog.BoolParam:
		s.Params[p.Name] = parseBoolLiteral(value, p.Default)
	default:
		return ErrNotExpected
	}
	return nil
}

// ApplySelection answers a named parameter from a button press. Unknown
// names and garbled values are rejected without touching the session.
func (s *Session) ApplySelection(name, value string) error {
	spec, ok := s.Schema.Param(name)
	if !ok {
		return fmt.Errorf("%w: unknown parameter %q", ErrNotExpected, name)
	}
	switch p := spec.(type) {
	case catalog.EnumParam:
		if !p.HasOption(value) {
			return fmt.Errorf("%w: %s", ErrNotAnOption, name)
		}
		s.Params[name] = value
	case catalog.BoolParam:
		s.Params[name] = parseBoolLiteral(value, p.Default)
	case catalog.TextParam:
		if len([]rune(value)) > p.MaxLen {
			return fmt.Errorf("%w: %s allows %d characters", ErrTooLong, name, p.MaxLen)
		}
		s.Params[name] = value
	default:
		return fmt.Errorf("%w: %s is not selectable", ErrNotExpected, name)
	}
	return nil
}

// AddImage appends one uploaded image URL. The returned flag reports
// whether the cap was reached, which auto-finalizes the list.
func (s *Session) AddImage(url string) (bool, error) {
	img, ok := s.Schema.ImageParam()
	if !ok || s.imagesDone {
		return false, ErrNotExpected
	}
	s.Images = append(s.Images, url)
	if len(s.Images) >= img.Max {
		s.finalizeImages(img)
		return true, nil
	}
	return false, nil
}

// FinishImages closes the sub-flow with the collected list.
func (s *Session) FinishImages() error {
	img, ok := s.Schema.ImageParam()
	if !ok || s.imagesDone {
		return ErrNotExpected
	}
	if img.Required && len(s.Images) == 0 {
		return fmt.Errorf("%w: %s", ErrRequired, img.Name)
	}
	s.finalizeImages(img)
	return nil
}

// SkipImages closes the sub-flow with no images. Only offered when the
// image parameter is optional.
func (s *Session) SkipImages() error {
	img, ok := s.Schema.ImageParam()
	if !ok || s.imagesDone {
		return ErrNotExpected
	}
	if img.Required {
		return fmt.Errorf("%w: %s", ErrRequired, img.Name)
	}
	s.imagesDone = true
	return nil
}

func (s *Session) finalizeImages(img catalog.ImageListParam) {
	s.imagesDone = true
	if len(s.Images) > 0 {
		s.Params[img.Name] = append([]string(nil), s.Images...)
	}
}

func parseBoolLiteral(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "да", "1", "on":
		return true
	case "false", "no", "нет", "0", "off":
		return false
	default:
		return fallback
	}
}
