package builder

import "github.com/formloom/formloom/internal/entity"

func defaultLabel(t entity.BlockType) string {
	switch t {
	case entity.TypeWelcome:
		return "Welcome"
	case entity.TypeHeading:
		return "Heading"
	case entity.TypeParagraph:
		return "Paragraph"
	case entity.TypeConsent:
		return "I agree to the terms"
	case entity.TypeCaptcha:
		return "Verification"
	default:
		return "Your question here"
	}
}

// defaultAttrs seeds the type-specific attribute bag so the editor has
// sensible values to render before the user touches anything.
func defaultAttrs(t entity.BlockType) map[string]any {
	switch t {
	case entity.TypeText, entity.TypeEmail, entity.TypeWebsite:
		return map[string]any{"placeholder": ""}
	case entity.TypeTextarea:
		return map[string]any{"placeholder": "", "max_length": 5000}
	case entity.TypePhone:
		return map[string]any{"country_prefix": true}
	case entity.TypeNumber:
		return map[string]any{"placeholder": ""}
	case entity.TypeSlider:
		return map[string]any{"min": 0, "max": 10, "step": 1}
	case entity.TypeRating:
		return map[string]any{"max": 5}
	case entity.TypeSingleChoice, entity.TypeMultipleChoice, entity.TypeDropdown:
		return map[string]any{"options": []string{"Option 1", "Option 2"}}
	case entity.TypeImage:
		return map[string]any{"url": ""}
	case entity.TypeYoutube:
		return map[string]any{"video_id": ""}
	case entity.TypeMenu:
		return map[string]any{"links": []any{}}
	default:
		return nil
	}
}
