package middleware

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

var hhmm = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

var mediaTypes = []string{model.MediaImage, model.MediaVideo, model.MediaCalendar, model.MediaYouTube}

// RegisterValidators adds the domain tags to gin's validator:
// hhmm, weekday, screentype, mediatype, role.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return registerOn(v)
}

func registerOn(v *validator.Validate) error {
	rules := map[string]validator.Func{
		"hhmm": func(fl validator.FieldLevel) bool {
			return hhmm.MatchString(fl.Field().String())
		},
		"weekday": func(fl validator.FieldLevel) bool {
			d := fl.Field().Int()
			return d >= 0 && d <= 6
		},
		"screentype": func(fl validator.FieldLevel) bool {
			return slices.Contains(model.ScreenTypes, fl.Field().String())
		},
		"mediatype": func(fl validator.FieldLevel) bool {
			return slices.Contains(mediaTypes, fl.Field().String())
		},
		"role": func(fl validator.FieldLevel) bool {
			return model.Role(fl.Field().String()).Valid()
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}
