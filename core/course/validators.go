package course

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
)

var (
	chapterKindTag  = "chapterkind"
	chapterKindText = "must be one of: lesson, exercise"

	lessonOrderTag    = "lessonorder"
	lessonOrderText   = "a lesson order must be a whole number (eg. 2)"
	exerciseOrderTag  = "exerciseorder"
	exerciseOrderText = "an exercise order must end in .5 (eg. 2.5)"
)

// RegisterValidators registers the course validators on v.
func RegisterValidators(v *core.Validator) {
	v.RegisterValidation(chapterKindTag, chapterKindText, chapterKindValidation)
	v.RegisterTranslation(lessonOrderTag, lessonOrderText)
	v.RegisterTranslation(exerciseOrderTag, exerciseOrderText)
	v.RegisterStructValidation(newChapterValidation, NewChapter{})
}

func chapterKindValidation(fl validator.FieldLevel) bool {
	return Kind(fl.Field().String()).IsValid()
}

// newChapterValidation checks that the requested order fits the chapter kind.
func newChapterValidation(sl validator.StructLevel) {
	nc := sl.Current().Interface().(NewChapter)
	if nc.Order == nil || !nc.Kind.IsValid() || nc.Order.Fits(nc.Kind) {
		return
	}
	tag := lessonOrderTag
	if nc.Kind == KindExercise {
		tag = exerciseOrderTag
	}
	sl.ReportError(nc.Order, "order", "Order", tag, "")
}
