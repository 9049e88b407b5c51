package course

import "sort"

// Outline is the ordered structure of a course's chapters.
// Lessons and exercises are paired by order: the exercise of lesson N sits at N.5.
type Outline struct {
	lessons   []Chapter
	exercises []Chapter
	byID      map[string]Chapter
	byOrder   map[Kind]map[Order]Chapter
}

// NewOutline builds the Outline of chapters, which must all belong to the same course.
func NewOutline(chapters []Chapter) *Outline {
	o := &Outline{
		byID: make(map[string]Chapter, len(chapters)),
		byOrder: map[Kind]map[Order]Chapter{
			KindLesson:   make(map[Order]Chapter),
			KindExercise: make(map[Order]Chapter),
		},
	}
	for _, ch := range chapters {
		o.byID[ch.ID] = ch
		switch ch.Kind {
		case KindLesson:
			o.lessons = append(o.lessons, ch)
		case KindExercise:
			o.exercises = append(o.exercises, ch)
		default:
			continue
		}
		o.byOrder[ch.Kind][ch.Order] = ch
	}
	sortChapters(o.lessons)
	sortChapters(o.exercises)
	return o
}

// sortChapters sorts by order, ties broken by ID.
func sortChapters(chapters []Chapter) {
	sort.SliceStable(chapters, func(i, j int) bool {
		if c := chapters[i].Order.Compare(chapters[j].Order); c != 0 {
			return c < 0
		}
		return chapters[i].ID < chapters[j].ID
	})
}

// Lessons returns the lessons sorted by order.
func (o *Outline) Lessons() []Chapter {
	return append([]Chapter(nil), o.lessons...)
}

// Exercises returns the exercises sorted by order.
func (o *Outline) Exercises() []Chapter {
	return append([]Chapter(nil), o.exercises...)
}

// All returns every chapter sorted by order, whatever its kind.
func (o *Outline) All() []Chapter {
	all := make([]Chapter, 0, len(o.lessons)+len(o.exercises))
	all = append(append(all, o.lessons...), o.exercises...)
	sortChapters(all)
	return all
}

func (o *Outline) Chapter(id string) (Chapter, bool) {
	ch, ok := o.byID[id]
	return ch, ok
}

// ExerciseFor returns the exercise paired with lesson, if any.
func (o *Outline) ExerciseFor(lesson Chapter) (Chapter, bool) {
	if !lesson.IsLesson() {
		return Chapter{}, false
	}
	ex, ok := o.byOrder[KindExercise][ExerciseOrder(lesson.Order.Whole)]
	return ex, ok
}

// LessonFor returns the lesson paired with exercise, if any.
func (o *Outline) LessonFor(exercise Chapter) (Chapter, bool) {
	if !exercise.IsExercise() {
		return Chapter{}, false
	}
	lesson, ok := o.byOrder[KindLesson][LessonOrder(exercise.Order.Whole)]
	return lesson, ok
}

// Successor returns the first lesson ordered strictly after ch.
func (o *Outline) Successor(ch Chapter) (Chapter, bool) {
	i := sort.Search(len(o.lessons), func(i int) bool {
		return ch.Order.Less(o.lessons[i].Order)
	})
	if i < len(o.lessons) {
		return o.lessons[i], true
	}
	return Chapter{}, false
}

// Predecessor returns the lesson right before lesson, if any.
func (o *Outline) Predecessor(lesson Chapter) (Chapter, bool) {
	if i := o.Position(lesson); i > 0 {
		return o.lessons[i-1], true
	}
	return Chapter{}, false
}

// Position returns the 0-indexed position of lesson among the lessons, -1 if unknown.
func (o *Outline) Position(lesson Chapter) int {
	for i, l := range o.lessons {
		if l.ID == lesson.ID {
			return i
		}
	}
	return -1
}

// ChapterIDs returns the IDs of all the chapters.
func (o *Outline) ChapterIDs() []string {
	ids := make([]string, 0, len(o.byID))
	for _, ch := range o.lessons {
		ids = append(ids, ch.ID)
	}
	for _, ch := range o.exercises {
		ids = append(ids, ch.ID)
	}
	return ids
}
