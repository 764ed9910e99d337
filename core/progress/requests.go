package progress

import (
	"github.com/go-playground/validator/v10"
)

type (
	ModuleCompletion struct {
		PathSlug string `json:"pathSlug" validate:"omitempty,slug"`
		CourseID string `json:"courseId" validate:"required"`
		ModuleID string `json:"moduleId" validate:"required"`
	}

	MandatoryCoursesRequest struct {
		Courses []MandatoryCourse `json:"courses" yaml:"mandatoryCourses" validate:"dive"`
	}

	TasksRequest struct {
		Tasks []Task `json:"tasks" yaml:"tasks" validate:"dive"`
	}

	// Assignment is what an administrator hands down to a learner: mandatory courses and tasks.
	Assignment struct {
		MandatoryCourses []MandatoryCourse `json:"mandatoryCourses" yaml:"mandatoryCourses" validate:"dive"`
		Tasks            []Task            `json:"tasks" yaml:"tasks" validate:"dive"`
	}
)

func (ca CourseAccess) Validate(validate *validator.Validate) error {
	return validate.Struct(ca)
}

func (mc ModuleCompletion) Validate(validate *validator.Validate) error {
	return validate.Struct(mc)
}

func (r MandatoryCoursesRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (r TasksRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

func (a Assignment) Validate(validate *validator.Validate) error {
	return validate.Struct(a)
}
