package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/pathways/core"
	"github.com/trezcool/pathways/core/progress"
)

type progressApi struct {
	svc      *progress.Service
	validate *validator.Validate
}

func registerProgressAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *progress.Service, validate *validator.Validate) {
	api := progressApi{
		svc:      svc,
		validate: validate,
	}

	// public
	g.GET("/certificates/:learner/:course", api.verifyCertificate)

	// the token subject's own progress
	pg := g.Group("/progress", jwt)
	pg.GET("", api.state)
	pg.POST("/paths/:slug/enroll", api.enroll)
	pg.POST("/courses/access", api.accessCourse)
	pg.POST("/modules/complete", api.completeModule)
	pg.POST("/tasks/:id/submit", api.submitTask)
	pg.POST("/skills", api.addSkill)
	pg.GET("/readiness", api.readiness)
	pg.GET("/stats", api.stats)
	pg.GET("/activity", api.activity)
	pg.GET("/activity/daily", api.dailyActivity)
	pg.GET("/tasks/upcoming", api.upcomingTasks)
	pg.GET("/recent-course", api.recentCourse)
	pg.GET("/certificates", api.certificates)
	pg.GET("/dashboard", api.dashboard)
	pg.DELETE("/session", api.closeSession)

	// managed learners
	lg := g.Group("/learners/:id", jwt, managerMiddleware())
	lg.GET("/progress", api.learnerProgress)
	lg.DELETE("/progress", api.resetLearner)
	lg.GET("/readiness", api.learnerReadiness)
	lg.PUT("/mandatory-courses", api.assignMandatoryCourses)
	lg.PUT("/tasks", api.assignTasks)
}

// store opens the session of the context learner.
func (api *progressApi) store(ctx echo.Context) (*progress.Store, error) {
	lnr, err := getContextLearner(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context learner")
	}
	store, err := api.svc.Open(ctx.Request().Context(), lnr)
	if err != nil {
		return nil, errors.Wrap(err, "opening progress session")
	}
	return store, nil
}

// Learner Handlers

func (api *progressApi) state(ctx echo.Context) error {
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, store.Snapshot())
}

func (api *progressApi) enroll(ctx echo.Context) error {
	data := EnrollRequest{PathSlug: ctx.Param("slug")}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	store.EnrollInPath(data.PathSlug)
	return ctx.JSON(http.StatusOK, store.Snapshot())
}

func (api *progressApi) accessCourse(ctx echo.Context) error {
	var data progress.CourseAccess
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CourseAccess")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	store.RecordCourseAccess(data)
	return ctx.JSON(http.StatusOK, store.Snapshot())
}

func (api *progressApi) completeModule(ctx echo.Context) error {
	var data progress.ModuleCompletion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ModuleCompletion")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	store.RecordModuleComplete(data.PathSlug, data.CourseID, data.ModuleID)
	return ctx.JSON(http.StatusOK, store.Snapshot())
}

func (api *progressApi) submitTask(ctx echo.Context) error {
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	store.SubmitTask(core.CleanString(ctx.Param("id")))
	return ctx.JSON(http.StatusOK, store.UpcomingTasks())
}

func (api *progressApi) addSkill(ctx echo.Context) error {
	var data SkillRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SkillRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	store.AddSkill(data.Skill)
	return ctx.JSON(http.StatusOK, store.Snapshot().SkillsGained)
}

func (api *progressApi) readiness(ctx echo.Context) error {
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, store.ReadinessScore())
}

func (api *progressApi) stats(ctx echo.Context) error {
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, store.DashboardStats())
}

func (api *progressApi) activity(ctx echo.Context) error {
	var limit Limit
	if err := limit.Bind(ctx); err != nil {
		return err
	}
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, store.RecentActivity(limit.N))
}

func (api *progressApi) dailyActivity(ctx echo.Context) error {
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, store.DailyActivityForChart())
}

func (api *progressApi) upcomingTasks(ctx echo.Context) error {
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, store.UpcomingTasks())
}

func (api *progressApi) recentCourse(ctx echo.Context) error {
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	course, ok := store.MostRecentCourse()
	if !ok {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, course)
}

func (api *progressApi) certificates(ctx echo.Context) error {
	store, err := api.store(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, store.Certificates())
}

func (api *progressApi) dashboard(ctx echo.Context) error {
	lnr, err := getContextLearner(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context learner")
	}
	view, err := api.svc.Dashboard(ctx.Request().Context(), lnr)
	if err != nil {
		return errors.Wrap(err, "building dashboard")
	}
	return ctx.JSON(http.StatusOK, view)
}

func (api *progressApi) closeSession(ctx echo.Context) error {
	lnr, err := getContextLearner(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context learner")
	}
	api.svc.Close(lnr.ID)
	return ctx.NoContent(http.StatusNoContent)
}

// verifyCertificate lets anyone holding a certificate code check it.
func (api *progressApi) verifyCertificate(ctx echo.Context) error {
	cert, err := api.svc.VerifyCertificate(
		ctx.Request().Context(),
		ctx.Param("learner"),
		ctx.Param("course"),
		core.CleanString(ctx.QueryParam("code")),
	)
	if err != nil {
		if errors.Cause(err) == progress.ErrInvalidCertificateCode {
			return errHttpNotFound
		}
		return errors.Wrap(err, "verifying certificate")
	}
	return ctx.JSON(http.StatusOK, cert)
}

// Manager Handlers

func (api *progressApi) learnerProgress(ctx echo.Context) error {
	st, err := api.svc.Peek(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading learner progress")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *progressApi) resetLearner(ctx echo.Context) error {
	if err := api.svc.Reset(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "resetting learner progress")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *progressApi) learnerReadiness(ctx echo.Context) error {
	r, err := api.svc.Readiness(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "computing learner readiness")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *progressApi) assignMandatoryCourses(ctx echo.Context) error {
	var data progress.MandatoryCoursesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MandatoryCoursesRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return api.assign(ctx, progress.Assignment{MandatoryCourses: data.Courses})
}

func (api *progressApi) assignTasks(ctx echo.Context) error {
	var data progress.TasksRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TasksRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return api.assign(ctx, progress.Assignment{Tasks: data.Tasks})
}

// assign responds with the learner's readiness once the assignment is applied.
func (api *progressApi) assign(ctx echo.Context, a progress.Assignment) error {
	learnerID := ctx.Param("id")
	if err := api.svc.Assign(ctx.Request().Context(), learnerID, a); err != nil {
		return errors.Wrap(err, "assigning to learner")
	}
	r, err := api.svc.Readiness(ctx.Request().Context(), learnerID)
	if err != nil {
		return errors.Wrap(err, "computing learner readiness")
	}
	return ctx.JSON(http.StatusOK, r)
}

type (
	EnrollRequest struct {
		PathSlug string `json:"slug" validate:"required,slug"`
	}

	SkillRequest struct {
		Skill string `json:"skill" validate:"required,max=100"`
	}
)

func (er *EnrollRequest) Validate(validate *validator.Validate) error {
	er.PathSlug = core.CleanString(er.PathSlug)
	return validate.Struct(er)
}

func (sr *SkillRequest) Validate(validate *validator.Validate) error {
	sr.Skill = core.CleanString(sr.Skill)
	return validate.Struct(sr)
}
