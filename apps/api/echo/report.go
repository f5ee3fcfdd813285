package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-reports/core"
	"github.com/trezcool/masomo-reports/core/export"
	"github.com/trezcool/masomo-reports/core/report"
)

type reportApi struct {
	svc      report.ServiceInterface
	validate *validator.Validate
}

func registerReportAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc report.ServiceInterface, validate *validator.Validate) {
	api := reportApi{
		svc:      svc,
		validate: validate,
	}

	g.POST("/exports", api.exportData, jwt, staffMiddleware)

	rg := g.Group("/reports", jwt, staffMiddleware)
	rg.GET("", api.query)
	rg.POST("", api.create, adminMiddleware())
	rg.DELETE("", api.destroyMultiple, adminMiddleware())
	rg.GET("/:id", api.retrieve)
	rg.DELETE("/:id", api.destroy, adminMiddleware())
	rg.GET("/:id/export", api.export)
	rg.POST("/:id/send", api.send)
}

// ExportDataRequest is the body of an ad-hoc export.
type ExportDataRequest struct {
	Format       string          `json:"format" validate:"required,exportformat"`
	Title        string          `json:"title" validate:"max=255"`
	Data         json.RawMessage `json:"data"`
	FileBaseName string          `json:"file_base_name" validate:"omitempty,max=100,basename"`
}

// Handlers

func (api *reportApi) query(ctx echo.Context) error {
	var q reportQuery
	if err := ctx.Bind(&q); err != nil {
		return ctx.JSON(http.StatusOK, []report.Report{})
	}
	filter, err := q.Filter()
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	reports, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying reports")
	}
	if reports == nil {
		reports = []report.Report{}
	}
	return ctx.JSON(http.StatusOK, reports)
}

func (api *reportApi) create(ctx echo.Context) error {
	var data report.NewReport
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReport")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	r, err := api.svc.Create(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating report")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *reportApi) retrieve(ctx echo.Context) error {
	r, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding report by ID")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *reportApi) destroy(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := api.svc.GetByID(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "finding report by ID")
	}
	if err := api.svc.Delete(ctx.Request().Context(), id); err != nil {
		return errors.Wrap(err, "deleting report")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reportApi) destroyMultiple(ctx echo.Context) error {
	ids := ctx.QueryParams()["id"]
	if len(ids) == 0 {
		return core.NewFieldValidationError("id", "at least one id is required")
	}
	if err := api.svc.Delete(ctx.Request().Context(), ids...); err != nil {
		return errors.Wrap(err, "deleting reports")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reportApi) export(ctx echo.Context) error {
	var data report.ExportRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExportRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	file, err := api.svc.Export(ctx.Request().Context(), ctx.Param("id"), data.Format)
	if err != nil {
		return errors.Wrap(err, "exporting report")
	}
	return attachment(ctx, file)
}

func (api *reportApi) send(ctx echo.Context) error {
	var data report.SendRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendRequest")
	}
	if err := api.svc.Send(ctx.Request().Context(), ctx.Param("id"), data); err != nil {
		return errors.Wrap(err, "sending report")
	}
	return ctx.NoContent(http.StatusAccepted)
}

func (api *reportApi) exportData(ctx echo.Context) error {
	var data ExportDataRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ExportDataRequest")
	}
	data.Format = core.CleanString(data.Format, true /* lower */)
	data.Title = core.CleanString(data.Title)
	data.FileBaseName = core.CleanString(data.FileBaseName)
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	file, err := api.svc.ExportData(ctx.Request().Context(), export.Request{
		Format:       data.Format,
		Title:        data.Title,
		Data:         data.Data,
		FileBaseName: data.FileBaseName,
	})
	if err != nil {
		return errors.Wrap(err, "exporting data")
	}
	return attachment(ctx, file)
}

// attachment sends `file` as a download.
func attachment(ctx echo.Context, file *export.File) error {
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Name))
	return ctx.Blob(http.StatusOK, file.ContentType, file.Content)
}
