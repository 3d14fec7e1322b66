package handler

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"coursepdf/internal/http/middleware"
	"coursepdf/internal/service"
)

// Services bundles everything the HTTP layer needs. Handlers stay thin: they
// parse input, resolve the requester identity and translate errors.
type Services struct {
	Auth      service.AuthService
	Profiles  service.ProfileService
	Courses   service.CourseService
	Documents service.DocumentService
	Stats     service.StatsService
}

// RegisterRoutes attaches all HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, db *sql.DB, svcs Services, jwtSecret []byte) {
	authRequired := middleware.RequireAuth(jwtSecret)
	authOptional := middleware.OptionalAuth(jwtSecret)

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")

	api.Post("/auth/register", RegisterUser(svcs.Auth))
	api.Post("/auth/login", Login(svcs.Auth))

	api.Get("/profile", authRequired, GetProfile(svcs.Profiles))
	api.Put("/profile", authRequired, UpdateProfile(svcs.Profiles))
	api.Get("/my-documents", authRequired, MyDocuments(svcs.Documents))

	api.Get("/courses", ListCourses(svcs.Courses))
	api.Post("/courses", authRequired, CreateCourse(svcs.Courses))
	api.Get("/courses/:id", GetCourse(svcs.Courses))
	api.Put("/courses/:id", authRequired, UpdateCourse(svcs.Courses))
	api.Delete("/courses/:id", authRequired, DeleteCourse(svcs.Courses))

	// Document reads stay public, but a presented token must still be valid.
	api.Get("/documents", authOptional, ListDocuments(svcs.Documents))
	api.Post("/documents", authRequired, UploadDocument(svcs.Documents))
	api.Get("/documents/:id", authOptional, GetDocument(svcs.Documents))
	api.Put("/documents/:id", authRequired, UpdateDocument(svcs.Documents))
	api.Delete("/documents/:id", authRequired, DeleteDocument(svcs.Documents))
	api.Get("/documents/:id/download", authOptional, DownloadDocument(svcs.Documents))
	api.Get("/documents/:id/preview", authOptional, PreviewDocument(svcs.Documents))

	api.Get("/stats", PlatformStats(svcs.Stats))
}

// HealthCheck reports readiness by pinging the database.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain liveness check.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// RegisterUser handles POST /api/auth/register.
func RegisterUser(svc service.AuthService) fiber.Handler {
	type registerBody struct {
		Username        string `json:"username"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"password_confirm"`
	}
	return func(c *fiber.Ctx) error {
		var body registerBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		user, err := svc.Register(c.UserContext(), service.RegisterInput{
			Username:        body.Username,
			Email:           body.Email,
			Password:        body.Password,
			PasswordConfirm: body.PasswordConfirm,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(user)
	}
}

// Login handles POST /api/auth/login.
func Login(svc service.AuthService) fiber.Handler {
	type loginBody struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	return func(c *fiber.Ctx) error {
		var body loginBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		token, err := svc.Login(c.UserContext(), body.Username, body.Password)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"access": token})
	}
}

// GetProfile handles GET /api/profile (get-or-create on first access).
func GetProfile(svc service.ProfileService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		profile, err := svc.Get(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(profile)
	}
}

// UpdateProfile handles PUT /api/profile.
func UpdateProfile(svc service.ProfileService) fiber.Handler {
	type profileBody struct {
		Bio         string `json:"bio"`
		Institution string `json:"institution"`
	}
	return func(c *fiber.Ctx) error {
		var body profileBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		profile, err := svc.Update(c.UserContext(), middleware.UserID(c), body.Bio, body.Institution)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(profile)
	}
}

// MyDocuments handles GET /api/my-documents.
func MyDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		docs, err := svc.ListByOwner(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(docs)
	}
}

// ListCourses handles GET /api/courses.
func ListCourses(svc service.CourseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courses, err := svc.List(c.UserContext())
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(courses)
	}
}

type courseBody struct {
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Description string `json:"description"`
}

// CreateCourse handles POST /api/courses.
func CreateCourse(svc service.CourseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body courseBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		course, err := svc.Create(c.UserContext(), service.CourseInput(body))
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(course)
	}
}

// GetCourse handles GET /api/courses/:id.
func GetCourse(svc service.CourseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		course, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(course)
	}
}

// UpdateCourse handles PUT /api/courses/:id.
func UpdateCourse(svc service.CourseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var body courseBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		course, err := svc.Update(c.UserContext(), id, service.CourseInput(body))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(course)
	}
}

// DeleteCourse handles DELETE /api/courses/:id.
func DeleteCourse(svc service.CourseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListDocuments handles GET /api/documents with course/domain/search filters
// and optional limit/offset pagination (absent limit returns the full set).
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), service.ListQuery{
			CourseID: c.Query("course"),
			Domain:   c.Query("domain"),
			Search:   c.Query("search"),
			Limit:    limit,
			Offset:   offset,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// UploadDocument handles POST /api/documents (multipart/form-data: title,
// description, course_id, file).
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		doc, err := svc.Upload(c.UserContext(), service.UploadInput{
			Title:       c.FormValue("title"),
			Description: c.FormValue("description"),
			CourseID:    c.FormValue("course_id"),
			OwnerID:     middleware.UserID(c),
			Filename:    fh.Filename,
			File:        f,
			Size:        fh.Size,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument handles GET /api/documents/:id.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// UpdateDocument handles PUT /api/documents/:id. Only title, description and
// course_id are accepted; everything else on the row is server-controlled.
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	type updateBody struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		CourseID    *string `json:"course_id"`
	}
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var body updateBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		doc, err := svc.Update(c.UserContext(), id, middleware.UserID(c), service.UpdateInput{
			Title:       body.Title,
			Description: body.Description,
			CourseID:    body.CourseID,
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument handles DELETE /api/documents/:id (soft delete).
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.SoftDelete(c.UserContext(), id, middleware.UserID(c)); err != nil {
			return serviceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// DownloadDocument handles GET /api/documents/:id/download and bumps the
// download counter.
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, res, err := svc.Download(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		c.Set(fiber.HeaderContentType, res.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Filename))
		return c.SendStream(rc, int(res.Size))
	}
}

// PreviewDocument handles GET /api/documents/:id/preview. Serves the same
// bytes inline and deliberately leaves the counter alone.
func PreviewDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rc, res, err := svc.Preview(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		c.Set(fiber.HeaderContentType, res.ContentType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", res.Filename))
		return c.SendStream(rc, int(res.Size))
	}
}

// PlatformStats handles GET /api/stats.
func PlatformStats(svc service.StatsService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snapshot, err := svc.Snapshot(c.UserContext())
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(snapshot)
	}
}
