package controller

import (
	"errors"
	"net/http"

	"taller-backend/middelware"
	"taller-backend/models"
	"taller-backend/services"
	"taller-backend/utils/logger"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	Service *ServiceController
	Photo   *PhotoController
	jwt     *middelware.JWTManager
	config  *models.Config
}

func NewController(cfg *models.Config, intake services.IntakeServiceInterface, lifecycle services.LifecycleServiceInterface, photos services.PhotoServiceInterface, jwt *middelware.JWTManager, log logger.Logger) *Controller {
	return &Controller{
		Service: NewServiceController(intake, lifecycle, log),
		Photo:   NewPhotoController(photos, log),
		jwt:     jwt,
		config:  cfg,
	}
}

// RegisterRoutes mounts the health check and the authenticated service routes under basePath
func (c *Controller) RegisterRoutes(r *gin.Engine, basePath string) {
	v1 := r.Group(basePath)

	// Health check endpoint (no auth required)
	v1.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": c.config.AppVersion,
			"service": c.config.AppName,
		})
	})

	svc := v1.Group("/services", c.jwt.AuthMiddleware())

	// Technicians work on orders but do not register them
	svc.POST("/intake", c.jwt.RequireRole(models.RoleAdmin, models.RoleManager, models.RoleReceptionist), c.Service.Intake)
	svc.POST("/totals", c.Service.ComputeTotals)
	svc.GET("/:id", c.Service.GetService)
	svc.PUT("/:id", c.Service.SaveEdits)
	svc.POST("/:id/transitions", c.Service.Transition)
	svc.GET("/:id/totals", c.Service.Totals)
	svc.POST("/:id/changes", c.Service.Changes)

	svc.GET("/:id/photos", c.Photo.ListPhotos)
	svc.POST("/:id/photos", c.Photo.AddPhoto)
	svc.DELETE("/:id/photos/:photoId", c.Photo.RemovePhoto)
}

// statusFor maps the error taxonomy onto HTTP status codes
func statusFor(err error) int {
	var (
		valErr     *models.ValidationError
		dup        *models.DuplicateError
		ref        *models.InvalidReferenceError
		transition *models.TransitionError
		forbidden  *models.ForbiddenError
		inconsist  *models.InconsistencyError
		transport  *models.TransportError
	)

	switch {
	case errors.As(err, &valErr), errors.As(err, &ref):
		return http.StatusBadRequest
	case errors.As(err, &dup):
		return http.StatusConflict
	case errors.As(err, &transition):
		if len(transition.MissingFields) > 0 {
			return http.StatusUnprocessableEntity
		}
		return http.StatusConflict
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &inconsist):
		return http.StatusConflict
	case errors.Is(err, models.ErrUploadReverted):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &transport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, log logger.Logger, message string, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		log.Errorf("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, message, err)
	} else {
		log.Warnf("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, message, err)
	}
	_ = c.Error(err)
	c.JSON(code, models.APIResponse{
		Status:  "error",
		Code:    code,
		Message: message,
		Error:   models.Describe(err),
	})
}

func respondBadRequest(c *gin.Context, log logger.Logger, err error) {
	log.Warnf("Failed to bind request body: %v", err)
	c.JSON(http.StatusBadRequest, models.APIResponse{
		Status:  "error",
		Code:    http.StatusBadRequest,
		Message: "Invalid request",
		Error: &models.APIError{
			Type:    "ValidationError",
			Details: err.Error(),
		},
	})
}

func respond(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, models.APIResponse{
		Status:  "success",
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// actorOf returns the authenticated actor, answering 401 when there is none
func actorOf(c *gin.Context) (models.Actor, bool) {
	actor, ok := middelware.ActorFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.APIResponse{
			Status:  "error",
			Code:    http.StatusUnauthorized,
			Message: "Authentication required",
			Error: &models.APIError{
				Type:    "AuthenticationError",
				Details: "User not authenticated",
			},
		})
	}
	return actor, ok
}
