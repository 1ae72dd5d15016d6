package media

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/careersim/bff/internal/app"
	svcErr "github.com/careersim/bff/internal/errors"
	"github.com/careersim/bff/internal/middleware"
	"github.com/careersim/bff/internal/response"
	"github.com/careersim/bff/internal/storage"
)

// multipartOverhead is allowed on top of the file limit for form framing.
const multipartOverhead = 1 << 20

// Registrar ties the profile picture upload into the HTTP API. With the
// memory backend it also serves the stored objects.
type Registrar struct {
	appCtx *app.AppContext
}

func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

func (r *Registrar) RegisterRoutes(api *gin.RouterGroup, guards middleware.Guards) {
	h := &handler{
		svc:   NewService(r.appCtx),
		log:   r.appCtx.Logger,
		limit: r.appCtx.Config.Storage.MaxUploadSize,
	}
	api.POST("/users/profile-picture", guards.Required, h.upload)

	if mem, ok := r.appCtx.Storage.(*storage.Memory); ok {
		prefix := strings.TrimPrefix(storage.MemoryRoute, "/api")
		api.GET(prefix+"/*key", serveMemory(mem))
	}
}

type handler struct {
	svc   *Service
	log   *slog.Logger
	limit int64
}

func (h *handler) upload(c *gin.Context) {
	me := middleware.MustCurrentUser(c)
	if h.limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.limit+multipartOverhead)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.Error(c, h.log, tooLarge(h.limit))
			return
		}
		response.Error(c, h.log, svcErr.InvalidInput("file is required"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error(c, h.log, svcErr.InvalidInput("could not read uploaded file"))
		return
	}
	defer f.Close()

	user, err := h.svc.UploadProfilePicture(c.Request.Context(), me, Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.OK(c, user)
}

func serveMemory(mem *storage.Memory) gin.HandlerFunc {
	return func(c *gin.Context) {
		obj, ok := mem.Get(strings.TrimPrefix(c.Param("key"), "/"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusNotFound, response.ErrorBody{Detail: "object not found"})
			return
		}
		c.Data(http.StatusOK, obj.ContentType, obj.Data)
	}
}
