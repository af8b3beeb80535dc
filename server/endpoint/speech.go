package endpoint

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kbukum/speechbridge/bridge"
	"github.com/kbukum/speechbridge/errors"
	"github.com/kbukum/speechbridge/sse"
	"github.com/kbukum/speechbridge/util"
)

// ResultResponse wraps a successful method call result.
type ResultResponse struct {
	Result any `json:"result"`
}

// MethodCall runs the method named by the :method path parameter. The
// request body, if any, is the method's JSON arguments. A method name
// without the bridge prefix gets it prepended.
func MethodCall(methods bridge.Handler, prefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := util.SanitizeString(c.Param("method"))
		if !strings.HasPrefix(method, prefix) {
			method = prefix + method
		}

		args, err := io.ReadAll(c.Request.Body)
		if err != nil {
			RespondWithError(c, errors.InvalidInput("args", "request body could not be read").WithCause(err))
			return
		}
		if len(args) > 0 && !json.Valid(args) {
			RespondWithError(c, errors.InvalidInput("args", "request body is not valid JSON"))
			return
		}

		result, err := methods.Handle(c.Request.Context(), bridge.MethodCall{
			Method:    method,
			Args:      args,
			RequestID: util.SanitizeString(c.GetHeader("X-Request-Id")),
		})
		if err != nil {
			RespondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, ResultResponse{Result: result})
	}
}

// Events streams notifications as Server-Sent Events.
func Events(hub *sse.Hub, keepAlive time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		sse.ServeSSE(hub, c.Writer, c.Request, "sse:"+uuid.NewString(), keepAlive)
	}
}

// RespondWithError renders err with its AppError status and body; anything
// else becomes a 500 INTERNAL_ERROR.
func RespondWithError(c *gin.Context, err error) {
	appErr := errors.From(err)
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}
