package handlers

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"flowershop/internal/apperr"
)

// errorResponse — единый формат ошибки для всех ручек
type errorResponse struct {
	Timestamp   time.Time         `json:"timestamp"`
	Status      int               `json:"status"`
	Error       string            `json:"error"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation, apperr.KindInvalidArgument:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError переводит ошибку в HTTP-ответ по её виду
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusOf(kind)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	body := errorResponse{
		Timestamp: time.Now(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   err.Error(),
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && kind == apperr.KindValidation {
		body.Message = appErr.Message
		body.FieldErrors = appErr.Fields
	}
	c.AbortWithStatusJSON(status, body)
}

var registerOnce sync.Once

// registerJSONNames — ошибки валидатора называют поля так же, как в JSON
func registerJSONNames() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindJSON читает тело запроса; при ошибке уже ответил клиенту
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			if _, ok := fields[fe.Field()]; !ok {
				fields[fe.Field()] = fieldMessage(fe)
			}
		}
		writeError(c, apperr.ValidationFields(fields))
		return false
	}
	writeError(c, apperr.InvalidArgument("Malformed JSON request: %v", err))
	return false
}

func fieldMessage(fe validator.FieldError) string {
	label := humanize(fe.Field())
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "max":
		return label + " must be at most " + fe.Param() + " characters"
	case "min":
		return label + " must be at least " + fe.Param() + " characters"
	case "gte":
		return label + " must be greater than or equal to " + fe.Param()
	case "oneof":
		return label + " must be one of " + fe.Param()
	default:
		return label + " is invalid"
	}
}

// humanize: "productCode" -> "Product code"
func humanize(field string) string {
	var b strings.Builder
	for i, r := range field {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// pathID читает числовой id из пути
func pathID(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		writeError(c, apperr.InvalidArgument("Invalid %s: %q", name, raw))
		return 0, false
	}
	return uint(id), true
}
