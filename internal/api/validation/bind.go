package validation

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// BindAndValidate binds the JSON body into out and validates it. On failure
// it writes a 400 response and returns the error so the handler can stop.
func BindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	return bind(c, out, v, false)
}

// BindOptional is BindAndValidate for endpoints whose body may be omitted
func BindOptional(c *gin.Context, out interface{}, v *validatorv10.Validate) error {
	return bind(c, out, v, true)
}

func bind(c *gin.Context, out interface{}, v *validatorv10.Validate, allowEmpty bool) error {
	if err := c.ShouldBindJSON(out); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "VALIDATION_ERROR",
					"message": "Invalid request body",
					"details": err.Error(),
				},
			})
			return err
		}
	}

	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Request validation failed",
				"fields":  validationErrorsToMap(err),
			},
		})
		return err
	}
	return nil
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Field()] = fe.Tag()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
