package api

import (
	"github.com/gin-gonic/gin"
)

// successResponseHandler writes a JSON response with message and optional
// data
func successResponseHandler(c *gin.Context, status int, message string, data ...interface{}) {
	response := gin.H{
		"message": message,
	}
	if len(data) > 0 {
		response["data"] = data[0]
	}
	c.JSON(status, response)
}

// errorResponseHandler writes a JSON error response with message and
// optional error
func errorResponseHandler(c *gin.Context, status int, message string, err ...interface{}) {
	response := gin.H{
		"message": message,
	}
	if len(err) > 0 {
		if e, ok := err[0].(error); ok {
			response["error"] = e.Error()
		} else {
			response["error"] = err[0]
		}
	}
	c.JSON(status, response)
}
