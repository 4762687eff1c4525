package response

import "github.com/gin-gonic/gin"

// Error writes the flat {"error": msg} body both APIs use. Auth failures
// always pass the same generic message so callers cannot probe sub-causes.
func Error(c *gin.Context, httpStatus int, message string) {
	c.JSON(httpStatus, gin.H{"error": message})
}

func AbortError(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, gin.H{"error": message})
}
