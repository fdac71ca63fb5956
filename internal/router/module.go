package router

import "github.com/gin-gonic/gin"

// Module is one feature area (auth, users, dataset, email) that knows how to
// mount its own routes on the shared /api group.
type Module interface {
	Register(rg *gin.RouterGroup)
}
