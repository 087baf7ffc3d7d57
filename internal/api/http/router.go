package http

import (
	"embed"
	"html/template"

	"github.com/gin-gonic/gin"
	"github.com/pzerone/webvirt-wizard/internal/api/http/handler"
	"github.com/pzerone/webvirt-wizard/internal/api/http/middleware"
	"github.com/pzerone/webvirt-wizard/internal/console"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

type Services struct {
	Console *console.Console
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())
	engine.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.tmpl")))

	if srvs.Console == nil {
		engine.GET("/health", handler.NewHealthHandler(nil).Check)
		return
	}
	engine.GET("/health", handler.NewHealthHandler(srvs.Console.Guard()).Check)

	authHandler := handler.NewAuthHandler(srvs.Console)
	engine.GET(handler.LoginPath, authHandler.LoginPage)
	engine.POST("/login", authHandler.Login)

	homeHandler := handler.NewHomeHandler(srvs.Console)
	protected := engine.Group("", middleware.RequireSession(srvs.Console.Guard(), handler.LoginPath))
	protected.GET(handler.HomePath, homeHandler.Show)
	protected.POST(handler.HomePath+"/file", homeHandler.ChooseFile)
	protected.POST(handler.HomePath+"/upload", homeHandler.Upload)
	protected.GET(handler.HomePath+"/result.csv", homeHandler.Download)
	protected.POST(handler.HomePath+"/result/dismiss", homeHandler.Dismiss)
	protected.POST("/logout", authHandler.Logout)
}
