// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"fmt"

	appmw "codeberg.org/oliverandrich/go-webapp-boilerplate/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func setupMiddleware(e *echo.Echo, a *App) {
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(appmw.RequestLogger())
	e.Use(middleware.Secure())
	if a.Config.Server.MaxBodySize > 0 {
		e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", a.Config.Server.MaxBodySize)))
	}
	e.Use(appmw.Locale())
	e.Use(appmw.LoadUser(a.Sessions, a.Repo))
}
