// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package appcontext provides the custom Echo context.
package appcontext

import (
	"codeberg.org/oliverandrich/go-webapp-boilerplate/internal/models"
	"github.com/labstack/echo/v4"
)

// Context is a custom Echo context carrying the signed-in user.
type Context struct {
	echo.Context
	User *models.User // nil if not authenticated
}

// GetUser returns the authenticated user, or nil if not authenticated.
func (c *Context) GetUser() *models.User {
	return c.User
}

// IsAuthenticated returns true if the user is authenticated.
func (c *Context) IsAuthenticated() bool {
	return c.User != nil
}

// UserOf returns the user attached to c, or nil when c is not a *Context
// or nobody is signed in.
func UserOf(c echo.Context) *models.User {
	if cc, ok := c.(*Context); ok {
		return cc.User
	}
	return nil
}
